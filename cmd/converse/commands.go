package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/ansi"
	"github.com/fwojciec/converse/config"
	"github.com/fwojciec/converse/fs"
)

func (a *app) conversations(ctx context.Context, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}
	switch sub {
	case "list":
		convs, err := a.client.ListConversations(ctx)
		if err != nil {
			return err
		}
		if len(convs) == 0 {
			fmt.Fprintln(a.stdout, mutedColor.Sprint("No conversations."))
			return nil
		}
		t := newTable(a.stdout, "ID", "TITLE", "CREATED")
		for _, c := range convs {
			t.row(int64(c.ID), ansi.Line(c.Title), formatTime(c.CreatedAt))
		}
		return t.flush()

	case "create":
		title := strings.Join(args, " ")
		if err := converse.ValidateTitle(title); err != nil {
			return err
		}
		c, err := a.client.CreateConversation(ctx, strings.TrimSpace(title))
		if err != nil {
			return err
		}
		printSuccess(a.stdout, "Created conversation %d %q", c.ID, c.Title)
		return nil
	}
	return fmt.Errorf("conversations [list|create TITLE]: %w", errUsage)
}

func (a *app) docs(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("docs list|get ID|rm ID|upload PATTERN...: %w", errUsage)
	}
	sub, args := args[0], args[1:]
	switch sub {
	case "list":
		docs, err := a.client.List(ctx)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Fprintln(a.stdout, mutedColor.Sprint("No documents."))
			return nil
		}
		t := newTable(a.stdout, "ID", "FILENAME", "TYPE", "SIZE", "CREATED")
		for _, d := range docs {
			t.row(d.ID, ansi.Line(d.Filename), d.FileType, d.FileSize, formatTime(d.CreatedAt))
		}
		return t.flush()

	case "get":
		id, err := documentID(args)
		if err != nil {
			return err
		}
		d, err := a.client.Get(ctx, id)
		if err != nil {
			return err
		}
		printDocument(a.stdout, d)
		return nil

	case "rm":
		id, err := documentID(args)
		if err != nil {
			return err
		}
		if err := a.client.Delete(ctx, id); err != nil {
			return err
		}
		printSuccess(a.stdout, "Deleted document %d", id)
		return nil

	case "upload":
		return a.upload(ctx, args)
	}
	return fmt.Errorf("unknown docs command %q: %w", sub, errUsage)
}

// upload sends every file the patterns match. Unsupported types are
// rejected before anything is sent.
func (a *app) upload(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("upload", flag.ContinueOnError)
	flags.SetOutput(a.stderr)
	description := flags.String("description", "", "Description stored with each document")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		return fmt.Errorf("docs upload [-description D] PATTERN...: %w", errUsage)
	}
	paths, err := fs.Expand(flags.Args()...)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if !converse.SupportedDocument(p) {
			return fmt.Errorf("%s: unsupported file type %q: %w", p, converse.DocumentType(p), converse.ErrValidation)
		}
	}
	for _, p := range paths {
		d, err := a.uploadFile(ctx, p, *description)
		if err != nil {
			return err
		}
		a.logger.Info("uploaded document", "path", p, "id", d.ID)
		printSuccess(a.stdout, "Uploaded %s as document %d", p, d.ID)
	}
	return nil
}

func (a *app) uploadFile(ctx context.Context, path, description string) (converse.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return converse.Document{}, err
	}
	defer f.Close()
	return a.client.Upload(ctx, filepath.Base(path), f, description)
}

func documentID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("document ID required: %w", errUsage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid document id %q: %w", args[0], converse.ErrValidation)
	}
	return id, nil
}

func printDocument(w io.Writer, d converse.Document) {
	field := func(name string, value any) {
		fmt.Fprintf(w, "%s %v\n", headerColor.Sprintf("%-12s", name+":"), value)
	}
	field("ID", d.ID)
	field("Filename", ansi.Line(d.Filename))
	field("Type", d.FileType)
	field("Size", d.FileSize)
	if d.Description != "" {
		field("Description", ansi.Line(d.Description))
	}
	field("Created", formatTime(d.CreatedAt))
	if d.CreatedBy != "" {
		field("Created by", d.CreatedBy)
	}
}

func runConfig(args []string, stdout io.Writer) error {
	if len(args) == 0 || args[0] != "init" || len(args) > 2 {
		return fmt.Errorf("config init [PATH]: %w", errUsage)
	}
	path := config.DefaultPath()
	if len(args) == 2 {
		path = args[1]
	}
	if err := config.Init(path); err != nil {
		return err
	}
	printSuccess(stdout, "Wrote %s", path)
	return nil
}
