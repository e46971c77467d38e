// Command converse is a terminal client for a conversational assistant
// service.
//
// Usage:
//
//	converse [flags]                      run the chat TUI
//	converse [flags] ask [-conversation ID] [-mode MODE] [-no-stream] TEXT
//	converse [flags] conversations [list|create TITLE]
//	converse [flags] docs list|get ID|rm ID|upload [-description D] PATTERN...
//	converse config init [PATH]
//
// Flags:
//
//	-config string     Path to config file (default: user config dir)
//	-base-url string   Service API base URL (overrides config)
//	-mode string       Chat mode: normal, rag, agent (overrides config)
//	-log-level string  Log level: debug, info, warn, error (overrides config)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/backend"
	bt "github.com/fwojciec/converse/bubbletea"
	"github.com/fwojciec/converse/config"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "%s %v\n", errorColor.Sprint("converse:"), err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs.
type app struct {
	cfg    config.Config
	client *backend.Client
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("converse", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "Path to config file (default: user config dir)")
		baseURL    = fs.String("base-url", "", "Service API base URL (overrides config)")
		mode       = fs.String("mode", "", "Chat mode: normal, rag, agent (overrides config)")
		logLevel   = fs.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()

	// config init must work before a config file exists.
	if len(rest) > 0 && rest[0] == "config" {
		return runConfig(rest[1:], stdout)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLog, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	a := &app{
		cfg:    cfg,
		logger: logger,
		stdout: stdout,
		stderr: stderr,
		client: backend.New(
			backend.WithBaseURL(cfg.BaseURL),
			backend.WithLogger(logger),
			backend.WithHTTPClient(newHTTPClient(cfg)),
		),
	}

	if len(rest) == 0 {
		return a.tui(ctx)
	}
	switch rest[0] {
	case "ask":
		return a.ask(ctx, rest[1:])
	case "conversations":
		return a.conversations(ctx, rest[1:])
	case "docs":
		return a.docs(ctx, rest[1:])
	}
	return fmt.Errorf("unknown command %q: %w", rest[0], errUsage)
}

// chat builds a Chat on q with the configured pacing.
func (a *app) chat(q *converse.Queue, opts ...converse.ChatOption) *converse.Chat {
	base := []converse.ChatOption{
		converse.WithMode(a.cfg.ChatMode()),
		converse.WithThreshold(a.cfg.FlushThreshold),
		converse.WithFrameClock(converse.NewFrameClock(a.cfg.FPS)),
		converse.WithGraceDelay(a.cfg.GraceDelay),
		converse.WithLogger(a.logger),
	}
	return converse.NewChat(a.client, a.client, q, append(base, opts...)...)
}

func (a *app) tui(ctx context.Context) error {
	q := converse.NewQueue()
	chat := a.chat(q)
	defer chat.Close()
	defer q.Close()

	a.logger.Info("starting TUI", "base_url", a.cfg.BaseURL, "mode", a.cfg.Mode)
	if err := bt.Run(ctx, bt.New(chat, q, converse.DefaultTheme())); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}
	return nil
}
