package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/ansi"
	"github.com/mattn/go-runewidth"
)

// titleWidth bounds the title of a conversation created by ask.
const titleWidth = 40

// ask sends one message and streams the paced reply to stdout, or with
// -no-stream prints it once complete. It drives
// the same Chat as the TUI on a Queue it runs itself, and returns once the
// reply has been reconciled with the service.
func (a *app) ask(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	var (
		convFlag = fs.String("conversation", "", "Conversation ID (default: create a new conversation)")
		modeFlag = fs.String("mode", "", "Chat mode: normal, rag, agent")
		noStream = fs.Bool("no-stream", false, "Wait for the whole reply instead of streaming it")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if text == "" {
		return fmt.Errorf("ask TEXT: %w", errUsage)
	}

	mode := a.cfg.ChatMode()
	if *modeFlag != "" {
		m, err := converse.ParseMode(*modeFlag)
		if err != nil {
			return err
		}
		mode = m
	}
	var id converse.ConversationID
	if *convFlag != "" {
		n, err := strconv.ParseInt(*convFlag, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid conversation id %q: %w", *convFlag, converse.ErrValidation)
		}
		id = converse.ConversationID(n)
	}
	if *noStream {
		return a.askWhole(ctx, id, mode, text)
	}

	q := converse.NewQueue()
	chat := a.chat(q, converse.WithMode(mode))
	defer chat.Close()
	defer q.Close()

	if id != 0 {
		chat.Select(id)
	} else if err := chat.CreateConversation(runewidth.Truncate(text, titleWidth, "…")); err != nil {
		return err
	}

	r := &asker{chat: chat, text: text, out: a.stdout}
	for !r.done {
		fn, err := q.Next(ctx)
		if err != nil {
			if errors.Is(err, converse.ErrQueueClosed) {
				break
			}
			return err
		}
		fn()
		if err := r.step(); err != nil {
			return err
		}
	}
	fmt.Fprintln(a.stdout)
	return r.err
}

// askWhole sends text over the request/response endpoints and prints the
// reply once it is complete. RAG mode has its own endpoint; every other
// mode posts the user message and prints the assistant message it returns.
func (a *app) askWhole(ctx context.Context, id converse.ConversationID, mode converse.Mode, text string) error {
	if id == 0 {
		c, err := a.client.CreateConversation(ctx, runewidth.Truncate(text, titleWidth, "…"))
		if err != nil {
			return err
		}
		id = c.ID
	}
	var (
		reply converse.Message
		err   error
	)
	if mode == converse.ModeRAG {
		reply, err = a.client.RAGChat(ctx, id, text)
	} else {
		reply, err = a.client.AddMessage(ctx, id, converse.RoleUser, text)
	}
	if err != nil {
		return err
	}
	a.logger.Debug("whole reply", "conversation", id, "mode", mode, "message", reply.ID)
	fmt.Fprintln(a.stdout, ansi.Clean(reply.Content))
	return nil
}

// asker advances a headless send one Chat state change at a time.
type asker struct {
	chat    *converse.Chat
	text    string
	out     io.Writer
	sent    bool
	printed string
	done    bool
	err     error
}

func (r *asker) step() error {
	v := r.chat.View()
	if v.Err != "" {
		return errors.New(v.Err)
	}
	if !r.sent {
		if v.ConversationID == 0 || v.LoadingMessages {
			return nil
		}
		if v.MessagesErr != "" {
			return errors.New(v.MessagesErr)
		}
		if err := r.chat.Send(r.text); err != nil {
			return err
		}
		r.sent = true
		return nil
	}

	r.write(v.Messages)
	if v.Loading {
		return nil
	}
	r.done = true
	switch {
	case v.MessagesErr != "":
		r.err = errors.New(v.MessagesErr)
	case v.StreamErr != "":
		r.err = fmt.Errorf("stream: %s", v.StreamErr)
	}
	return nil
}

// write prints the part of the reply not yet on screen. Reconciliation may
// replace the reply wholesale; only growth is printed.
func (r *asker) write(msgs []converse.Message) {
	var reply string
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == converse.RoleAssistant {
			reply = ansi.Clean(msgs[i].Content)
			break
		}
	}
	if rest, ok := strings.CutPrefix(reply, r.printed); ok && rest != "" {
		fmt.Fprint(r.out, rest)
		r.printed = reply
	}
}
