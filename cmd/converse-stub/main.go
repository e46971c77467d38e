// Command converse-stub serves an in-memory chat service for local
// development of converse. Replies echo the message in chunks.
//
// Usage:
//
//	converse-stub [-addr :8080] [-chunk-delay 50ms] [-seed]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/backendtest"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("converse-stub:"), err)
		os.Exit(1)
	}
}

func run() error {
	var (
		addr       = flag.String("addr", ":8080", "Listen address")
		chunkDelay = flag.Duration("chunk-delay", 50*time.Millisecond, "Pause between streamed chunks")
		seed       = flag.Bool("seed", false, "Create a sample conversation on start")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	srv := backendtest.New(
		backendtest.WithChunkDelay(*chunkDelay),
		backendtest.WithLogger(logger),
	)
	if *seed {
		c := srv.CreateConversation("Welcome")
		srv.AddMessage(c.ID, converse.RoleUser, "What can you do?")
		srv.AddMessage(c.ID, converse.RoleAssistant, "I echo whatever you send, **one word at a time**.")
	}

	hs := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()
	color.New(color.FgCyan).Fprintf(os.Stderr, "serving fake chat service on %s/api\n", *addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
