package main

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/fwojciec/converse/config"
)

// openLogger writes logs to the configured file so they never interleave
// with the TUI or command output. An empty log_file discards them.
func openLogger(cfg config.Config) (*slog.Logger, func(), error) {
	if cfg.LogFile == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("log file: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("log file: %w", err)
	}
	h := slog.NewTextHandler(f, &slog.HandlerOptions{Level: cfg.Level()})
	return slog.New(h), func() { f.Close() }, nil
}

// newHTTPClient bounds connection setup and response headers only. A
// client-wide timeout would cut long streams off.
func newHTTPClient(cfg config.Config) *http.Client {
	if cfg.RequestTimeout == 0 {
		return http.DefaultClient
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DialContext = (&net.Dialer{Timeout: cfg.RequestTimeout}).DialContext
	tr.ResponseHeaderTimeout = cfg.RequestTimeout
	return &http.Client{Transport: tr}
}
