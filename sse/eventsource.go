package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/fwojciec/converse"
)

// ErrClosed is returned by EventSource.Next after Close.
var ErrClosed = errors.New("sse: event source closed")

// ContentType is the media type of an event stream.
const ContentType = "text/event-stream"

// EventSource is a client-side subscription to an event stream. It does
// not reconnect: the stream ends at the first read error.
type EventSource struct {
	body   io.ReadCloser
	dec    *Decoder
	closed atomic.Bool
	once   sync.Once
}

// ConnectOption configures the subscription request.
type ConnectOption func(*http.Request)

// WithHeader sets a request header.
func WithHeader(key, value string) ConnectOption {
	return func(r *http.Request) {
		if value != "" {
			r.Header.Set(key, value)
		}
	}
}

// Connect opens a GET subscription to url. A status other than 200 or a
// response that is not an event stream is an error.
func Connect(ctx context.Context, hc *http.Client, url string, opts ...ConnectOption) (*EventSource, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("sse: %w", err)
	}
	req.Header.Set("Accept", ContentType)
	req.Header.Set("Cache-Control", "no-cache")
	for _, o := range opts {
		o(req)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sse: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("sse: %w", &converse.HTTPError{StatusCode: resp.StatusCode, Body: string(body)})
	}
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err != nil || mt != ContentType {
		resp.Body.Close()
		return nil, fmt.Errorf("sse: unexpected content type %q", resp.Header.Get("Content-Type"))
	}
	return &EventSource{body: resp.Body, dec: NewDecoder(resp.Body)}, nil
}

// Next blocks until the next event arrives. It returns io.EOF when the
// server ends the stream and ErrClosed after Close.
func (s *EventSource) Next() (Event, error) {
	if s.closed.Load() {
		return Event{}, ErrClosed
	}
	ev, err := s.dec.Decode()
	if err != nil {
		if s.closed.Load() {
			return Event{}, ErrClosed
		}
		if errors.Is(err, io.EOF) {
			return Event{}, io.EOF
		}
		return Event{}, fmt.Errorf("sse: %w", err)
	}
	return ev, nil
}

// Close ends the subscription. It is idempotent and may be called from any
// goroutine, including while Next is blocked.
func (s *EventSource) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		err = s.body.Close()
	})
	return err
}
