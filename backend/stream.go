package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/fwojciec/converse"
	conversejson "github.com/fwojciec/converse/json"
	"github.com/fwojciec/converse/sse"
)

// Transport implements converse.TransportSelector.
func (c *Client) Transport(mode converse.Mode) (converse.Transport, error) {
	switch mode {
	case converse.ModePlain:
		return &pushTransport{client: c, endpoint: "/stream"}, nil
	case converse.ModeAgent:
		return &pushTransport{client: c, endpoint: "/agent-stream"}, nil
	case converse.ModeRAG:
		return &pullTransport{client: c, endpoint: "/rag-stream"}, nil
	default:
		return nil, fmt.Errorf("backend: mode %q: %w", mode, converse.ErrUnsupportedMode)
	}
}

// pushTransport subscribes to an event stream the server pushes into.
type pushTransport struct {
	client   *Client
	endpoint string
}

func (t *pushTransport) Stream(ctx context.Context, req converse.StreamRequest, onDelta func(string)) error {
	u := t.client.url(conversationPath(req.ConversationID, t.endpoint), url.Values{"message": {req.Message}})
	es, err := sse.Connect(ctx, t.client.httpClient, u,
		sse.WithHeader(RequestIDHeader, converse.RequestIDFromContext(ctx)))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("backend: %w", err)
	}
	defer es.Close()
	stop := context.AfterFunc(ctx, func() { _ = es.Close() })
	defer stop()

	for {
		ev, err := es.Next()
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, io.EOF):
			return fmt.Errorf("backend: %w", converse.ErrStreamInterrupted)
		default:
			return fmt.Errorf("backend: %w", err)
		}
		if ev.Type != "message" {
			continue
		}
		if sse.IsSentinel(ev.Data) {
			return nil
		}
		onDelta(ev.Data)
	}
}

// pullTransport posts the message and frames the response body itself.
type pullTransport struct {
	client   *Client
	endpoint string
}

func (t *pullTransport) Stream(ctx context.Context, req converse.StreamRequest, onDelta func(string)) error {
	body, err := jsonBody(conversejson.StreamRequest{Message: req.Message})
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.client.url(conversationPath(req.ConversationID, t.endpoint), nil), body)
	if err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", sse.ContentType)
	if id := converse.RequestIDFromContext(ctx); id != "" {
		httpReq.Header.Set(RequestIDHeader, id)
	}

	resp, err := t.client.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("backend: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseHTTPError(resp)
	}

	p := sse.NewParser(onDelta)
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 && !p.Feed(buf[:n]) {
			return nil
		}
		if errors.Is(err, io.EOF) {
			p.Close()
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("backend: read stream: %w", err)
		}
	}
}
