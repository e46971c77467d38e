// Package backend implements converse.Backend, converse.DocumentService and
// converse.TransportSelector over the chat service's HTTP API.
//
// REST endpoints answer with JSON envelopes. Replies stream as server-sent
// events: plain and agent chat over a GET subscription the server pushes
// into, RAG chat over a POST whose response body the client reads and
// frames itself.
package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/fwojciec/converse"
	conversejson "github.com/fwojciec/converse/json"
)

// DefaultBaseURL is where a locally running service listens.
const DefaultBaseURL = "http://localhost:8080/api"

// RequestIDHeader carries the stream session id.
const RequestIDHeader = "X-Request-Id"

// Interface compliance checks.
var (
	_ converse.Backend           = (*Client)(nil)
	_ converse.DocumentService   = (*Client)(nil)
	_ converse.TransportSelector = (*Client)(nil)
)

// Client talks to the chat service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL, including the /api prefix.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom HTTP client. Streams have no timeout of their
// own, so the client should not set one either.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a [Client].
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func conversationPath(id converse.ConversationID, suffix string) string {
	return fmt.Sprintf("/chat/conversations/%d%s", id, suffix)
}

// request is one REST call.
type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func (c *Client) do(ctx context.Context, r request) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, r.method, c.url(r.path, r.query), r.body)
	if err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		httpReq.Header.Set("Content-Type", r.contentType)
	}
	if id := converse.RequestIDFromContext(ctx); id != "" {
		httpReq.Header.Set(RequestIDHeader, id)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}
	c.logger.Debug("backend request", "method", r.method, "path", r.path, "status", resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, parseHTTPError(resp)
	}
	return resp, nil
}

// call performs r and decodes the envelope's data into T.
func call[T any](ctx context.Context, c *Client, r request) (T, error) {
	var zero T
	resp, err := c.do(ctx, r)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()
	data, err := conversejson.Decode[T](resp.Body)
	if err != nil {
		return zero, fmt.Errorf("backend: %s %s: %w", r.method, r.path, err)
	}
	return data, nil
}

func jsonBody(v any) (io.Reader, error) {
	b, err := conversejson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}
	return strings.NewReader(string(b)), nil
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("backend: HTTP %d (failed to read body: %w)", resp.StatusCode, err)
	}
	return fmt.Errorf("backend: %w", &converse.HTTPError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	})
}
