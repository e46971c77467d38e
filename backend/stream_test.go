package backend_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/backendtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deltas collects the deltas a transport emits.
type deltas struct {
	mu  sync.Mutex
	got []string
}

func (d *deltas) add(s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.got = append(d.got, s)
}

func (d *deltas) all() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.got...)
}

func stream(t *testing.T, tr converse.Transport, ctx context.Context, req converse.StreamRequest) ([]string, error) {
	t.Helper()
	var d deltas
	err := tr.Stream(ctx, req, d.add)
	return d.all(), err
}

func TestTransport_Modes(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		mode converse.Mode
		want string
	}{
		{converse.ModePlain, "Chat reply to: hello"},
		{converse.ModeAgent, "Agent reply to: hello"},
		{converse.ModeRAG, "RAG reply to: hello"},
	} {
		t.Run(string(tc.mode), func(t *testing.T) {
			t.Parallel()

			srv, client := newClient(t)
			c := srv.CreateConversation("t")
			tr, err := client.Transport(tc.mode)
			require.NoError(t, err)

			got, err := stream(t, tr, context.Background(), converse.StreamRequest{
				ConversationID: c.ID, Message: "hello", Mode: tc.mode,
			})
			require.NoError(t, err)
			assert.Greater(t, len(got), 1)
			assert.Equal(t, tc.want, strings.Join(got, ""))

			msgs := srv.Messages(c.ID)
			require.Len(t, msgs, 2)
			assert.Equal(t, tc.want, msgs[1].Content)
		})
	}
}

func TestTransport_ForwardsRequestID(t *testing.T) {
	t.Parallel()

	srv, client := newClient(t)
	c := srv.CreateConversation("t")
	ctx := converse.ContextWithRequestID(context.Background(), "sess-1")

	for _, m := range []converse.Mode{converse.ModePlain, converse.ModeRAG} {
		tr, err := client.Transport(m)
		require.NoError(t, err)
		_, err = stream(t, tr, ctx, converse.StreamRequest{ConversationID: c.ID, Message: "hi", Mode: m})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"sess-1", "sess-1"}, srv.RequestIDs())
}

func TestTransport_UnknownConversation(t *testing.T) {
	t.Parallel()

	_, client := newClient(t)
	for _, m := range converse.Modes() {
		tr, err := client.Transport(m)
		require.NoError(t, err)
		_, err = stream(t, tr, context.Background(), converse.StreamRequest{ConversationID: 99, Message: "hi", Mode: m})
		require.ErrorIs(t, err, converse.ErrNotFound, m)
	}
}

func TestTransport_PushInterrupted(t *testing.T) {
	t.Parallel()

	client := rawClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: partial\n\n")
	})
	tr, err := client.Transport(converse.ModePlain)
	require.NoError(t, err)

	got, err := stream(t, tr, context.Background(), converse.StreamRequest{ConversationID: 1, Message: "hi", Mode: converse.ModePlain})
	require.ErrorIs(t, err, converse.ErrStreamInterrupted)
	assert.Equal(t, []string{"partial"}, got)
}

func TestTransport_PushSkipsNamedEvents(t *testing.T) {
	t.Parallel()

	client := rawClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keepalive\n\nevent: ping\ndata: {}\n\ndata: one\n\ndata: [DONE]\n\ndata: after\n\n")
	})
	tr, err := client.Transport(converse.ModeAgent)
	require.NoError(t, err)

	got, err := stream(t, tr, context.Background(), converse.StreamRequest{ConversationID: 1, Message: "hi", Mode: converse.ModeAgent})
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, got)
}

func TestTransport_PushRejectsWrongContentType(t *testing.T) {
	t.Parallel()

	client := rawClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{}`)
	})
	tr, err := client.Transport(converse.ModePlain)
	require.NoError(t, err)

	_, err = stream(t, tr, context.Background(), converse.StreamRequest{ConversationID: 1, Message: "hi", Mode: converse.ModePlain})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content type")
}

func TestTransport_PullEndOfBodyCompletes(t *testing.T) {
	t.Parallel()

	type seen struct{ method, body string }
	requests := make(chan seen, 1)
	client := rawClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests <- seen{r.Method, string(body)}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: a\n\ndata: b")
	})
	tr, err := client.Transport(converse.ModeRAG)
	require.NoError(t, err)

	got, err := stream(t, tr, context.Background(), converse.StreamRequest{ConversationID: 1, Message: "hi", Mode: converse.ModeRAG})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
	req := <-requests
	assert.Equal(t, http.MethodPost, req.method)
	assert.JSONEq(t, `{"message":"hi"}`, req.body)
}

func TestTransport_PullStopsAtSentinel(t *testing.T) {
	t.Parallel()

	client := rawClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: a\n\ndata: [DONE]\n\ndata: ignored\n\n")
	})
	tr, err := client.Transport(converse.ModeRAG)
	require.NoError(t, err)

	got, err := stream(t, tr, context.Background(), converse.StreamRequest{ConversationID: 1, Message: "hi", Mode: converse.ModeRAG})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)
}

func TestTransport_PaddedSentinelEndsEveryMode(t *testing.T) {
	t.Parallel()

	client := rawClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: a\n\ndata:  [DONE] \n\ndata: after\n\n")
	})
	for _, m := range converse.Modes() {
		t.Run(string(m), func(t *testing.T) {
			t.Parallel()
			tr, err := client.Transport(m)
			require.NoError(t, err)

			got, err := stream(t, tr, context.Background(), converse.StreamRequest{ConversationID: 1, Message: "hi", Mode: m})
			require.NoError(t, err)
			assert.Equal(t, []string{"a"}, got)
		})
	}
}

func TestTransport_Cancel(t *testing.T) {
	t.Parallel()

	for _, m := range []converse.Mode{converse.ModePlain, converse.ModeRAG} {
		t.Run(string(m), func(t *testing.T) {
			t.Parallel()

			hold := make(chan struct{})
			srv, client := newClient(t, backendtest.WithHold(hold))
			t.Cleanup(func() { close(hold) })
			c := srv.CreateConversation("t")
			tr, err := client.Transport(m)
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			first := make(chan struct{})
			var once sync.Once
			errc := make(chan error, 1)
			go func() {
				errc <- tr.Stream(ctx, converse.StreamRequest{ConversationID: c.ID, Message: "hi", Mode: m}, func(string) {
					once.Do(func() { close(first) })
				})
			}()

			select {
			case <-first:
			case <-time.After(2 * time.Second):
				t.Fatal("no delta before timeout")
			}
			cancel()

			select {
			case err := <-errc:
				require.ErrorIs(t, err, context.Canceled)
			case <-time.After(2 * time.Second):
				t.Fatal("stream did not stop after cancel")
			}
		})
	}
}
