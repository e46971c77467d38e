package backendtest_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/backendtest"
	conversejson "github.com/fwojciec/converse/json"
	"github.com/fwojciec/converse/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, opts ...backendtest.Option) (*backendtest.Server, *httptest.Server) {
	t.Helper()
	srv := backendtest.New(opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	_, ts := newServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_CreateConversationDefaultsTitle(t *testing.T) {
	t.Parallel()

	_, ts := newServer(t)
	resp, err := http.Post(ts.URL+"/api/chat/conversations", "application/json", strings.NewReader(`{"title":""}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	conv, err := conversejson.Decode[conversejson.Conversation](resp.Body)
	require.NoError(t, err)
	assert.Equal(t, int64(1), conv.ID)
	assert.Equal(t, "New conversation", conv.Title)
}

func TestServer_LatestMissingIsApplicationError(t *testing.T) {
	t.Parallel()

	srv, ts := newServer(t)
	c := srv.CreateConversation("t")
	srv.AddMessage(c.ID, converse.RoleUser, "hello")

	resp, err := http.Get(ts.URL + "/api/chat/conversations/1/latestAssistantMessage?content=hello")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = conversejson.Decode[*conversejson.Message](resp.Body)
	var apiErr *converse.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, conversejson.CodeError, apiErr.Code)
}

func TestServer_LatestPicksMostRecent(t *testing.T) {
	t.Parallel()

	srv, ts := newServer(t)
	c := srv.CreateConversation("t")
	srv.AddMessage(c.ID, converse.RoleUser, "same")
	second := srv.AddMessage(c.ID, converse.RoleUser, "same")

	resp, err := http.Get(ts.URL + "/api/chat/conversations/1/latestUserMessage?message=same")
	require.NoError(t, err)
	defer resp.Body.Close()

	msg, err := conversejson.Decode[conversejson.Message](resp.Body)
	require.NoError(t, err)
	assert.Equal(t, int64(second.ID), msg.ID)
}

func TestServer_StreamPersistsBothMessages(t *testing.T) {
	t.Parallel()

	srv, ts := newServer(t, backendtest.WithReply(func(converse.Mode, string) []string {
		return []string{"Hi", " there"}
	}))
	c := srv.CreateConversation("t")

	resp, err := http.Get(ts.URL + "/api/chat/conversations/1/stream?message=hello")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, sse.ContentType, resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "data: Hi\n\ndata:  there\n\ndata: [DONE]\n\n", string(body))

	msgs := srv.Messages(c.ID)
	require.Len(t, msgs, 2)
	assert.Equal(t, converse.RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, converse.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hi there", msgs[1].Content)
}

func TestServer_StreamUnknownConversation(t *testing.T) {
	t.Parallel()

	_, ts := newServer(t)
	resp, err := http.Get(ts.URL + "/api/chat/conversations/7/stream?message=hello")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_FailListMessages(t *testing.T) {
	t.Parallel()

	srv, ts := newServer(t)
	srv.CreateConversation("t")
	srv.FailListMessages(1)

	get := func() error {
		resp, err := http.Get(ts.URL + "/api/chat/conversations/1/messages")
		require.NoError(t, err)
		defer resp.Body.Close()
		_, err = conversejson.Decode[[]conversejson.Message](resp.Body)
		return err
	}
	require.Error(t, get())
	require.NoError(t, get())
}

func upload(t *testing.T, ts *httptest.Server, filename string) (*conversejson.Document, error) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("# notes"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("description", "team notes"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/api/document/upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	return conversejson.Decode[*conversejson.Document](resp.Body)
}

func TestServer_Upload(t *testing.T) {
	t.Parallel()

	t.Run("supported type", func(t *testing.T) {
		t.Parallel()
		srv, ts := newServer(t)
		doc, err := upload(t, ts, "Notes.MD")
		require.NoError(t, err)
		assert.Equal(t, "md", doc.FileType)
		assert.Equal(t, int64(7), doc.FileSize)
		assert.Equal(t, "team notes", doc.Description)
		assert.Equal(t, "system", doc.CreatedBy)
		assert.Len(t, srv.Documents(), 1)
	})

	t.Run("unsupported type", func(t *testing.T) {
		t.Parallel()
		srv, ts := newServer(t)
		_, err := upload(t, ts, "run.exe")
		var apiErr *converse.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Contains(t, apiErr.Message, "unsupported file type")
		assert.Empty(t, srv.Documents())
	})
}
