package backendtest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/converse"
	conversejson "github.com/fwojciec/converse/json"
	"github.com/fwojciec/converse/sse"
	"github.com/go-chi/chi/v5"
)

func writeData[T any](w http.ResponseWriter, message string, data T) {
	w.Header().Set("Content-Type", "application/json")
	_ = conversejson.Encode(w, message, data)
}

// writeFailure reports an application error inside a 200 response, as the
// service does.
func writeFailure(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	_ = conversejson.EncodeError(w, conversejson.CodeError, message)
}

func conversationID(r *http.Request) (converse.ConversationID, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return converse.ConversationID(id), err == nil && id > 0
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	dtos := make([]conversejson.Conversation, len(s.conversations))
	for i, c := range s.conversations {
		dtos[i] = conversejson.FromConversation(c)
	}
	s.mu.Unlock()
	writeData(w, "", dtos)
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req conversejson.CreateConversationRequest
	if err := conversejson.Unmarshal(r.Body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	c := s.createConversation(req.Title)
	s.mu.Unlock()
	writeData(w, "conversation created", conversejson.FromConversation(c))
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(r)
	if !ok {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	i := converse.FindConversation(s.conversations, id)
	var c converse.Conversation
	if i >= 0 {
		c = s.conversations[i]
	}
	s.mu.Unlock()
	if i < 0 {
		writeFailure(w, fmt.Sprintf("conversation %d not found", id))
		return
	}
	writeData(w, "", conversejson.FromConversation(c))
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(r)
	if !ok {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	if s.listFailures > 0 {
		s.listFailures--
		s.mu.Unlock()
		writeFailure(w, "failed to load messages")
		return
	}
	msgs := s.messages[id]
	dtos := make([]conversejson.Message, len(msgs))
	for i, m := range msgs {
		dtos[i] = conversejson.FromMessage(m)
	}
	s.mu.Unlock()
	writeData(w, "", dtos)
}

// handleAddMessage stores the message. A user message is answered at once
// and the stored assistant reply is returned instead.
func (s *Server) handleAddMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(r)
	if !ok {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}
	var req conversejson.AddMessageRequest
	if err := conversejson.Unmarshal(r.Body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	role := converse.Role(req.Role)
	if role == "" {
		role = converse.RoleUser
	}
	switch {
	case converse.BlankText(req.Content):
		writeFailure(w, "message content must not be empty")
		return
	case !role.Valid():
		writeFailure(w, "unknown role")
		return
	}

	s.mu.Lock()
	if !s.hasConversation(id) {
		s.mu.Unlock()
		writeFailure(w, fmt.Sprintf("conversation %d not found", id))
		return
	}
	m := s.addMessage(id, role, req.Content)
	if role == converse.RoleUser {
		m = s.addMessage(id, converse.RoleAssistant, strings.Join(s.reply(converse.ModePlain, req.Content), ""))
	}
	s.mu.Unlock()
	writeData(w, "message added", conversejson.FromMessage(m))
}

// handleLatest finds the most recent message of role whose content equals
// the query parameter param.
func (s *Server) handleLatest(role converse.Role, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := conversationID(r)
		if !ok {
			http.Error(w, "invalid conversation id", http.StatusBadRequest)
			return
		}
		content := r.URL.Query().Get(param)
		s.mu.Lock()
		var found converse.Message
		ok = false
		for _, m := range slices.Backward(s.messages[id]) {
			if m.Role == role && m.Content == content {
				found, ok = m, true
				break
			}
		}
		s.mu.Unlock()
		if !ok {
			writeFailure(w, fmt.Sprintf("no matching %s message", role))
			return
		}
		writeData(w, "", conversejson.FromMessage(found))
	}
}

func (s *Server) handleRAG(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(r)
	if !ok {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}
	var req conversejson.RAGRequest
	if err := conversejson.Unmarshal(r.Body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	if !s.hasConversation(id) {
		s.mu.Unlock()
		writeFailure(w, fmt.Sprintf("conversation %d not found", id))
		return
	}
	s.addMessage(id, converse.RoleUser, req.Content)
	m := s.addMessage(id, converse.RoleAssistant, strings.Join(s.reply(converse.ModeRAG, req.Content), ""))
	s.mu.Unlock()
	writeData(w, "", conversejson.FromMessage(m))
}

// handleStream persists the user message, streams the scripted reply one
// event per chunk, persists the reply and ends with the sentinel. A client
// that goes away mid-stream leaves only the user message behind.
func (s *Server) handleStream(mode converse.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := conversationID(r)
		if !ok {
			http.Error(w, "invalid conversation id", http.StatusBadRequest)
			return
		}
		message := r.URL.Query().Get("message")
		if r.Method == http.MethodPost {
			var req conversejson.StreamRequest
			if err := conversejson.Unmarshal(r.Body, &req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			message = req.Message
		}

		s.mu.Lock()
		if !s.hasConversation(id) {
			s.mu.Unlock()
			http.Error(w, fmt.Sprintf("conversation %d not found", id), http.StatusNotFound)
			return
		}
		s.addMessage(id, converse.RoleUser, message)
		chunks := s.reply(mode, message)
		s.mu.Unlock()

		w.Header().Set("Content-Type", sse.ContentType)
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		ctx := r.Context()
		for i, chunk := range chunks {
			if i > 0 && !s.pause(ctx) {
				return
			}
			if err := sse.WriteEvent(w, chunk); err != nil {
				return
			}
		}
		if s.hold != nil {
			select {
			case <-s.hold:
			case <-ctx.Done():
				return
			}
		}

		s.mu.Lock()
		s.addMessage(id, converse.RoleAssistant, strings.Join(chunks, ""))
		s.mu.Unlock()
		_ = sse.WriteDone(w)
	}
}

// pause waits out the chunk delay. It reports false when ctx ends first.
func (s *Server) pause(ctx context.Context) bool {
	if s.chunkDelay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(s.chunkDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeFailure(w, "file is required")
		return
	}
	defer file.Close()

	switch {
	case header.Filename == "":
		writeFailure(w, "filename must not be empty")
		return
	case !converse.SupportedDocument(header.Filename):
		writeFailure(w, "unsupported file type, supported: PDF, Word, Excel, PPT, TXT, Markdown")
		return
	}
	size, err := io.Copy(io.Discard, file)
	if err != nil {
		writeFailure(w, "upload failed: "+err.Error())
		return
	}

	s.mu.Lock()
	s.lastDoc++
	doc := converse.Document{
		ID:          s.lastDoc,
		Filename:    header.Filename,
		FileType:    converse.DocumentType(header.Filename),
		FileSize:    size,
		Description: r.FormValue("description"),
		CreatedAt:   s.timestamp(),
		CreatedBy:   "system",
	}
	s.documents = append(s.documents, doc)
	s.mu.Unlock()
	writeData(w, "document uploaded", conversejson.FromDocument(doc))
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	dtos := make([]conversejson.Document, len(s.documents))
	for i, d := range s.documents {
		dtos[i] = conversejson.FromDocument(d)
	}
	s.mu.Unlock()
	writeData(w, "", dtos)
}

func (s *Server) documentIndex(r *http.Request) (int64, int) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, -1
	}
	return id, slices.IndexFunc(s.documents, func(d converse.Document) bool { return d.ID == id })
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	id, i := s.documentIndex(r)
	var doc converse.Document
	if i >= 0 {
		doc = s.documents[i]
	}
	s.mu.Unlock()
	if i < 0 {
		writeFailure(w, fmt.Sprintf("document not found: %d", id))
		return
	}
	writeData(w, "", conversejson.FromDocument(doc))
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	id, i := s.documentIndex(r)
	if i >= 0 {
		s.documents = slices.Delete(s.documents, i, i+1)
	}
	s.mu.Unlock()
	if i < 0 {
		writeFailure(w, fmt.Sprintf("document not found: %d", id))
		return
	}
	writeData(w, "document deleted", "document deleted")
}
