// Package json implements the wire format of the chat service: every REST
// response is a {code, message, data, timestamp} envelope around camelCase
// DTOs, and timestamps come without a zone.
package json

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fwojciec/converse"
)

// CodeOK is the envelope code of a successful response.
const CodeOK = 200

// CodeError is the envelope code the service uses for application failures.
const CodeError = 500

// Envelope is the response wrapper of every REST endpoint. Timestamp is in
// milliseconds since the Unix epoch.
type Envelope[T any] struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      T      `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// Decode reads an envelope from r and returns its data. A code other than
// CodeOK becomes a *converse.APIError. A null data field yields the zero
// value of T.
func Decode[T any](r io.Reader) (T, error) {
	var zero T
	var env Envelope[json.RawMessage]
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return zero, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Code != CodeOK {
		return zero, &converse.APIError{Code: env.Code, Message: env.Message}
	}
	raw := bytes.TrimSpace(env.Data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return zero, nil
	}
	var data T
	if err := json.Unmarshal(raw, &data); err != nil {
		return zero, fmt.Errorf("decode data: %w", err)
	}
	return data, nil
}

// Encode writes a successful envelope carrying data.
func Encode[T any](w io.Writer, message string, data T) error {
	if message == "" {
		message = "ok"
	}
	return json.NewEncoder(w).Encode(Envelope[T]{
		Code:      CodeOK,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

// EncodeError writes a failed envelope with null data.
func EncodeError(w io.Writer, code int, message string) error {
	return json.NewEncoder(w).Encode(Envelope[*struct{}]{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	})
}

// Marshal encodes v as a request body.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes a request body into v.
func Unmarshal(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
