package sse

import (
	"io"
	"net/http"
	"strings"
)

// WriteEvent writes data as one event, a "data: " line per line of data
// followed by a blank line, and flushes w when it supports flushing.
func WriteEvent(w io.Writer, data string) error {
	var sb strings.Builder
	data = strings.ReplaceAll(data, "\r\n", "\n")
	for _, line := range strings.Split(data, "\n") {
		sb.WriteString(dataPrefix)
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// WriteDone writes the sentinel event.
func WriteDone(w io.Writer) error {
	return WriteEvent(w, Sentinel)
}
