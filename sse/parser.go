// Package sse implements the server-sent events framing used by the chat
// service's streaming endpoints.
//
// Parser handles the pulled variant, where the client reads a response body
// chunk by chunk and frames it itself. Decoder and EventSource handle the
// pushed variant, which follows the browser event-stream format.
package sse

import (
	"bytes"
	"strings"
)

// Sentinel is the payload that ends a stream.
const Sentinel = "[DONE]"

var frameSep = []byte("\n\n")

const dataPrefix = "data: "

// Parser turns an arbitrarily chunked byte stream into data payloads.
//
// Frames are separated by a blank line ("\n\n"). Within a frame only lines
// starting with "data: " carry payload; several such lines are joined with
// "\n". A data line holding the sentinel ends the stream: nothing from its
// frame is delivered and everything after it is discarded. Framing works on bytes, so multi-byte characters
// split across chunks are delivered whole.
type Parser struct {
	onData func(string)
	buf    []byte
	done   bool
}

// NewParser returns a Parser that calls onData once per non-sentinel frame
// that carries at least one data line, synchronously and in arrival order.
func NewParser(onData func(string)) *Parser {
	return &Parser{onData: onData}
}

// Feed appends chunk to the buffer and emits every complete frame. It
// returns false once the sentinel has been seen; later chunks are ignored.
func (p *Parser) Feed(chunk []byte) bool {
	if p.done {
		return false
	}
	p.buf = append(p.buf, chunk...)
	for !p.done {
		i := bytes.Index(p.buf, frameSep)
		if i < 0 {
			break
		}
		frame := string(p.buf[:i])
		p.buf = p.buf[i+len(frameSep):]
		p.frame(frame)
	}
	if p.done {
		p.buf = nil
	}
	return !p.done
}

// Close signals end of input. Leftover bytes are treated as a final frame,
// sentinel included. Close reports whether the sentinel was seen.
func (p *Parser) Close() bool {
	if !p.done && len(p.buf) > 0 {
		frame := string(p.buf)
		p.buf = nil
		p.frame(frame)
	}
	return p.done
}

// Done reports whether the sentinel has been seen.
func (p *Parser) Done() bool { return p.done }

func (p *Parser) frame(frame string) {
	var data []string
	for _, line := range strings.Split(frame, "\n") {
		line = strings.TrimSuffix(line, "\r")
		payload, ok := strings.CutPrefix(line, dataPrefix)
		if !ok {
			continue
		}
		if IsSentinel(payload) {
			p.done = true
			return
		}
		data = append(data, payload)
	}
	if len(data) == 0 || p.onData == nil {
		return
	}
	p.onData(strings.Join(data, "\n"))
}

// IsSentinel reports whether a data payload ends the stream. Surrounding
// whitespace is ignored.
func IsSentinel(payload string) bool {
	return strings.TrimSpace(payload) == Sentinel
}
