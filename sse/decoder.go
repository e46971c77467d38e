package sse

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// Event is one dispatched event-stream message.
type Event struct {
	Type string // "message" unless the stream named it
	Data string
	ID   string // last event id seen on the stream
}

// Decoder reads events in the browser event-stream format: fields
// "event", "data", "id" and "retry", comment lines starting with ':', an
// optional single space after the colon, CR, LF or CRLF line endings, and
// dispatch on a blank line.
type Decoder struct {
	r       *bufio.Reader
	started bool
	afterCR bool
	lastID  string
	retry   time.Duration
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Retry returns the reconnection delay most recently announced by the
// stream, or zero.
func (d *Decoder) Retry() time.Duration { return d.retry }

// Decode returns the next event. At end of input it returns io.EOF; an event
// that was not terminated by a blank line is discarded.
func (d *Decoder) Decode() (Event, error) {
	var (
		eventType string
		data      strings.Builder
	)
	for {
		line, err := d.readLine()
		if err != nil {
			return Event{}, err
		}
		if line == "" {
			if data.Len() == 0 {
				eventType = ""
				continue
			}
			ev := Event{
				Type: eventType,
				Data: strings.TrimSuffix(data.String(), "\n"),
				ID:   d.lastID,
			}
			if ev.Type == "" {
				ev.Type = "message"
			}
			return ev, nil
		}
		if line[0] == ':' {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			eventType = value
		case "data":
			data.WriteString(value)
			data.WriteByte('\n')
		case "id":
			if !strings.ContainsRune(value, 0) {
				d.lastID = value
			}
		case "retry":
			if ms, err := strconv.ParseUint(value, 10, 63); err == nil {
				d.retry = time.Duration(ms) * time.Millisecond
			}
		}
	}
}

// readLine returns the next line without its terminator. A final line
// without a terminator is reported as io.EOF, because it cannot complete an
// event.
func (d *Decoder) readLine() (string, error) {
	var sb strings.Builder
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return "", err
		}
		if d.afterCR {
			d.afterCR = false
			if b == '\n' {
				continue
			}
		}
		switch b {
		case '\n':
			return d.strip(sb.String()), nil
		case '\r':
			// The LF of a CRLF pair is dropped by the next read.
			d.afterCR = true
			return d.strip(sb.String()), nil
		default:
			sb.WriteByte(b)
		}
	}
}

// strip removes a byte order mark from the first line.
func (d *Decoder) strip(line string) string {
	if !d.started {
		d.started = true
		return strings.TrimPrefix(line, "\uFEFF")
	}
	return line
}
