package converse

import "context"

// StreamRequest asks the service to stream a reply to Message.
type StreamRequest struct {
	ConversationID ConversationID `validate:"gt=0"`
	Message        string         `validate:"required"`
	Mode           Mode           `validate:"required,oneof=normal rag agent"`
}

// Transport opens one streaming reply. Stream blocks until the stream ends
// and calls onDelta synchronously, in arrival order, once per delta.
//
// Stream returns nil when the stream completes and the context's error when
// ctx is cancelled. Any other error is a transport failure. Implementations
// differ in how they receive frames (push subscription or pulled response
// body) but not in this contract.
type Transport interface {
	Stream(ctx context.Context, req StreamRequest, onDelta func(string)) error
}

// TransportSelector picks the transport that serves a mode.
type TransportSelector interface {
	Transport(mode Mode) (Transport, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req StreamRequest, onDelta func(string)) error

// Stream calls f.
func (f TransportFunc) Stream(ctx context.Context, req StreamRequest, onDelta func(string)) error {
	return f(ctx, req, onDelta)
}

// Transports is a TransportSelector backed by a map.
type Transports map[Mode]Transport

// Transport returns the transport registered for mode.
func (t Transports) Transport(mode Mode) (Transport, error) {
	tr, ok := t[mode]
	if !ok || tr == nil {
		return nil, ErrUnsupportedMode
	}
	return tr, nil
}
