package mock

import (
	"context"

	"github.com/fwojciec/converse"
)

// Interface compliance checks.
var (
	_ converse.Transport         = (*Transport)(nil)
	_ converse.TransportSelector = (*TransportSelector)(nil)
	_ converse.Dispatcher        = (*Dispatcher)(nil)
)

// Transport is a test double for converse.Transport.
// Set StreamFn before calling Stream.
type Transport struct {
	StreamFn func(ctx context.Context, req converse.StreamRequest, onDelta func(string)) error
}

// Stream delegates to StreamFn.
func (t *Transport) Stream(ctx context.Context, req converse.StreamRequest, onDelta func(string)) error {
	return t.StreamFn(ctx, req, onDelta)
}

// TransportSelector is a test double for converse.TransportSelector.
type TransportSelector struct {
	TransportFn func(mode converse.Mode) (converse.Transport, error)
}

// Transport delegates to TransportFn.
func (s *TransportSelector) Transport(mode converse.Mode) (converse.Transport, error) {
	return s.TransportFn(mode)
}

// Dispatcher is a test double for converse.Dispatcher. It runs fn inline
// when DispatchFn is not set.
type Dispatcher struct {
	DispatchFn func(fn func())
}

// Dispatch delegates to DispatchFn.
func (d *Dispatcher) Dispatch(fn func()) {
	if d.DispatchFn == nil {
		fn()
		return
	}
	d.DispatchFn(fn)
}
