package converse

import "context"

// Epoch marks which conversation and which request were authoritative when
// an asynchronous operation was launched.
type Epoch struct {
	Conversation ConversationID
	Generation   uint64
}

// Guard decides whether asynchronous results may still touch view state.
// Every user-driven transition mints a new Epoch; a callback compares the
// Epoch it captured at launch with Current before mutating anything and
// silently drops its result on mismatch.
//
// Guard also owns the resources tied to the live epoch: the stream session
// and the in-flight message fetch. Guard is not safe for concurrent use; it
// lives on the Dispatcher goroutine with the rest of the view state.
type Guard struct {
	conversation ConversationID
	generation   uint64
	session      *StreamSession
	fetchCancel  context.CancelFunc
}

// Conversation returns the live conversation id.
func (g *Guard) Conversation() ConversationID { return g.conversation }

// Epoch returns the live epoch without minting a new one.
func (g *Guard) Epoch() Epoch {
	return Epoch{Conversation: g.conversation, Generation: g.generation}
}

// Switch makes id the live conversation. It cancels the live session and
// aborts the in-flight fetch before minting the new epoch.
func (g *Guard) Switch(id ConversationID) Epoch {
	g.cancelSession()
	g.cancelFetch()
	g.conversation = id
	return g.mint()
}

// Mint starts a new request on the live conversation, superseding the live
// session.
func (g *Guard) Mint() Epoch {
	g.cancelSession()
	return g.mint()
}

// Current reports whether e is still the live epoch.
func (g *Guard) Current(e Epoch) bool {
	return e.Conversation == g.conversation && e.Generation == g.generation
}

// Attach records s as the live session for e. A stale epoch cancels s
// instead.
func (g *Guard) Attach(e Epoch, s *StreamSession) {
	if !g.Current(e) {
		s.Cancel()
		return
	}
	g.cancelSession()
	g.session = s
}

// Session returns the live session, if any.
func (g *Guard) Session() *StreamSession { return g.session }

// Detach forgets s if it is the live session. It does not cancel it.
func (g *Guard) Detach(s *StreamSession) {
	if g.session == s {
		g.session = nil
	}
}

// TrackFetch records the cancel func of the in-flight message fetch,
// aborting any previous one.
func (g *Guard) TrackFetch(cancel context.CancelFunc) {
	g.cancelFetch()
	g.fetchCancel = cancel
}

// Release cancels everything the guard owns and invalidates all epochs.
func (g *Guard) Release() {
	g.cancelSession()
	g.cancelFetch()
	g.mint()
}

func (g *Guard) mint() Epoch {
	g.generation++
	return g.Epoch()
}

func (g *Guard) cancelSession() {
	if g.session != nil {
		g.session.Cancel()
		g.session = nil
	}
}

func (g *Guard) cancelFetch() {
	if g.fetchCancel != nil {
		g.fetchCancel()
		g.fetchCancel = nil
	}
}
