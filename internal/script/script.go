// Package script defines the thin callback surface the state engine offers
// to an embedded scripting host. The host is an external collaborator,
// specified only by this interface — no interpreter is embedded here.
package script

import "yapnet/internal/protocol"

// PlayerInfo is the read-only snapshot of one player handed to a host.
type PlayerInfo struct {
	Username string
	Online   bool
}

// StateFrame is the engine's view of the world offered to a callback: a
// snapshot of players plus a mutable outbound list the host may append to.
// A plain record rather than a live handle, so the host never reaches back
// into live engine state.
type StateFrame struct {
	Players  map[string]PlayerInfo
	Outbound []protocol.Body
}

// Send queues an additional body for the engine to broadcast as part of the
// frame currently being built.
func (f *StateFrame) Send(body protocol.Body) {
	f.Outbound = append(f.Outbound, body)
}

// Host is the callback dispatcher a scripting runtime must implement.
// Script errors must not affect the triggering message's canonical
// response — callers are expected to recover/log around calls into a Host
// implementation backed by a real interpreter.
type Host interface {
	// OnChat is invoked before a ChatSent is appended to history. Any
	// bodies queued on frame.Outbound are merged into the same response
	// frame as additional broadcasts, ahead of the canonical ChatSent.
	OnChat(frame *StateFrame, chatTarget, sender, content string)
}

// NoopHost is the zero-configuration default when no scripting host is
// configured.
type NoopHost struct{}

func (NoopHost) OnChat(*StateFrame, string, string, string) {}
