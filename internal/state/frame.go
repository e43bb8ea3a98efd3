package state

import (
	"yapnet/internal/history"
	"yapnet/internal/protocol"
)

// ActionKind classifies how an outbound message should be routed.
type ActionKind int

const (
	ActionReturn ActionKind = iota
	ActionBroadcast
	ActionBroadcastExclusive
)

type queuedAction struct {
	kind         ActionKind
	seq          uint64
	ephemeralIdx int
	chatKey      string
}

// errorBody is satisfied by *protocol.ServerError and *protocol.ClientError.
type errorBody interface{ ToBody() *protocol.Error }

// ResponseFrame is the per-input builder scope for one dispatched message: a
// fresh history slice for logged outbound messages plus a flat action list
// referencing either a logged seq or an ephemeral index.
type ResponseFrame struct {
	frameHistory *history.History
	actions      []queuedAction
	ephemerals   []protocol.Body
}

// NewResponseFrame seeds frame_history at canonical's current NextSeq.
func NewResponseFrame(canonical *history.History) *ResponseFrame {
	return &ResponseFrame{frameHistory: canonical.SliceEmptyFrom()}
}

// Broadcast appends body to the frame's history and queues a Broadcast
// action scoped to chatKey (use "system:all" for every connected client). It
// returns the logged envelope so callers can record its seq elsewhere (e.g.
// a chat's own message index).
func (f *ResponseFrame) Broadcast(body protocol.Body, chatKey string) protocol.Envelope {
	env := f.frameHistory.Append(body)
	f.actions = append(f.actions, queuedAction{kind: ActionBroadcast, seq: env.Seq, chatKey: chatKey})
	return env
}

// BroadcastExclusive is Broadcast but excludes the message's originator at
// fan-out time.
func (f *ResponseFrame) BroadcastExclusive(body protocol.Body, chatKey string) protocol.Envelope {
	env := f.frameHistory.Append(body)
	f.actions = append(f.actions, queuedAction{kind: ActionBroadcastExclusive, seq: env.Seq, chatKey: chatKey})
	return env
}

// Return queues body to go back to the originating client only. It is not
// logged to history — it lives in the frame's ephemeral list.
func (f *ResponseFrame) Return(body protocol.Body) {
	idx := len(f.ephemerals)
	f.ephemerals = append(f.ephemerals, body)
	f.actions = append(f.actions, queuedAction{kind: ActionReturn, ephemeralIdx: idx})
}

// ReturnAll is a batch Return.
func (f *ResponseFrame) ReturnAll(bodies []protocol.Body) {
	for _, b := range bodies {
		f.Return(b)
	}
}

// Error queues err's wire representation as a Return.
func (f *ResponseFrame) Error(err errorBody) {
	f.Return(err.ToBody())
}
