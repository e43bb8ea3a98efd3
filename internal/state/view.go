package state

import (
	"yapnet/internal/history"
	"yapnet/internal/protocol"
)

// Resolved is one (action, envelope) pair yielded by ResponseView iteration.
type Resolved struct {
	Action  ActionKind
	ChatKey string // set for Broadcast / BroadcastExclusive
	Env     protocol.Envelope
}

// ResponseView is the finalized, read-only rendering of a frame: the same
// action list with every reference resolved against either the merged
// history or the ephemeral list.
type ResponseView struct {
	hist       *history.History
	actions    []queuedAction
	ephemerals []protocol.Body
}

// commit merges frame's history into canonical and returns the resulting
// view. Only the engine calls this, from within its single-threaded
// dispatch loop, so the seq values recorded while building frame are still
// valid afterwards.
func commit(canonical *history.History, frame *ResponseFrame) *ResponseView {
	canonical.Merge(frame.frameHistory)
	return &ResponseView{hist: canonical, actions: frame.actions, ephemerals: frame.ephemerals}
}

// ReturnOnly builds a view carrying no history at all — used for auth
// failures and other purely ephemeral responses.
func ReturnOnly(body protocol.Body) *ResponseView {
	return &ResponseView{
		actions:    []queuedAction{{kind: ActionReturn, ephemeralIdx: 0}},
		ephemerals: []protocol.Body{body},
	}
}

// Empty is a view with no actions at all.
func Empty() *ResponseView { return &ResponseView{} }

// Iter resolves every queued action against history or the ephemeral list,
// in the order they were queued.
func (v *ResponseView) Iter() []Resolved {
	out := make([]Resolved, 0, len(v.actions))
	for _, a := range v.actions {
		if a.kind == ActionReturn {
			out = append(out, Resolved{Action: ActionReturn, Env: protocol.Envelope{Body: v.ephemerals[a.ephemeralIdx]}})
			continue
		}
		env, err := v.hist.Get(a.seq)
		if err != nil {
			continue // invariant violation; nothing sensible to send
		}
		out = append(out, Resolved{Action: a.kind, ChatKey: a.chatKey, Env: env})
	}
	return out
}
