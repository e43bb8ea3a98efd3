package server

import (
	"encoding/json"

	"yapnet/internal/protocol"
	"yapnet/internal/state"
)

// sendView fans a resolved ResponseView out to the client table. A client
// whose outbound buffer is full is dropped rather than letting a slow reader
// block the server task.
func (s *Server) sendView(originID uint64, view *state.ResponseView) {
	if view == nil {
		return
	}
	for _, r := range view.Iter() {
		data, err := json.Marshal(r.Env)
		if err != nil {
			s.log.Error("server: failed to encode outbound envelope", "tag", r.Env.Body.Tag(), "error", err)
			// One fallback attempt to the action's intended recipients before
			// giving up on this action entirely.
			fallback, ferr := json.Marshal(protocol.Envelope{Body: &protocol.Error{Kind: "SerializationError", Info: err.Error()}})
			if ferr != nil {
				continue
			}
			data = fallback
		}

		switch r.Action {
		case state.ActionReturn:
			s.deliver(originID, data)

		case state.ActionBroadcast:
			for id := range s.audience(r.ChatKey) {
				s.deliver(id, data)
			}

		case state.ActionBroadcastExclusive:
			for id := range s.audience(r.ChatKey) {
				if id == originID {
					continue
				}
				s.deliver(id, data)
			}
		}
	}
}

// audience resolves a chat key to the set of connection IDs whose logged-in
// user may read it. SystemAll means every currently-authenticated client.
func (s *Server) audience(chatKey string) map[uint64]struct{} {
	out := make(map[uint64]struct{}, len(s.usersByConn))
	for connID, username := range s.usersByConn {
		if chatKey == state.SystemAll || s.state.ChatReadable(chatKey, username) {
			out[connID] = struct{}{}
		}
	}
	return out
}

// sendErrorTo marshals a malformed-frame reply and hands it to deliver. It
// only ever runs on the server task, the sole owner of outbound channels, so
// it can never race deliver's drop-and-close path.
func (s *Server) sendErrorTo(connID uint64, e *protocol.Error) {
	data, err := json.Marshal(protocol.Envelope{Body: e})
	if err != nil {
		return
	}
	s.deliver(connID, data)
}

// deliver does a non-blocking send to one client's outbound channel, queuing
// its removal if the channel is full or already gone.
func (s *Server) deliver(connID uint64, data []byte) {
	ch, ok := s.clients[connID]
	if !ok {
		return
	}
	select {
	case ch.outbound <- data:
	default:
		s.log.Warn("server: dropping slow client", "id", connID)
		delete(s.clients, connID)
		close(ch.outbound)
		select {
		case s.removeConn <- closeConnection{clientID: connID, reason: "slow consumer"}:
		default:
		}
	}
}
