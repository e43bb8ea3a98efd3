package client

import (
	"errors"

	"yapnet/internal/protocol"
)

// ErrUnregistered is returned by Send before the session has completed
// Hello/Back and received a Welcome.
var ErrUnregistered = errors.New("client: send requires a registered session")

// Session pairs a transport Conn with its Mirror, exposing register, login,
// and send as a small guarded API.
type Session struct {
	Conn   *Conn
	Mirror *Mirror
}

// NewSession wraps an already-dialed Conn with a fresh Mirror.
func NewSession(conn *Conn) *Session {
	return &Session{Conn: conn, Mirror: New()}
}

// Register sends Hello to claim a fresh username.
func (s *Session) Register(username string) error {
	return s.Conn.Send(&protocol.Hello{Username: username})
}

// Login sends Back to resume a prior session via its reconnection token.
func (s *Session) Login(token string) error {
	return s.Conn.Send(&protocol.Back{Token: token})
}

// Send forwards body once the session is past PhaseConnecting.
func (s *Session) Send(body protocol.Body) error {
	if s.Mirror.Phase == PhaseConnecting {
		return ErrUnregistered
	}
	return s.Conn.Send(body)
}

// Run drains the connection's envelope stream into the mirror until it
// closes, invoking onEnvelope (if non-nil) after each one is applied.
func (s *Session) Run(onEnvelope func(protocol.Envelope)) {
	for env := range s.Conn.Stream() {
		s.Mirror.Apply(env)
		if onEnvelope != nil {
			onEnvelope(env)
		}
	}
}
