package client

import (
	"testing"

	"yapnet/internal/protocol"
)

func TestSessionSendBeforeRegistrationFails(t *testing.T) {
	s := &Session{Conn: &Conn{}, Mirror: New()}
	if err := s.Send(&protocol.ChatSend{ChatTarget: "general", ChatContent: "hi"}); err != ErrUnregistered {
		t.Errorf("err = %v, want ErrUnregistered", err)
	}
}

