package state

import (
	"testing"

	"yapnet/internal/protocol"
)

func newTestState() *State {
	s := New()
	s.Setup(map[string]protocol.Perms{
		"general": {{Kind: protocol.PermAny, RW: protocol.PermAll}},
		"staff":   {{Kind: protocol.PermGroup, RW: protocol.PermAll, Name: "mods"}},
	}, Groups{"mods": {"ada": true}})
	return s
}

func tagsOf(t *testing.T, view *ResponseView) []string {
	t.Helper()
	var out []string
	for _, r := range view.Iter() {
		out = append(out, r.Env.Body.Tag())
	}
	return out
}

func TestNewUserWelcomeThenJoin(t *testing.T) {
	s := newTestState()
	view, err := s.NewUser("ada")
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}

	resolved := view.Iter()
	if len(resolved) < 3 {
		t.Fatalf("expected at least Welcome, RecapHead, PlayerJoined; got %d actions", len(resolved))
	}
	if resolved[0].Env.Body.Tag() != protocol.TagWelcome {
		t.Errorf("first action = %q, want welcome", resolved[0].Env.Body.Tag())
	}
	if resolved[0].Action != ActionReturn {
		t.Errorf("welcome must be Return, got %v", resolved[0].Action)
	}
	last := resolved[len(resolved)-1]
	if last.Env.Body.Tag() != protocol.TagPlayerJoined {
		t.Errorf("last action = %q, want player_joined", last.Env.Body.Tag())
	}
	if last.Action != ActionBroadcastExclusive {
		t.Errorf("player_joined must be BroadcastExclusive, got %v", last.Action)
	}
}

func TestNewUserNameTaken(t *testing.T) {
	s := newTestState()
	if _, err := s.NewUser("ada"); err != nil {
		t.Fatalf("first NewUser: %v", err)
	}
	if _, err := s.NewUser("ada"); err == nil {
		t.Fatal("expected NameTaken error on duplicate username")
	}
}

func TestReauthRejectsOnlineUser(t *testing.T) {
	s := newTestState()
	s.NewUser("ada")
	token := s.Users["ada"].UUID

	if _, _, err := s.ReauthUser(token); err == nil {
		t.Fatal("expected AlreadyJoinedOrLeft for a still-online user")
	}
}

func TestReauthAfterLeave(t *testing.T) {
	s := newTestState()
	s.NewUser("ada")
	token := s.Users["ada"].UUID

	if _, err := s.PlayerLeave("ada"); err != nil {
		t.Fatalf("PlayerLeave: %v", err)
	}

	username, view, err := s.ReauthUser(token)
	if err != nil {
		t.Fatalf("ReauthUser: %v", err)
	}
	if username != "ada" {
		t.Errorf("username = %q, want ada", username)
	}
	if tags := tagsOf(t, view); tags[0] != protocol.TagWelcome {
		t.Errorf("first tag = %q, want welcome", tags[0])
	}
}

func TestReauthInvalidToken(t *testing.T) {
	s := newTestState()
	var bogus [16]byte
	if _, _, err := s.ReauthUser(bogus); err == nil {
		t.Fatal("expected InvalidToken for an unknown token")
	}
}

func TestChatSendDeniedWithoutWritePermission(t *testing.T) {
	s := newTestState()
	s.NewUser("eve") // not a mod

	view := s.Handle("eve", protocol.Envelope{Body: &protocol.ChatSend{ChatTarget: "staff", ChatContent: "hi"}})
	tags := tagsOf(t, view)
	if len(tags) != 1 || tags[0] != protocol.TagError {
		t.Fatalf("tags = %v, want single error", tags)
	}
}

func TestChatSendToUnknownChat(t *testing.T) {
	s := newTestState()
	s.NewUser("ada")

	view := s.Handle("ada", protocol.Envelope{Body: &protocol.ChatSend{ChatTarget: "nope", ChatContent: "hi"}})
	tags := tagsOf(t, view)
	if len(tags) != 1 || tags[0] != protocol.TagError {
		t.Fatalf("tags = %v, want single error", tags)
	}
}

func TestChatSendBroadcastsToChat(t *testing.T) {
	s := newTestState()
	s.NewUser("ada")

	view := s.Handle("ada", protocol.Envelope{Body: &protocol.ChatSend{ChatTarget: "general", ChatContent: "hi"}})
	resolved := view.Iter()
	if len(resolved) != 1 {
		t.Fatalf("expected one action, got %d", len(resolved))
	}
	if resolved[0].Action != ActionBroadcast || resolved[0].ChatKey != "general" {
		t.Errorf("resolved[0] = %+v, want Broadcast to general", resolved[0])
	}
	sent, ok := resolved[0].Env.Body.(*protocol.ChatSent)
	if !ok {
		t.Fatalf("body type = %T, want *protocol.ChatSent", resolved[0].Env.Body)
	}
	if sent.ChatSender != "ada" || sent.ChatContent != "hi" {
		t.Errorf("sent = %+v, unexpected fields", sent)
	}
}

func TestRecapChunkingBoundaries(t *testing.T) {
	// Setup always logs one globally-visible envelope first, so the visible
	// count recap chunks is len(messages)+1 throughout these cases.
	cases := []struct {
		name       string
		messages   int
		wantChunks int
	}{
		{"only the setup envelope", 0, 1},
		{"exactly fills one chunk", RecapChunkSize - 1, 1},
		{"spills into a second chunk", RecapChunkSize, 2},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := newTestState()
			for i := 0; i < c.messages; i++ {
				s.History().Append(&protocol.ChatSent{ChatSender: "sys", ChatTarget: "general", ChatContent: "x"})
			}

			view, err := s.NewUser("ada")
			if err != nil {
				t.Fatalf("NewUser: %v", err)
			}
			var head *protocol.RecapHead
			var tails int
			for _, r := range view.Iter() {
				switch b := r.Env.Body.(type) {
				case *protocol.RecapHead:
					head = b
				case *protocol.RecapTail:
					tails++
				}
			}
			if head == nil {
				t.Fatal("no RecapHead in response")
			}
			if head.Count != c.wantChunks {
				t.Errorf("RecapHead.Count = %d, want %d", head.Count, c.wantChunks)
			}
			if tails != c.wantChunks {
				t.Errorf("RecapTail count = %d, want %d", tails, c.wantChunks)
			}
		})
	}
}

func TestPlayerLeaveTwiceFails(t *testing.T) {
	s := newTestState()
	s.NewUser("ada")

	if _, err := s.PlayerLeave("ada"); err != nil {
		t.Fatalf("first leave: %v", err)
	}
	if _, err := s.PlayerLeave("ada"); err == nil {
		t.Fatal("second leave should fail: already offline")
	}
}

func TestHandlePreAuthBodyPanics(t *testing.T) {
	s := newTestState()
	defer func() {
		if recover() == nil {
			t.Fatal("expected Handle to panic on a pre-auth Hello body")
		}
	}()
	s.Handle("ada", protocol.Envelope{Body: &protocol.Hello{Username: "ada"}})
}

func TestHandleRejectsServerOriginatedBody(t *testing.T) {
	s := newTestState()
	s.NewUser("ada")

	view := s.Handle("ada", protocol.Envelope{Body: &protocol.PlayerJoined{Username: "ada"}})
	tags := tagsOf(t, view)
	if len(tags) != 1 || tags[0] != protocol.TagError {
		t.Fatalf("tags = %v, want single error", tags)
	}
}

func TestEchoIsReturnedVerbatim(t *testing.T) {
	s := newTestState()
	s.NewUser("ada")

	echo := &protocol.Echo{Opaque: []byte(`{"a":1}`)}
	view := s.Handle("ada", protocol.Envelope{Body: echo})
	resolved := view.Iter()
	if len(resolved) != 1 || resolved[0].Action != ActionReturn {
		t.Fatalf("resolved = %+v, want single Return", resolved)
	}
	if string(resolved[0].Env.Body.(*protocol.Echo).Opaque) != `{"a":1}` {
		t.Errorf("echo payload changed")
	}
}
