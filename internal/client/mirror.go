// Package client implements the client-side protocol mirror: local
// reconstruction of lobby state from the server's envelope stream, including
// recap reassembly.
package client

import "yapnet/internal/protocol"

// Phase is the client-side connection state machine.
type Phase int

const (
	PhaseConnecting Phase = iota
	PhaseRegistered
	PhaseRecapping
	PhaseLive
)

// Player mirrors one known user's presence.
type Player struct {
	Username string
	Online   bool
}

// ChatLine is one rendered message in a chat's local transcript.
type ChatLine struct {
	Sender  string
	Content string
}

// Chat mirrors one room's permissions (as advertised by Setup) and the
// messages the client has been shown for it.
type Chat struct {
	Perms    protocol.Perms
	Messages []ChatLine
}

// recapProgress tracks an in-flight RecapHead/RecapTail sequence:
// chunksWant/chunksSeen count RecapTail envelopes themselves, while current
// is the cumulative count of recapped envelopes delivered so far — the same
// unit as RecapTail.Start, which each tail must match.
type recapProgress struct {
	chunksWant int
	chunksSeen int
	current    int
}

// Mirror is the client-local reconstruction of the lobby. It is not
// thread-safe; callers serialize access (the bubbletea model owns one).
type Mirror struct {
	Phase      Phase
	Me         string
	Token      string
	Players    map[string]*Player
	Chats      map[string]*Chat
	recap      *recapProgress
	OnNotice   func(string) // optional UI hook for system/error notices
	OnRecapEnd func()       // optional UI hook fired once when recap completes
}

// New returns an empty Mirror in PhaseConnecting.
func New() *Mirror {
	return &Mirror{
		Phase:   PhaseConnecting,
		Players: make(map[string]*Player),
		Chats:   make(map[string]*Chat),
	}
}

// Apply folds one incoming envelope into the mirror, in the order the
// connection delivered it.
func (m *Mirror) Apply(env protocol.Envelope) {
	switch body := env.Body.(type) {
	case *protocol.Welcome:
		m.Me = body.Username
		m.Token = body.Token
		m.Phase = PhaseRegistered
		m.ensurePlayer(body.Username).Online = true

	case *protocol.Setup:
		for _, cs := range body.Chats {
			m.Chats[cs.Name] = &Chat{Perms: cs.Perms}
		}

	case *protocol.PlayerJoined:
		if body.Username != m.Me {
			m.ensurePlayer(body.Username).Online = true
		}

	case *protocol.PlayerLeft:
		// Only flip presence; never re-insert or duplicate the player entry.
		if p, ok := m.Players[body.Username]; ok {
			p.Online = false
		}

	case *protocol.ChatSent:
		c := m.ensureChat(body.ChatTarget)
		c.Messages = append(c.Messages, ChatLine{Sender: body.ChatSender, Content: body.ChatContent})

	case *protocol.RecapHead:
		m.Phase = PhaseRecapping
		if body.Count == 0 {
			m.recap = nil
			m.Phase = PhaseLive
			m.fireRecapEnd()
			return
		}
		m.recap = &recapProgress{chunksWant: body.Count}

	case *protocol.RecapTail:
		if m.recap == nil {
			if m.OnNotice != nil {
				m.OnNotice("NoRecapHead: recap tail arrived with no recap in progress")
			}
			return
		}
		if body.Start != m.recap.current {
			if m.OnNotice != nil {
				m.OnNotice("recap tail out of order")
			}
		}
		for _, sub := range body.Msgs {
			m.Apply(sub)
		}
		m.recap.current += len(body.Msgs)
		m.recap.chunksSeen++
		if m.recap.chunksSeen >= m.recap.chunksWant {
			m.recap = nil
			m.Phase = PhaseLive
			m.fireRecapEnd()
		}

	case *protocol.Error:
		if m.OnNotice != nil {
			m.OnNotice(body.Kind + ": " + body.Info)
		}

	case *protocol.Echo:
		// no mirror state to update; purely a diagnostic round-trip

	default:
	}
}

func (m *Mirror) fireRecapEnd() {
	if m.OnRecapEnd != nil {
		m.OnRecapEnd()
	}
}

func (m *Mirror) ensurePlayer(username string) *Player {
	p, ok := m.Players[username]
	if !ok {
		p = &Player{Username: username}
		m.Players[username] = p
	}
	return p
}

func (m *Mirror) ensureChat(name string) *Chat {
	c, ok := m.Chats[name]
	if !ok {
		c = &Chat{}
		m.Chats[name] = c
	}
	return c
}
