// Package state implements Yapnet's server-side state engine: the single
// owner of History, Users, and Chats, and the enforcer of the
// chat/permission/recap rules.
package state

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"yapnet/internal/history"
	"yapnet/internal/protocol"
	"yapnet/internal/script"
)

// SystemAll is the audience key meaning "every connected client".
const SystemAll = "system:all"

// RecapChunkSize is the default number of envelopes per RecapTail chunk.
const RecapChunkSize = 64

// State owns the authoritative message log, the user table, and the chat
// registry for one running server. It has no internal locking: it is owned
// by exactly one task, and all access is sequentialized by that task's
// dispatch loop.
type State struct {
	history *history.History
	Users   Users
	Chats   Chats
	Groups  Groups
	Script  script.Host
	chunkSz int
}

// New returns an unconfigured State; call Setup before serving traffic.
func New() *State {
	return &State{
		history: history.New(),
		Users:   make(Users),
		Chats:   make(Chats),
		Groups:  make(Groups),
		Script:  script.NoopHost{},
		chunkSz: RecapChunkSize,
	}
}

// Setup populates the chat registry from config and logs one Setup
// envelope. Idempotent only if called once, at construction.
func (s *State) Setup(chats map[string]protocol.Perms, groups Groups) {
	for name, perms := range chats {
		s.Chats[name] = &Chat{Perms: perms}
	}
	if groups != nil {
		s.Groups = groups
	}
	setup := &protocol.Setup{}
	for name, chat := range s.Chats {
		setup.Chats = append(setup.Chats, protocol.ChatSetup{Name: name, Perms: chat.Perms})
	}
	s.history.Append(setup)
}

// History exposes the canonical log read-only, for display/diagnostics.
func (s *State) History() *history.History { return s.history }

// NewUser mints a fresh identity for username.
func (s *State) NewUser(username string) (*ResponseView, *protocol.ServerError) {
	if _, exists := s.Users[username]; exists {
		return nil, protocol.ErrNameTaken(username)
	}
	token := uuid.New()
	s.Users[username] = &User{UUID: token, Online: true}
	return s.successfulLogin(username, token), nil
}

// ReauthUser revives an offline user by their reconnection token.
func (s *State) ReauthUser(token uuid.UUID) (string, *ResponseView, *protocol.ServerError) {
	for username, user := range s.Users {
		if user.UUID != token {
			continue
		}
		if user.Online {
			return "", nil, protocol.ErrAlreadyJoinedOrLeft
		}
		user.Online = true
		return username, s.successfulLogin(username, token), nil
	}
	return "", nil, protocol.ErrInvalidToken
}

// PlayerLeave marks username offline and broadcasts PlayerLeft.
func (s *State) PlayerLeave(username string) (*ResponseView, *protocol.ServerError) {
	user, ok := s.Users[username]
	if !ok || !user.Online {
		return nil, protocol.ErrAlreadyJoinedOrLeft
	}
	user.Online = false
	frame := NewResponseFrame(s.history)
	frame.Broadcast(&protocol.PlayerLeft{Username: username}, SystemAll)
	return commit(s.history, frame), nil
}

// Handle dispatches an authenticated client's envelope. Hello/Back must
// never reach here — the connection layer
// handles them before authentication exists.
func (s *State) Handle(username string, env protocol.Envelope) *ResponseView {
	switch body := env.Body.(type) {
	case *protocol.ChatSend:
		return s.handleChat(username, body)
	case *protocol.Echo:
		frame := NewResponseFrame(s.history)
		frame.Return(body)
		return commit(s.history, frame)
	case *protocol.Hello, *protocol.Back:
		panic(fmt.Sprintf("state: %s reached Handle; must be intercepted before auth", env.Body.Tag()))
	case *protocol.Welcome, *protocol.PlayerJoined, *protocol.PlayerLeft,
		*protocol.ChatSent, *protocol.RecapHead, *protocol.RecapTail, *protocol.Setup:
		return ReturnOnly(protocol.ClientErrInvalidAction(env.Body.Tag(), "server-originated body sent by client").ToBody())
	default:
		slog.Warn("state: ignoring unknown body", "tag", env.Body.Tag())
		return Empty()
	}
}

func (s *State) handleChat(sender string, body *protocol.ChatSend) *ResponseView {
	chat, ok := s.Chats[body.ChatTarget]
	if !ok {
		return ReturnOnly(protocol.ClientErrInvalidChat(body.ChatTarget, "Not found").ToBody())
	}
	if !chat.CanWrite(sender, s.Groups) {
		return ReturnOnly(protocol.ClientErrNoPermission(body.ChatTarget, "write denied").ToBody())
	}

	frame := NewResponseFrame(s.history)

	sf := &script.StateFrame{Players: s.playerSnapshot()}
	func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("state: on_chat callback panicked", "error", r)
			}
		}()
		s.Script.OnChat(sf, body.ChatTarget, sender, body.ChatContent)
	}()
	for _, out := range sf.Outbound {
		env := frame.Broadcast(out, body.ChatTarget)
		chat.Messages = append(chat.Messages, env.Seq)
	}

	sent := &protocol.ChatSent{ChatSender: sender, ChatTarget: body.ChatTarget, ChatContent: body.ChatContent}
	env := frame.Broadcast(sent, body.ChatTarget)
	chat.Messages = append(chat.Messages, env.Seq)
	return commit(s.history, frame)
}

func (s *State) playerSnapshot() map[string]script.PlayerInfo {
	out := make(map[string]script.PlayerInfo, len(s.Users))
	for name, u := range s.Users {
		out[name] = script.PlayerInfo{Username: name, Online: u.Online}
	}
	return out
}

// successfulLogin builds the three-part response to a fresh login: Welcome
// (Return), the recap sequence, then a logged BroadcastExclusive
// PlayerJoined — in that order, so the joining client sees Welcome before
// any Recap*, and everyone else sees only PlayerJoined.
func (s *State) successfulLogin(username string, token uuid.UUID) *ResponseView {
	frame := NewResponseFrame(s.history)
	frame.Return(&protocol.Welcome{Username: username, Token: token.String()})
	s.appendRecap(frame, username)
	frame.BroadcastExclusive(&protocol.PlayerJoined{Username: username}, SystemAll)
	return commit(s.history, frame)
}

// ChatReadable reports whether username may read chat, for the connection
// layer's broadcast-audience resolution.
func (s *State) ChatReadable(chat, username string) bool {
	c, ok := s.Chats[chat]
	return ok && c.CanRead(username, s.Groups)
}

// canView is the visibility predicate used to filter recap history.
func (s *State) canView(env protocol.Envelope, username string) bool {
	return protocol.CanView(env.Body, username, s.ChatReadable)
}

// appendRecap queues RecapHead then RecapTail chunks for username onto
// frame. Recap messages are Return-only and never logged.
func (s *State) appendRecap(frame *ResponseFrame, username string) {
	var visible []protocol.Envelope
	for _, env := range s.history.Iter() {
		if s.canView(env, username) {
			visible = append(visible, env)
		}
	}

	count := (len(visible) + s.chunkSz - 1) / s.chunkSz
	frame.Return(&protocol.RecapHead{Count: count, ChunkSz: s.chunkSz})

	for i := 0; i < len(visible); i += s.chunkSz {
		end := i + s.chunkSz
		if end > len(visible) {
			end = len(visible)
		}
		chunk := make([]protocol.Envelope, end-i)
		copy(chunk, visible[i:end])
		frame.Return(&protocol.RecapTail{Start: i, Msgs: chunk})
	}
}
