// Package server implements the connection and dispatch layer: one server
// task multiplexing many per-client tasks over WebSocket, communicating
// exclusively through bounded channels so the State in internal/state never
// needs a lock.
package server

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"yapnet/internal/protocol"
	"yapnet/internal/state"
)

const (
	inboundCap      = 128
	controlCap      = 8
	perClientOutCap = 8
)

type inbound struct {
	clientID uint64
	env      protocol.Envelope
}

type closeConnection struct {
	clientID uint64
	reason   string
}

// clientError is a malformed-frame reply a client goroutine wants sent back
// to its own connection. It is routed through the server task rather than
// written straight to the client's outbound channel, since that channel can
// be closed at any time by the server task dropping a slow client — only the
// owning goroutine may ever write to or close it.
type clientError struct {
	clientID uint64
	body     *protocol.Error
}

type clientHandle struct {
	id       uint64
	outbound chan []byte
}

// Server owns the State and the client table. It must run on exactly one
// goroutine (Run); every other goroutine in the process talks to it only
// through HandleConn/messages/removeConn.
type Server struct {
	state *state.State
	log   *slog.Logger

	addConn    chan *websocket.Conn
	removeConn chan closeConnection
	messages   chan inbound
	errs       chan clientError

	clients     map[uint64]*clientHandle
	usersByConn map[uint64]string
	nextID      uint64
}

// New builds a Server around an already-configured State.
func New(st *state.State, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		state:       st,
		log:         log,
		addConn:     make(chan *websocket.Conn, controlCap),
		removeConn:  make(chan closeConnection, controlCap),
		messages:    make(chan inbound, inboundCap),
		errs:        make(chan clientError, controlCap),
		clients:     make(map[uint64]*clientHandle),
		usersByConn: make(map[uint64]string),
	}
}

// HandleConn registers a freshly upgraded WebSocket connection. Safe to
// call from any goroutine (e.g. an HTTP handler).
func (s *Server) HandleConn(conn *websocket.Conn) {
	s.addConn <- conn
}

// Run is the server task's select loop. It must be launched once, and owns
// every mutation of State and the client table.
func (s *Server) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-s.addConn:
			id := s.nextID
			s.nextID++
			ch := &clientHandle{id: id, outbound: make(chan []byte, perClientOutCap)}
			s.clients[id] = ch
			spawnClient(id, conn, ch.outbound, s.messages, s.errs, s.removeConn)
			s.log.Info("client connected", "id", id)

		case closeMsg := <-s.removeConn:
			delete(s.clients, closeMsg.clientID)
			if username, ok := s.usersByConn[closeMsg.clientID]; ok {
				delete(s.usersByConn, closeMsg.clientID)
				if view, err := s.state.PlayerLeave(username); err == nil {
					s.sendView(closeMsg.clientID, view)
				}
			}
			s.log.Info("client disconnected", "id", closeMsg.clientID, "reason", closeMsg.reason)

		case msg := <-s.messages:
			view := s.dispatch(msg.clientID, msg.env)
			s.sendView(msg.clientID, view)

		case ce := <-s.errs:
			s.sendErrorTo(ce.clientID, ce.body)
		}
	}
}

// dispatch handles Hello/Back itself, before any username is associated
// with the connection; everything else is auth-gated through State.Handle.
func (s *Server) dispatch(clientID uint64, env protocol.Envelope) *state.ResponseView {
	switch body := env.Body.(type) {
	case *protocol.Hello:
		view, err := s.state.NewUser(body.Username)
		if err != nil {
			return state.ReturnOnly(err.ToBody())
		}
		s.usersByConn[clientID] = body.Username
		return view

	case *protocol.Back:
		token, perr := uuid.Parse(body.Token)
		if perr != nil {
			return state.ReturnOnly(protocol.ErrInvalidToken.ToBody())
		}
		username, view, err := s.state.ReauthUser(token)
		if err != nil {
			return state.ReturnOnly(err.ToBody())
		}
		s.usersByConn[clientID] = username
		return view

	default:
		if username, ok := s.usersByConn[clientID]; ok {
			return s.state.Handle(username, env)
		}
		return state.ReturnOnly(protocol.ClientErrNoLogin().ToBody())
	}
}
