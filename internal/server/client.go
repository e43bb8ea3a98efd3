package server

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"yapnet/internal/protocol"
)

// Per-connection timing.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// spawnClient launches the read and write pumps for one accepted connection.
// It never touches Server state directly — every observation crosses
// toServer, errs, or removeClients, so State stays single-owner.
func spawnClient(id uint64, conn *websocket.Conn, outbound chan []byte, toServer chan<- inbound, errs chan<- clientError, removeClients chan<- closeConnection) {
	go writePump(id, conn, outbound)
	go readPump(id, conn, toServer, errs, removeClients)
}

// readPump decodes one JSON envelope per text frame and forwards it to the
// server task. A malformed frame gets an Error reply without disconnecting
// the client; a closed or broken connection unregisters it.
func readPump(id uint64, conn *websocket.Conn, toServer chan<- inbound, errs chan<- clientError, removeClients chan<- closeConnection) {
	defer func() {
		removeClients <- closeConnection{clientID: id, reason: "read closed"}
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			sendErrorFrame(errs, id, &protocol.Error{Kind: "InvalidMessage", Info: err.Error()})
			continue
		}
		env.Seq = id
		toServer <- inbound{clientID: id, env: env}
	}
}

// writePump drains outbound and writes it to the socket, plus a periodic
// ping to keep the connection alive. It exits (and the connection closes)
// when outbound is closed by the server task's fan-out logic.
func writePump(id uint64, conn *websocket.Conn, outbound chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-outbound:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendErrorFrame hands a malformed-frame reply to the server task, which is
// the only goroutine allowed to write to or close a client's outbound
// channel. Non-blocking: a backed-up server task drops the reply rather than
// stalling the reader.
func sendErrorFrame(errs chan<- clientError, id uint64, e *protocol.Error) {
	select {
	case errs <- clientError{clientID: id, body: e}:
	default:
	}
}
