package client

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"yapnet/internal/protocol"
)

// disconnectedError is returned by Recv once the connection closes.
type disconnectedError struct{ reason string }

func (e *disconnectedError) Error() string { return "client: disconnected: " + e.reason }

// Conn wraps a websocket connection with the envelope-level read/write API
// used by Yapnet clients.
type Conn struct {
	ws *websocket.Conn
}

// Dial opens a websocket connection to addr, used as-is: it must be the full
// URL of the server's /ws endpoint.
func Dial(addr string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("client: dial: %w", err)
	}
	return &Conn{ws: ws}, nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.ws.Close() }

// Send marshals body as an envelope and writes it as one text frame. The seq
// field is ignored by the server for client-originated frames.
func (c *Conn) Send(body protocol.Body) error {
	data, err := json.Marshal(protocol.Envelope{Body: body})
	if err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Recv blocks for the next envelope. It returns a *disconnectedError once
// the connection is closed.
func (c *Conn) Recv() (protocol.Envelope, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return protocol.Envelope{}, &disconnectedError{reason: err.Error()}
	}
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return protocol.Envelope{}, fmt.Errorf("client: decode envelope: %w", err)
	}
	return env, nil
}

// Stream launches a goroutine that pushes every received envelope onto the
// returned channel, closing it when the connection drops.
func (c *Conn) Stream() <-chan protocol.Envelope {
	out := make(chan protocol.Envelope, 64)
	go func() {
		defer close(out)
		for {
			env, err := c.Recv()
			if err != nil {
				var de *disconnectedError
				if errors.As(err, &de) {
					return
				}
				continue
			}
			out <- env
		}
	}()
	return out
}
