// Package protocol defines Yapnet's wire format: a numbered envelope
// carrying one of a closed set of tagged message bodies.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Body is implemented by every message body that can ride inside an
// Envelope. The three accessors plus IsGlobal are how visibility is
// derived — deliberately flat rather than an inheritance hierarchy.
type Body interface {
	// Tag is the short wire tag for this body, e.g. "chat".
	Tag() string
	// IsGlobal reports whether every connected client may see this body.
	IsGlobal() bool
	// Subject returns the username this body is "about", if any.
	Subject() (string, bool)
	// Object returns the username this body targets, if any.
	Object() (string, bool)
	// Chat returns the chat name this body is scoped to, if any.
	Chat() (string, bool)
}

// Envelope is the top-level wire frame: {seq, msg_type, data}.
type Envelope struct {
	Seq  uint64
	Body Body
}

type envelopeWire struct {
	Seq     uint64          `json:"seq"`
	MsgType string          `json:"msg_type"`
	Data    json.RawMessage `json:"data"`
}

// bodyRegistry maps wire tags to zero-value constructors, so
// Envelope.UnmarshalJSON can build the right concrete Body for a given
// msg_type without a type switch.
var bodyRegistry = map[string]func() Body{
	TagHello:        func() Body { return &Hello{} },
	TagBack:         func() Body { return &Back{} },
	TagWelcome:      func() Body { return &Welcome{} },
	TagSetup:        func() Body { return &Setup{} },
	TagPlayerJoined: func() Body { return &PlayerJoined{} },
	TagPlayerLeft:   func() Body { return &PlayerLeft{} },
	TagChatSend:     func() Body { return &ChatSend{} },
	TagChatSent:     func() Body { return &ChatSent{} },
	TagRecapHead:    func() Body { return &RecapHead{} },
	TagRecapTail:    func() Body { return &RecapTail{} },
	TagError:        func() Body { return &Error{} },
	TagEcho:         func() Body { return &Echo{} },
}

// MarshalJSON renders the envelope as {"seq":…, "msg_type":"…", "data":{…}}.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Body == nil {
		return nil, fmt.Errorf("protocol: envelope has no body")
	}
	data, err := json.Marshal(e.Body)
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal body %q: %w", e.Body.Tag(), err)
	}
	return json.Marshal(envelopeWire{Seq: e.Seq, MsgType: e.Body.Tag(), Data: data})
}

// UnmarshalJSON decodes the envelope, dispatching on msg_type. Unknown tags
// are reported as a distinct error so callers can log-and-ignore a forward
// compatible body rather than failing the whole decode.
func (e *Envelope) UnmarshalJSON(raw []byte) error {
	var wire envelopeWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return err
	}
	ctor, ok := bodyRegistry[wire.MsgType]
	if !ok {
		return &UnknownTagError{Tag: wire.MsgType}
	}
	body := ctor()
	if len(wire.Data) > 0 {
		if err := json.Unmarshal(wire.Data, body); err != nil {
			return fmt.Errorf("protocol: unmarshal %q body: %w", wire.MsgType, err)
		}
	}
	e.Seq = wire.Seq
	e.Body = body
	return nil
}

// UnknownTagError is returned by Envelope.UnmarshalJSON for a msg_type not
// in the registry — forward-compatible bodies should be logged and ignored,
// never treated as a hard parse failure of the transport.
type UnknownTagError struct{ Tag string }

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("protocol: unknown msg_type %q", e.Tag)
}

// CanView is the visibility predicate: an envelope is visible to username
// iff its body is global, the body's subject is username, or the body is
// scoped to a chat the given read-check allows.
func CanView(body Body, username string, chatReadable func(chat, username string) bool) bool {
	if body.IsGlobal() {
		return true
	}
	if subj, ok := body.Subject(); ok && subj == username {
		return true
	}
	if chat, ok := body.Chat(); ok {
		return chatReadable(chat, username)
	}
	return false
}
