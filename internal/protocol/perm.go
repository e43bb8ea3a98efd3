package protocol

import (
	"encoding/json"
	"fmt"
)

// rw bit flags.
const (
	PermRead  uint8 = 1
	PermWrite uint8 = 2
	PermAll   uint8 = PermRead | PermWrite
)

// PermKind distinguishes the three clause shapes a Perm can take.
type PermKind int

const (
	PermUser PermKind = iota
	PermGroup
	PermAny
)

// Perm is one permission clause: grants RW bits to a specific user, a named
// group, or everyone. Perms for a chat are the OR of every matching clause.
type Perm struct {
	Kind PermKind
	RW   uint8
	Name string // unused when Kind == PermAny
}

// Perms is a list of Perm clauses, as attached to a Chat.
type Perms []Perm

// Matches reports whether this clause applies to username (optionally a
// member of groups).
func (p Perm) Matches(username string, groups map[string]bool) bool {
	switch p.Kind {
	case PermAny:
		return true
	case PermUser:
		return p.Name == username
	case PermGroup:
		return groups[p.Name]
	default:
		return false
	}
}

// Effective ORs together the RW bits of every clause matching username.
func (ps Perms) Effective(username string, groups map[string]bool) uint8 {
	var rw uint8
	for _, p := range ps {
		if p.Matches(username, groups) {
			rw |= p.RW
		}
	}
	return rw
}

// ChatSetup is the {name, perms} pair carried by Setup.
type ChatSetup struct {
	Name  string `json:"name"`
	Perms Perms  `json:"perms"`
}

// permWire is the tagged-JSON shape: {"user"|"group"|"any": {"rw":…, "name"?:…}}.
type permWire struct {
	RW   uint8  `json:"rw"`
	Name string `json:"name,omitempty"`
}

func (p Perm) MarshalJSON() ([]byte, error) {
	body := permWire{RW: p.RW, Name: p.Name}
	var key string
	switch p.Kind {
	case PermUser:
		key = "user"
	case PermGroup:
		key = "group"
	case PermAny:
		key = "any"
	default:
		return nil, fmt.Errorf("protocol: invalid perm kind %d", p.Kind)
	}
	return json.Marshal(map[string]permWire{key: body})
}

func (p *Perm) UnmarshalJSON(raw []byte) error {
	var m map[string]permWire
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return fmt.Errorf("protocol: perm object must have exactly one key, got %d", len(m))
	}
	for key, body := range m {
		switch key {
		case "user":
			p.Kind = PermUser
		case "group":
			p.Kind = PermGroup
		case "any":
			p.Kind = PermAny
		default:
			return fmt.Errorf("protocol: unknown perm kind %q", key)
		}
		p.RW = body.RW
		p.Name = body.Name
	}
	return nil
}
