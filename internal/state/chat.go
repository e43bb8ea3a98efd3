package state

import "yapnet/internal/protocol"

// Chat is a named room: a set of permission clauses plus the seq numbers
// (back-references into History, never live copies) of every message sent
// there.
type Chat struct {
	Perms    protocol.Perms
	Messages []uint64
}

// Chats is the engine's chat registry, keyed by chat name.
type Chats map[string]*Chat

// Groups is the membership registry backing Perm::Group clauses, keyed by
// group name.
type Groups map[string]map[string]bool

// membership flattens the registry into the per-group "is username a
// member" map Perm.Matches expects.
func membership(username string, groups Groups) map[string]bool {
	m := make(map[string]bool, len(groups))
	for name, members := range groups {
		m[name] = members[username]
	}
	return m
}

// CanRead reports whether username has the read bit on this chat.
func (c *Chat) CanRead(username string, groups Groups) bool {
	return c.Perms.Effective(username, membership(username, groups))&protocol.PermRead != 0
}

// CanWrite reports whether username has the write bit on this chat.
func (c *Chat) CanWrite(username string, groups Groups) bool {
	return c.Perms.Effective(username, membership(username, groups))&protocol.PermWrite != 0
}
