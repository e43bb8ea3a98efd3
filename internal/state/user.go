package state

import "github.com/google/uuid"

// User is one registered identity for the lifetime of the server process.
// Username (the map key in Users) is the immutable session identity; UUID
// is the reconnection token.
type User struct {
	UUID   uuid.UUID
	Online bool
}

// Users is the engine's user table, keyed by username.
type Users map[string]*User
