package domain

import (
	"github.com/google/uuid"
)

type SessionID string

func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

func (id SessionID) String() string {
	return string(id)
}

type RoomID string

// NewRoomID derives the canonical room identifier for a pair of sessions.
// The two ids are sorted before concatenation so both sides compute the
// same id without coordination.
func NewRoomID(a, b SessionID) RoomID {
	if b < a {
		a, b = b, a
	}
	return RoomID(string(a) + string(b))
}

func (id RoomID) String() string {
	return string(id)
}
