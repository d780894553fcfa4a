package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionID identifies one authenticated connection's shell lifecycle. It is a
// random 128-bit value and is stored as a 16-byte blob.
type SessionID = uuid.UUID

// NewSessionID returns a fresh random session identifier.
func NewSessionID() SessionID {
	return uuid.New()
}

// ParseSessionID parses the canonical hex form produced by SessionID.String.
func ParseSessionID(s string) (SessionID, error) {
	return uuid.Parse(s)
}

// SessionSummary aggregates the command log of a single session.
type SessionSummary struct {
	SessionID SessionID
	Username  string
	FirstSeen time.Time
	LastSeen  time.Time
	Commands  int
}
