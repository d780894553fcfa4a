package model

import "time"

// CommandEntry is one line typed (or one exec payload sent) by an attacker.
// Entries are append-only and never updated once stored.
type CommandEntry struct {
	Username  string
	SessionID SessionID
	Timestamp time.Time
	Command   string
	// Single is true when the command arrived as an exec request rather than
	// as a line typed at the interactive prompt.
	Single bool
}
