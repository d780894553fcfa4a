package model

import "time"

// Credential is a (username, password) pair that has been granted standing
// access. CreatedAt records the most recent grant; it is refreshed every time
// the pair wins a new acceptance draw.
type Credential struct {
	Username  string
	Password  string
	CreatedAt time.Time
}

// CredentialUsage counts every login attempt made with a (username, password)
// pair, regardless of the outcome.
type CredentialUsage struct {
	Username string
	Password string
	Count    int64
}

// IsFresh reports whether the grant is still inside its validity window at now.
func (c Credential) IsFresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.CreatedAt) < ttl
}
