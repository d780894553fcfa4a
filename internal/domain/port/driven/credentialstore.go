package driven

import (
	"context"
	"errors"
	"time"

	"github.com/ericfisherdev/honeyshell/internal/domain/model"
)

// ErrStorage wraps every failure reported by a ledger adapter. Callers decide
// per operation whether to propagate it or swallow it.
var ErrStorage = errors.New("ledger storage failure")

// SchemaPreparer creates the ledger schema. Prepare must be idempotent and must
// never erase existing data.
type SchemaPreparer interface {
	Prepare(ctx context.Context) error
}

// CredentialStore defines the driven port for learned credentials and their
// usage counters.
type CredentialStore interface {
	// RecordAttempt increments the usage counter of the pair, creating it with
	// a count of 1 on first sight.
	RecordAttempt(ctx context.Context, username, password string) error

	// Lookup returns the time the pair was last granted. The boolean is false
	// when the pair has never been granted.
	Lookup(ctx context.Context, username, password string) (time.Time, bool, error)

	// Grant records (or renews) standing access for the pair at the current time.
	Grant(ctx context.Context, username, password string) error

	// TopUsage returns the most attempted pairs, highest count first.
	TopUsage(ctx context.Context, limit int) ([]model.CredentialUsage, error)

	// ListGranted returns the pairs granted at or after since, newest first.
	ListGranted(ctx context.Context, since time.Time) ([]model.Credential, error)
}
