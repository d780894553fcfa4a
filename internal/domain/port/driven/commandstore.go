package driven

import (
	"context"

	"github.com/ericfisherdev/honeyshell/internal/domain/model"
)

// CommandStore defines the driven port for the append-only command history.
type CommandStore interface {
	// Append stores one command entry. Entries are never updated or deleted.
	Append(ctx context.Context, entry model.CommandEntry) error

	// ListBySession returns the entries of one session in timestamp order.
	ListBySession(ctx context.Context, id model.SessionID) ([]model.CommandEntry, error)

	// ListSessions returns per-session summaries, most recently started first.
	ListSessions(ctx context.Context, limit int) ([]model.SessionSummary, error)
}
