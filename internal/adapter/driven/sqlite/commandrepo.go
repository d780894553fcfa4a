package sqlite

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/honeyshell/internal/domain/model"
	"github.com/ericfisherdev/honeyshell/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CommandStore = (*CommandRepo)(nil)

// CommandRepo is the SQLite implementation of the CommandStore port interface.
// Session ids are stored as 16-byte blobs and timestamps as fractional unix seconds.
type CommandRepo struct {
	db *DB
}

// NewCommandRepo creates a new CommandRepo backed by the given DB.
func NewCommandRepo(db *DB) *CommandRepo {
	return &CommandRepo{db: db}
}

// Append inserts one immutable command row.
func (r *CommandRepo) Append(ctx context.Context, entry model.CommandEntry) error {
	const query = `INSERT INTO command (username, session, ts, command, single) VALUES (?, ?, ?, ?, ?)`

	single := 0
	if entry.Single {
		single = 1
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		entry.Username, entry.SessionID[:], toUnixSeconds(entry.Timestamp), entry.Command, single,
	)
	if err != nil {
		return storageErr(fmt.Sprintf("append command for session %s", entry.SessionID), err)
	}
	return nil
}

// ListBySession returns the entries of one session in timestamp order.
func (r *CommandRepo) ListBySession(ctx context.Context, id model.SessionID) ([]model.CommandEntry, error) {
	const query = `
		SELECT username, ts, command, single FROM command
		WHERE session = ?
		ORDER BY ts, rowid
	`
	rows, err := r.db.Reader.QueryContext(ctx, query, id[:])
	if err != nil {
		return nil, storageErr(fmt.Sprintf("list commands for session %s", id), err)
	}
	defer rows.Close()

	var entries []model.CommandEntry
	for rows.Next() {
		var (
			e      model.CommandEntry
			ts     float64
			single int
		)
		if err := rows.Scan(&e.Username, &ts, &e.Command, &single); err != nil {
			return nil, storageErr("scan command", err)
		}
		e.SessionID = id
		e.Timestamp = fromUnixSeconds(ts)
		e.Single = single != 0
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate commands", err)
	}

	return entries, nil
}

// ListSessions returns per-session summaries, most recently started first.
func (r *CommandRepo) ListSessions(ctx context.Context, limit int) ([]model.SessionSummary, error) {
	const query = `
		SELECT session, MAX(username), MIN(ts), MAX(ts), COUNT(*) FROM command
		GROUP BY session
		ORDER BY MIN(ts) DESC
		LIMIT ?
	`
	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, storageErr("list sessions", err)
	}
	defer rows.Close()

	var sessions []model.SessionSummary
	for rows.Next() {
		var (
			s           model.SessionSummary
			raw         []byte
			first, last float64
		)
		if err := rows.Scan(&raw, &s.Username, &first, &last, &s.Commands); err != nil {
			return nil, storageErr("scan session", err)
		}
		id, err := uuid.FromBytes(raw)
		if err != nil {
			return nil, storageErr("decode session id", err)
		}
		s.SessionID = id
		s.FirstSeen = fromUnixSeconds(first)
		s.LastSeen = fromUnixSeconds(last)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate sessions", err)
	}

	return sessions, nil
}

func toUnixSeconds(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

func fromUnixSeconds(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(math.Round(frac*1e6))*int64(time.Microsecond))
}
