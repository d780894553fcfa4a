package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/honeyshell/internal/domain/model"
	"github.com/ericfisherdev/honeyshell/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port interface.
// Grants live in the user table with second-resolution created_at values;
// attempt counters live in cred_usage.
type CredentialRepo struct {
	db  *DB
	now func() time.Time
}

// CredentialRepoOption customises a CredentialRepo.
type CredentialRepoOption func(*CredentialRepo)

// WithClock overrides the clock used to stamp grants.
func WithClock(now func() time.Time) CredentialRepoOption {
	return func(r *CredentialRepo) { r.now = now }
}

// NewCredentialRepo creates a new CredentialRepo backed by the given DB.
func NewCredentialRepo(db *DB, opts ...CredentialRepoOption) *CredentialRepo {
	r := &CredentialRepo{db: db, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordAttempt increments the usage counter for the pair.
func (r *CredentialRepo) RecordAttempt(ctx context.Context, username, password string) error {
	const query = `
		INSERT INTO cred_usage (username, password, count) VALUES (?, ?, 1)
		ON CONFLICT(username, password) DO UPDATE SET count = count + 1
	`
	if _, err := r.db.Writer.ExecContext(ctx, query, username, password); err != nil {
		return storageErr(fmt.Sprintf("record attempt for %q", username), err)
	}
	return nil
}

// Lookup returns the last grant time of the pair.
func (r *CredentialRepo) Lookup(ctx context.Context, username, password string) (time.Time, bool, error) {
	const query = `SELECT created_at FROM user WHERE username = ? AND password = ?`

	var createdAt int64
	err := r.db.Reader.QueryRowContext(ctx, query, username, password).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, storageErr(fmt.Sprintf("lookup %q", username), err)
	}
	return time.Unix(createdAt, 0), true, nil
}

// Grant upserts the pair with created_at set to now. The latest grant wins.
func (r *CredentialRepo) Grant(ctx context.Context, username, password string) error {
	const query = `
		INSERT INTO user (username, password, created_at) VALUES (?, ?, ?)
		ON CONFLICT(username, password) DO UPDATE SET created_at = excluded.created_at
	`
	ts := r.now().Unix()
	if _, err := r.db.Writer.ExecContext(ctx, query, username, password, ts); err != nil {
		return storageErr(fmt.Sprintf("grant %q", username), err)
	}
	return nil
}

// TopUsage returns the most attempted pairs, highest count first.
func (r *CredentialRepo) TopUsage(ctx context.Context, limit int) ([]model.CredentialUsage, error) {
	const query = `
		SELECT username, password, count FROM cred_usage
		ORDER BY count DESC, username, password
		LIMIT ?
	`
	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, storageErr("list credential usage", err)
	}
	defer rows.Close()

	var usage []model.CredentialUsage
	for rows.Next() {
		var u model.CredentialUsage
		if err := rows.Scan(&u.Username, &u.Password, &u.Count); err != nil {
			return nil, storageErr("scan credential usage", err)
		}
		usage = append(usage, u)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate credential usage", err)
	}

	return usage, nil
}

// ListGranted returns pairs granted at or after since, newest first.
func (r *CredentialRepo) ListGranted(ctx context.Context, since time.Time) ([]model.Credential, error) {
	const query = `
		SELECT username, password, created_at FROM user
		WHERE created_at >= ?
		ORDER BY created_at DESC, username, password
	`
	rows, err := r.db.Reader.QueryContext(ctx, query, since.Unix())
	if err != nil {
		return nil, storageErr("list granted credentials", err)
	}
	defer rows.Close()

	var creds []model.Credential
	for rows.Next() {
		var c model.Credential
		var createdAt int64
		if err := rows.Scan(&c.Username, &c.Password, &createdAt); err != nil {
			return nil, storageErr("scan granted credential", err)
		}
		c.CreatedAt = time.Unix(createdAt, 0)
		creds = append(creds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate granted credentials", err)
	}

	return creds, nil
}
