package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqliteadapter "github.com/ericfisherdev/honeyshell/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/honeyshell/internal/domain/model"
)

func seedLedger(t *testing.T, path string, now time.Time) model.SessionID {
	t.Helper()
	ctx := context.Background()

	db, err := sqliteadapter.NewDB(ctx, path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	require.NoError(t, db.Prepare(ctx))

	creds := sqliteadapter.NewCredentialRepo(db, sqliteadapter.WithClock(func() time.Time { return now.Add(-time.Hour) }))
	for range 3 {
		require.NoError(t, creds.RecordAttempt(ctx, "root", "123456"))
	}
	require.NoError(t, creds.RecordAttempt(ctx, "admin", "admin"))
	require.NoError(t, creds.Grant(ctx, "root", "123456"))

	cmds := sqliteadapter.NewCommandRepo(db)
	id := model.NewSessionID()
	require.NoError(t, cmds.Append(ctx, model.CommandEntry{
		Username: "root", SessionID: id, Timestamp: now.Add(-30 * time.Minute), Command: "uname -a",
	}))
	require.NoError(t, cmds.Append(ctx, model.CommandEntry{
		Username: "root", SessionID: id, Timestamp: now.Add(-29 * time.Minute), Command: "echo \x1b[2J",
	}))
	return id
}

func TestRun_PrintsReport(t *testing.T) {
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "ledger.db")
	id := seedLedger(t, path, now)

	var out bytes.Buffer
	err := run(context.Background(), []string{"-D", path, "--top", "5", "--since", "24h"}, &out, now)
	require.NoError(t, err)

	report := out.String()
	assert.Contains(t, report, "SSH HONEYPOT REPORT  2024-03-05 12:00 UTC")
	assert.Contains(t, report, "Top 5 credentials")
	assert.Regexp(t, `3\s+root\s+123456`, report)
	assert.Regexp(t, `1\s+admin\s+admin`, report)
	assert.Contains(t, report, "2024-03-05 11:00:00  root")
	assert.Contains(t, report, id.String())
	assert.Contains(t, report, "11:30:00 $ uname -a")
	assert.Contains(t, report, `echo \x1b[2J`)
	assert.NotContains(t, report, "\x1b")
}

func TestRun_SinceExcludesOldGrants(t *testing.T) {
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "ledger.db")
	seedLedger(t, path, now)

	var out bytes.Buffer
	err := run(context.Background(), []string{"-D", path, "--since", "30m", "--sessions", "0"}, &out, now)
	require.NoError(t, err)

	report := out.String()
	assert.NotContains(t, report, "2024-03-05 11:00:00")
	assert.NotContains(t, report, "sessions")
}

func TestRun_LeavesLedgerUntouched(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "legacy.db")

	db, err := sqliteadapter.NewDB(ctx, path)
	require.NoError(t, err)
	for _, stmt := range []string{
		"create table user (username text, password text, created_at integer)",
		"create table cred_usage (username text, password text, count integer)",
		"create table command (username text, session blob, ts real, command text, single boolean)",
		"insert into cred_usage values ('admin', 'admin', 7)",
	} {
		_, err := db.Writer.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}

	var out bytes.Buffer
	require.NoError(t, run(ctx, []string{"-D", path}, &out, time.Now()))
	assert.Regexp(t, `7\s+admin\s+admin`, out.String())

	var tables int
	require.NoError(t, db.Reader.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'").Scan(&tables))
	assert.Zero(t, tables)
	require.NoError(t, db.Close())
}

func TestRun_MissingLedger(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"-D", filepath.Join(t.TempDir(), "absent.db")}, &out, time.Now())
	assert.Error(t, err)
	assert.Empty(t, out.String())
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, "honeyshell.db", opts.dbPath)
	assert.Equal(t, 20, opts.top)
	assert.Equal(t, 7*24*time.Hour, opts.since)
	assert.Equal(t, 10, opts.sessions)

	for _, args := range [][]string{
		{"--top", "0"},
		{"--since", "-1h"},
		{"--sessions", "-1"},
		{"--bogus"},
	} {
		_, err := parseFlags(args)
		assert.Error(t, err, "args %v", args)
	}

	_, err = parseFlags([]string{"--help"})
	assert.ErrorIs(t, err, pflag.ErrHelp)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `""`, quote(""))
	assert.Equal(t, "root", quote("root"))
	assert.Equal(t, `a\tb`, quote("a\tb"))
	assert.Equal(t, `say \"hi\"`, quote(`say "hi"`))
}
