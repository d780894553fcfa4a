package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"testing"
)

// openTestDB opens a named shared in-memory ledger with no schema. Writer and
// reader share the database via cache=shared; the name comes from t.Name()
// so parallel tests stay isolated. Connections get the same pragmas as NewDB
// except journal_mode, which does not apply to memory databases.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&%s", url.PathEscape(t.Name()), connPragmas)

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open test ledger writer: %v", err)
	}
	writer.SetMaxOpenConns(1)
	if err := writer.PingContext(context.Background()); err != nil {
		_ = writer.Close()
		t.Fatalf("ping test ledger writer: %v", err)
	}

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = writer.Close()
		t.Fatalf("open test ledger reader: %v", err)
	}
	reader.SetMaxOpenConns(4)
	if err := reader.PingContext(context.Background()); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		t.Fatalf("ping test ledger reader: %v", err)
	}

	db := &DB{Writer: writer, Reader: reader, path: t.Name()}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// setupTestDB returns an in-memory ledger with the schema prepared.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db := openTestDB(t)
	if err := db.Prepare(context.Background()); err != nil {
		t.Fatalf("prepare test ledger: %v", err)
	}
	return db
}
