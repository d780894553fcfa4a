package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ericfisherdev/honeyshell/internal/domain/port/driven"

	_ "modernc.org/sqlite"
)

// Compile-time interface satisfaction check.
var _ driven.SchemaPreparer = (*DB)(nil)

// DB provides dual reader/writer database connections with WAL mode enabled.
// The writer connection is limited to a single connection so that concurrent
// sessions never see "database is locked"; every ledger write is one statement
// that commits on its own. The reader connection pool allows up to 4 concurrent readers.
type DB struct {
	Writer *sql.DB
	Reader *sql.DB
	path   string
}

// connPragmas are set on every ledger connection, file or in-memory.
const connPragmas = "_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

// NewDB opens the ledger at dbPath with WAL mode, busy timeout and synchronous NORMAL.
func NewDB(ctx context.Context, dbPath string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&%s", dbPath, connPragmas)

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	if err := writer.PingContext(ctx); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("ping writer: %w", err)
	}

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}
	reader.SetMaxOpenConns(4)

	if err := reader.PingContext(ctx); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		return nil, fmt.Errorf("ping reader: %w", err)
	}

	return &DB{
		Writer: writer,
		Reader: reader,
		path:   dbPath,
	}, nil
}

// OpenReadOnly opens an existing ledger without write access, for reporting
// alongside a running honeypot. No schema is applied, and both Writer and
// Reader point at the same read-only pool, so any write fails.
func OpenReadOnly(ctx context.Context, dbPath string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&%s", dbPath, connPragmas)

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open reader: %w", err)
	}
	reader.SetMaxOpenConns(4)

	if err := reader.PingContext(ctx); err != nil {
		_ = reader.Close()
		return nil, fmt.Errorf("ping reader: %w", err)
	}

	return &DB{
		Writer: reader,
		Reader: reader,
		path:   dbPath,
	}, nil
}

// Prepare creates the ledger schema by applying the embedded migrations on the
// writer connection. It is safe to call on every startup.
func (db *DB) Prepare(_ context.Context) error {
	if err := RunMigrations(db.Writer); err != nil {
		return fmt.Errorf("%w: prepare %s: %w", driven.ErrStorage, db.path, err)
	}
	return nil
}

// Close closes both reader and writer connections. Returns the first error encountered.
func (db *DB) Close() error {
	var firstErr error

	if err := db.Reader.Close(); err != nil {
		firstErr = fmt.Errorf("close reader: %w", err)
	}

	if db.Writer == db.Reader {
		return firstErr
	}

	if err := db.Writer.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close writer: %w", err)
	}

	return firstErr
}

// storageErr tags err as a ledger failure of operation op.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", driven.ErrStorage, op, err)
}
