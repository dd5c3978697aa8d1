package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const schemaLockKey int64 = 2026101901

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the chunk and textbook tables. The DDL runs under an
// advisory lock so api and worker can start together.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS chunks (
	chunk_id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	class_level TEXT NOT NULL,
	subject TEXT NOT NULL,
	chapter TEXT NOT NULL,
	page_number INTEGER NOT NULL DEFAULT 1,
	word_count INTEGER NOT NULL DEFAULT 0,
	text_hash TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_scope ON chunks(class_level, subject, chapter);

CREATE TABLE IF NOT EXISTS textbook_uploads (
	class_level TEXT NOT NULL,
	subject TEXT NOT NULL,
	chapter TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	filename TEXT NOT NULL,
	storage_key TEXT NOT NULL,
	chunks_count INTEGER NOT NULL,
	ingested_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (class_level, subject, chapter)
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
