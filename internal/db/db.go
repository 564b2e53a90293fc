package db

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens the Postgres pool and applies the schema.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS participants (
            id TEXT PRIMARY KEY,
            fullname TEXT NOT NULL DEFAULT '',
            username TEXT NOT NULL DEFAULT '',
            email TEXT NOT NULL DEFAULT '',
            avatar TEXT NOT NULL DEFAULT '',
            roles TEXT[] NOT NULL DEFAULT '{}'
        );`,
	`CREATE TABLE IF NOT EXISTS messages (
            id BIGSERIAL PRIMARY KEY,
            sender_id TEXT NOT NULL,
            recipient_id TEXT NOT NULL,
            body TEXT NOT NULL DEFAULT '',
            attachment_url TEXT,
            attachment_type TEXT CHECK (attachment_type IN ('image', 'video', 'audio', 'file', 'pdf', 'doc', 'other')),
            read BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
            CHECK (sender_id <> '' AND recipient_id <> '' AND sender_id <> recipient_id),
            CHECK (body <> '' OR attachment_url IS NOT NULL)
        );`,
	`CREATE INDEX IF NOT EXISTS messages_thread_idx ON messages (sender_id, recipient_id, created_at);`,
	`CREATE INDEX IF NOT EXISTS messages_unread_idx ON messages (recipient_id, read, created_at);`,
	`CREATE INDEX IF NOT EXISTS messages_created_at_idx ON messages (created_at);`,
	`CREATE TABLE IF NOT EXISTS legacy_messages (
            id BIGSERIAL PRIMARY KEY,
            from_student TEXT,
            to_teacher TEXT,
            from_teacher TEXT,
            to_student TEXT,
            message TEXT NOT NULL DEFAULT '',
            file_url TEXT NOT NULL DEFAULT '',
            file_type TEXT NOT NULL DEFAULT '',
            read BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            migrated_at TIMESTAMPTZ
        );`,
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
