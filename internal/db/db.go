package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS chat_groups (
            id TEXT PRIMARY KEY,
            course_id TEXT NOT NULL,
            display_name TEXT NOT NULL,
            owner_id TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
            id TEXT PRIMARY KEY,
            group_id TEXT NOT NULL REFERENCES chat_groups(id),
            sender_id TEXT NOT NULL,
            sender_name TEXT NOT NULL,
            sender_role TEXT NOT NULL,
            body TEXT NOT NULL,
            attachment_url TEXT,
            attachment_name TEXT,
            attachment_mime TEXT,
            attachment_key TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            seq BIGSERIAL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_group_order
            ON chat_messages (group_id, created_at, seq);`,
		`CREATE TABLE IF NOT EXISTS enrollments (
            student_id TEXT NOT NULL,
            course_id TEXT NOT NULL,
            PRIMARY KEY (student_id, course_id)
        );`,
		`CREATE TABLE IF NOT EXISTS accounts (
            id TEXT PRIMARY KEY,
            display_name TEXT NOT NULL,
            role TEXT NOT NULL
        );`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
