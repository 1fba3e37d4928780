package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// OpenSQLite opens a SQLite database and ensures the schema exists.
// The pool holds one connection, so ":memory:" keeps a single database.
func OpenSQLite(ctx context.Context, dsn string, log zerolog.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure sqlite schema: %w", err)
	}

	log.Info().Str("dsn", dsn).Msg("SQLite opened")
	return db, nil
}

const sqliteSchema = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  exam_type TEXT NOT NULL,
  exam_number INTEGER NOT NULL,
  position INTEGER NOT NULL,
  prompt TEXT NOT NULL,
  options TEXT NOT NULL,
  correct_index INTEGER NOT NULL,
  explanation TEXT NOT NULL DEFAULT '',
  subject TEXT NOT NULL,
  difficulty TEXT NOT NULL DEFAULT 'moyen',
  updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_questions_exam ON questions (exam_type, exam_number, position);

CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  exam_type TEXT NOT NULL,
  exam_number INTEGER NOT NULL,
  overall INTEGER NOT NULL,
  correct INTEGER NOT NULL,
  total INTEGER NOT NULL,
  elapsed_seconds INTEGER NOT NULL,
  subject_scores TEXT NOT NULL,
  answers TEXT NOT NULL,
  snapshots TEXT NOT NULL,
  violations INTEGER NOT NULL DEFAULT 0,
  finish_reason TEXT NOT NULL,
  started_at INTEGER NOT NULL,
  completed_at INTEGER NOT NULL,
  UNIQUE (user_id, exam_type, exam_number)
);

CREATE INDEX IF NOT EXISTS idx_attempts_user ON attempts (user_id, completed_at);

CREATE TABLE IF NOT EXISTS integrity_events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  attempt_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  exam_type TEXT NOT NULL,
  exam_number INTEGER NOT NULL,
  violation_count INTEGER NOT NULL,
  threshold INTEGER NOT NULL,
  occurred_at INTEGER NOT NULL
);
`
