package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS dispatches (
	id         TEXT PRIMARY KEY,
	provider   TEXT NOT NULL,
	channel    TEXT NOT NULL,
	topic      TEXT NOT NULL,
	title      TEXT NOT NULL,
	message_id TEXT NOT NULL DEFAULT '',
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS dispatches_created_at ON dispatches (created_at);
`

// SQLite хранит журнал в локальном файле (переживает рестарт процесса).
type SQLite struct {
	db *sqlx.DB
}

// NewSQLite открывает (или создаёт) базу по path и применяет схему.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal.NewSQLite open: %w", err)
	}
	// Один писатель: modernc sqlite не любит параллельные записи.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal.NewSQLite wal: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal.NewSQLite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Record(ctx context.Context, e Entry) error {
	e.CreatedAt = e.CreatedAt.UTC()
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO dispatches (id, provider, channel, topic, title, message_id, error, created_at)
		 VALUES (:id, :provider, :channel, :topic, :title, :message_id, :error, :created_at)`, e)
	if err != nil {
		return fmt.Errorf("journal.Record: %w", err)
	}
	return nil
}

func (s *SQLite) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []Entry
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, provider, channel, topic, title, message_id, error, created_at
		 FROM dispatches ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal.Recent: %w", err)
	}
	return out, nil
}

func (s *SQLite) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM dispatches WHERE created_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("journal.Prune: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
