// Package postgres — хранилище документов в Postgres (JSONB) с лентой изменений через LISTEN/NOTIFY.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifier/internal/logger"
	"github.com/notifier/internal/storage"
	"github.com/notifier/migrations"
)

const (
	notifyChannel = "document_changes"
	watchBufSize  = 64
)

// ownerQuery — аналог array-contains: массив field содержит value.
// Условие через @> на весь data, чтобы работал GIN-индекс documents_data_gin (jsonb_path_ops).
const ownerQuery = `SELECT id, data FROM documents
	WHERE collection = $1 AND data @> jsonb_build_object($2::text, jsonb_build_array($3::text))
	ORDER BY id
	LIMIT $4`

type notification struct {
	Collection string             `json:"collection"`
	ID         string             `json:"id"`
	Type       storage.ChangeType `json:"type"`
}

// Store реализует storage.DocumentStore поверх pgxpool.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Migrate применяет встроенные миграции по порядку имён файлов.
func (s *Store) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations.Files, "*.sql")
	if err != nil {
		return fmt.Errorf("postgres.Migrate: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := migrations.Files.ReadFile(name)
		if err != nil {
			return fmt.Errorf("postgres.Migrate read %s: %w", name, err)
		}
		if _, err := s.pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("postgres.Migrate run %s: %w", name, err)
		}
	}
	logger.Infof("migrations applied (%d)", len(names))
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (*storage.Document, error) {
	defer logger.DeferLogDuration("pg.Get "+collection, time.Now())()
	var data map[string]any
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`, collection, id,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg.Get %s/%s: %w", collection, id, err)
	}
	return &storage.Document{ID: id, Data: data}, nil
}

func (s *Store) QueryFirst(ctx context.Context, collection, field, value string, limit int) (*storage.Document, int, error) {
	defer logger.DeferLogDuration("pg.QueryFirst "+collection, time.Now())()
	if limit <= 0 {
		limit = 1
	}
	rows, err := s.pool.Query(ctx, ownerQuery, collection, field, value, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("pg.QueryFirst %s query: %w", collection, err)
	}
	defer rows.Close()

	var first *storage.Document
	n := 0
	for rows.Next() {
		var id string
		var data map[string]any
		if err := rows.Scan(&id, &data); err != nil {
			return nil, 0, fmt.Errorf("pg.QueryFirst %s scan: %w", collection, err)
		}
		if first == nil {
			first = &storage.Document{ID: id, Data: data}
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pg.QueryFirst %s rows: %w", collection, err)
	}
	if first == nil {
		return nil, 0, storage.ErrNotFound
	}
	return first, n, nil
}

// loadAll читает текущее состояние коллекции — первый снапшот подписки.
func (s *Store) loadAll(ctx context.Context, collection string) ([]storage.Change, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, data FROM documents WHERE collection = $1 ORDER BY id`, collection)
	if err != nil {
		return nil, fmt.Errorf("pg.loadAll %s query: %w", collection, err)
	}
	defer rows.Close()
	changes := make([]storage.Change, 0, 64)
	for rows.Next() {
		var c storage.Change
		if err := rows.Scan(&c.DocID, &c.Data); err != nil {
			return nil, fmt.Errorf("pg.loadAll %s scan: %w", collection, err)
		}
		c.Type = storage.ChangeAdded
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pg.loadAll %s rows: %w", collection, err)
	}
	return changes, nil
}

// listen берёт отдельное соединение из пула и подписывает его на канал.
// LISTEN выполняется до чтения состояния, чтобы не потерять изменения между ними.
func (s *Store) listen(ctx context.Context, collection string) (*pgxpool.Conn, []storage.Change, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("pg.Watch acquire: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		conn.Release()
		return nil, nil, fmt.Errorf("pg.Watch listen: %w", err)
	}
	changes, err := s.loadAll(ctx, collection)
	if err != nil {
		releaseListener(conn)
		return nil, nil, err
	}
	return conn, changes, nil
}

func releaseListener(conn *pgxpool.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := conn.Exec(ctx, "UNLISTEN *"); err != nil {
		// Соединение в неизвестном состоянии — не возвращаем его в пул.
		_ = conn.Conn().Close(ctx)
	}
	conn.Release()
}

func (s *Store) Watch(ctx context.Context, collection string) (<-chan storage.Snapshot, error) {
	conn, initial, err := s.listen(ctx, collection)
	if err != nil {
		return nil, err
	}
	ch := make(chan storage.Snapshot, watchBufSize)
	ch <- storage.Snapshot{Collection: collection, Changes: initial}
	go s.watchLoop(ctx, conn, collection, ch)
	return ch, nil
}

func (s *Store) watchLoop(ctx context.Context, conn *pgxpool.Conn, collection string, ch chan<- storage.Snapshot) {
	defer close(ch)
	backoff := time.Second
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			releaseListener(conn)
			if ctx.Err() != nil {
				return
			}
			if !send(ctx, ch, storage.Snapshot{Collection: collection, Err: fmt.Errorf("pg.Watch %s: %w", collection, err)}) {
				return
			}
			// Поток потерян: переподключаемся и присылаем полное состояние как Resync.
			for {
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				var changes []storage.Change
				conn, changes, err = s.listen(ctx, collection)
				if err == nil {
					backoff = time.Second
					if !send(ctx, ch, storage.Snapshot{Collection: collection, Changes: changes, Resync: true}) {
						releaseListener(conn)
						return
					}
					break
				}
				logger.Errorf("pg watch %s reconnect failed, retry in %v: %v", collection, backoff, err)
				if backoff < 30*time.Second {
					backoff *= 2
				}
			}
			continue
		}

		var note notification
		if err := json.Unmarshal([]byte(n.Payload), &note); err != nil {
			logger.Warnf("pg watch %s: bad payload %q: %v", collection, n.Payload, err)
			continue
		}
		if note.Collection != collection {
			continue
		}
		change := storage.Change{Type: note.Type, DocID: note.ID}
		if note.Type != storage.ChangeRemoved {
			doc, err := s.Get(ctx, collection, note.ID)
			if errors.Is(err, storage.ErrNotFound) {
				// Документ удалён раньше, чем мы его прочитали.
				continue
			}
			if err != nil {
				if !send(ctx, ch, storage.Snapshot{Collection: collection, Err: err}) {
					releaseListener(conn)
					return
				}
				continue
			}
			change.Data = doc.Data
		}
		if !send(ctx, ch, storage.Snapshot{Collection: collection, Changes: []storage.Change{change}}) {
			releaseListener(conn)
			return
		}
	}
}

func send(ctx context.Context, ch chan<- storage.Snapshot, snap storage.Snapshot) bool {
	select {
	case ch <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}
