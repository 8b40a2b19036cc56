package postgres

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifier/internal/storage"
)

// Тесты ходят в настоящий Postgres: TEST_DATABASE_URL=postgres://... go test ./...
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	s := New(pool)
	require.NoError(t, s.Migrate(ctx))
	_, err = pool.Exec(ctx, `DELETE FROM documents`)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func put(t *testing.T, s *Store, collection, id, data string) {
	t.Helper()
	_, err := s.pool.Exec(context.Background(),
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		collection, id, data)
	require.NoError(t, err)
}

func TestGetAndQueryFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	put(t, s, "tasks", "t2", `{"taskName":"B","history":["h1"]}`)
	put(t, s, "tasks", "t1", `{"taskName":"A","history":["h1","h2"]}`)

	doc, err := s.Get(ctx, "tasks", "t1")
	require.NoError(t, err)
	assert.Equal(t, "A", doc.Data["taskName"])

	_, err = s.Get(ctx, "tasks", "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	doc, n, err := s.QueryFirst(ctx, "tasks", "history", "h1", 2)
	require.NoError(t, err)
	assert.Equal(t, "t1", doc.ID)
	assert.Equal(t, 2, n)

	_, _, err = s.QueryFirst(ctx, "tasks", "history", "h3", 2)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestQueryFirstMatchesArraysOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	put(t, s, "projects", "p1", `{"tasks":"t1"}`)
	put(t, s, "projects", "p2", `{"tasks":["t0","t1"]}`)
	put(t, s, "teams", "p0", `{"tasks":["t1"]}`)

	doc, n, err := s.QueryFirst(ctx, "projects", "tasks", "t1", 2)
	require.NoError(t, err)
	assert.Equal(t, "p2", doc.ID)
	assert.Equal(t, 1, n)
}

func TestOwnerQueryUsesGINIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	conn, err := s.pool.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	// На пустой таблице планировщик выберет seq scan; запрещаем его, чтобы проверить применимость индекса.
	_, err = conn.Exec(ctx, `SET enable_seqscan = off`)
	require.NoError(t, err)
	defer conn.Exec(context.Background(), `RESET enable_seqscan`)

	rows, err := conn.Query(ctx, "EXPLAIN "+ownerQuery, "tasks", "history", "h1", 2)
	require.NoError(t, err)
	var plan strings.Builder
	for rows.Next() {
		var line string
		require.NoError(t, rows.Scan(&line))
		plan.WriteString(line + "\n")
	}
	require.NoError(t, rows.Err())
	assert.Contains(t, plan.String(), "documents_data_gin")
}

func TestWatch(t *testing.T) {
	s := newTestStore(t)
	put(t, s, "history", "h0", `{"text":"old"}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := s.Watch(ctx, "history")
	require.NoError(t, err)

	initial := <-ch
	require.Len(t, initial.Changes, 1)
	assert.Equal(t, "h0", initial.Changes[0].DocID)

	put(t, s, "messages", "m1", `{"chatId":"c1"}`)
	put(t, s, "history", "h1", `{"text":"new"}`)

	select {
	case snap := <-ch:
		require.NoError(t, snap.Err)
		require.Len(t, snap.Changes, 1)
		assert.Equal(t, "h1", snap.Changes[0].DocID)
		assert.Equal(t, storage.ChangeAdded, snap.Changes[0].Type)
		assert.Equal(t, "new", snap.Changes[0].Data["text"])
	case <-time.After(5 * time.Second):
		t.Fatal("no change delivered")
	}
}
