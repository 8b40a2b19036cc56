// Package firestore — хранилище документов Cloud Firestore; лента изменений через snapshot listeners.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/notifier/internal/logger"
	"github.com/notifier/internal/storage"
)

const watchBufSize = 64

// Store реализует storage.DocumentStore поверх firestore.Client.
type Store struct {
	client *firestore.Client
}

func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, collection, id string) (*storage.Document, error) {
	defer logger.DeferLogDuration("fs.Get "+collection, time.Now())()
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fs.Get %s/%s: %w", collection, id, err)
	}
	if !snap.Exists() {
		return nil, storage.ErrNotFound
	}
	return &storage.Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (s *Store) QueryFirst(ctx context.Context, collection, field, value string, limit int) (*storage.Document, int, error) {
	defer logger.DeferLogDuration("fs.QueryFirst "+collection, time.Now())()
	if limit <= 0 {
		limit = 1
	}
	docs, err := s.client.Collection(collection).
		Where(field, "array-contains", value).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Limit(limit).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, 0, fmt.Errorf("fs.QueryFirst %s %s=%s: %w", collection, field, value, err)
	}
	if len(docs) == 0 {
		return nil, 0, storage.ErrNotFound
	}
	return &storage.Document{ID: docs[0].Ref.ID, Data: docs[0].Data()}, len(docs), nil
}

// Watch слушает коллекцию. Первый снапшот Firestore — текущее состояние (все документы added).
// Если поток оборвался с ошибкой, подписка пересоздаётся, а её первый снапшот
// помечается Resync.
func (s *Store) Watch(ctx context.Context, collection string) (<-chan storage.Snapshot, error) {
	ch := make(chan storage.Snapshot, watchBufSize)
	go s.watchLoop(ctx, collection, ch)
	return ch, nil
}

func (s *Store) watchLoop(ctx context.Context, collection string, ch chan<- storage.Snapshot) {
	defer close(ch)
	backoff := time.Second
	resync := false
	for {
		it := s.client.Collection(collection).Snapshots(ctx)
		err := s.consume(ctx, it, collection, ch, resync)
		it.Stop()
		if ctx.Err() != nil || err == nil {
			return
		}
		select {
		case ch <- storage.Snapshot{Collection: collection, Err: err}:
		case <-ctx.Done():
			return
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
		resync = true
	}
}

// consume читает снапшоты до ошибки. nil — поток закрыт штатно (отмена контекста).
func (s *Store) consume(ctx context.Context, it *firestore.QuerySnapshotIterator, collection string, ch chan<- storage.Snapshot, resync bool) error {
	first := true
	for {
		qs, err := it.Next()
		if errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
			return nil
		}
		if err != nil {
			return fmt.Errorf("fs.Watch %s: %w", collection, err)
		}
		snap := storage.Snapshot{
			Collection: collection,
			Changes:    make([]storage.Change, 0, len(qs.Changes)),
			Resync:     resync && first,
		}
		first = false
		for _, dc := range qs.Changes {
			c := storage.Change{DocID: dc.Doc.Ref.ID}
			switch dc.Kind {
			case firestore.DocumentAdded:
				c.Type = storage.ChangeAdded
				c.Data = dc.Doc.Data()
			case firestore.DocumentModified:
				c.Type = storage.ChangeModified
				c.Data = dc.Doc.Data()
			case firestore.DocumentRemoved:
				c.Type = storage.ChangeRemoved
			}
			snap.Changes = append(snap.Changes, c)
		}
		select {
		case ch <- snap:
		case <-ctx.Done():
			return nil
		}
	}
}
