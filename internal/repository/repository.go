package repository

import (
	"context"
	"errors"
	"time"

	"github.com/notifier/internal/logger"
	"github.com/notifier/internal/storage"
)

// ErrNotFound — документа нет; для резолвера это не ошибка, а повод молча пропустить событие.
var ErrNotFound = storage.ErrNotFound

// DefaultLookupTimeout — таймаут одного обращения к хранилищу, если в конфиге не задан.
const DefaultLookupTimeout = 10 * time.Second

// ownerQueryLimit: достаточно двух документов, чтобы заметить нарушение "один владелец".
const ownerQueryLimit = 2

type base struct {
	store   storage.DocumentStore
	timeout time.Duration
}

func newBase(store storage.DocumentStore, timeout time.Duration) base {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return base{store: store, timeout: timeout}
}

func (b base) get(ctx context.Context, collection, id string) (*storage.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.store.Get(ctx, collection, id)
}

// findOwner ищет документ, чей массив field содержит value. При нескольких совпадениях
// пишет предупреждение о целостности данных и берёт первый по id.
func (b base) findOwner(ctx context.Context, collection, field, value string) (*storage.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	doc, n, err := b.store.QueryFirst(ctx, collection, field, value, ownerQueryLimit)
	if err != nil {
		return nil, err
	}
	if n > 1 {
		logger.Warnf("data integrity: several %s reference %s in %q, using %s", collection, value, field, doc.ID)
	}
	return doc, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
