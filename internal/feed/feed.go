// Package feed превращает поток снапшотов коллекции в поток отдельных изменений.
//
// Первый снапшот после подписки — текущее состояние коллекции, а не новые события,
// поэтому он отбрасывается целиком. Так же отбрасываются снапшоты Resync (хранилище
// переподключилось и прислало состояние заново).
package feed

import (
	"context"
	"sync/atomic"

	"github.com/notifier/internal/logger"
	"github.com/notifier/internal/storage"
)

// Handler получает одно добавленное или изменённое.
// Вызывается из горутины подписки и не должен блокироваться надолго.
type Handler func(ctx context.Context, c storage.Change)

// Stats — счётчики подписки.
type Stats struct {
	Snapshots int64 `json:"snapshots"`
	Discarded int64 `json:"discarded"`
	Forwarded int64 `json:"forwarded"`
	Errors    int64 `json:"errors"`
}

// Subscription — подписка на одну коллекцию. Флаг прогрева свой у каждой подписки.
type Subscription struct {
	collection string
	store      storage.DocumentStore
	handler    Handler

	// warmedUp читается и пишется только горутиной Run.
	warmedUp bool

	snapshots atomic.Int64
	discarded atomic.Int64
	forwarded atomic.Int64
	errors    atomic.Int64
}

func New(store storage.DocumentStore, collection string, h Handler) *Subscription {
	return &Subscription{collection: collection, store: store, handler: h}
}

func (s *Subscription) Collection() string { return s.collection }

// Run слушает коллекцию, пока не отменён ctx или хранилище не закрыло поток.
// Ошибка — только если подписку не удалось открыть.
func (s *Subscription) Run(ctx context.Context) error {
	ch, err := s.store.Watch(ctx, s.collection)
	if err != nil {
		return err
	}
	logger.Infof("feed %s: subscribed", s.collection)
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-ch:
			if !ok {
				logger.Infof("feed %s: stream closed", s.collection)
				return nil
			}
			s.handle(ctx, snap)
		}
	}
}

func (s *Subscription) handle(ctx context.Context, snap storage.Snapshot) {
	if snap.Err != nil {
		s.errors.Add(1)
		logger.Errorf("feed %s: %v", s.collection, snap.Err)
		return
	}
	s.snapshots.Add(1)
	if !s.warmedUp {
		s.warmedUp = true
		s.discarded.Add(1)
		logger.Infof("feed %s: initial snapshot skipped (%d docs)", s.collection, len(snap.Changes))
		return
	}
	if snap.Resync {
		s.discarded.Add(1)
		logger.Infof("feed %s: resync snapshot skipped (%d docs)", s.collection, len(snap.Changes))
		return
	}
	for _, c := range snap.Changes {
		switch c.Type {
		case storage.ChangeAdded, storage.ChangeModified:
		default:
			continue
		}
		if c.DocID == "" {
			logger.Warnf("feed %s: %s change without document id", s.collection, c.Type)
			continue
		}
		s.forwarded.Add(1)
		s.handler(ctx, c)
	}
}

func (s *Subscription) Stats() Stats {
	return Stats{
		Snapshots: s.snapshots.Load(),
		Discarded: s.discarded.Load(),
		Forwarded: s.forwarded.Load(),
		Errors:    s.errors.Load(),
	}
}
