// Package memory — хранилища в памяти процесса: документы с подписками на изменения
// и реестр web-push подписок. Используются в тестах и в -dev без внешних сервисов.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/notifier/internal/storage"
)

const watchBufSize = 64

type watcher struct {
	ctx    context.Context
	ch     chan storage.Snapshot
	mu     sync.Mutex
	closed bool
}

// Store реализует storage.DocumentStore.
type Store struct {
	mu       sync.RWMutex
	docs     map[string]map[string]map[string]any
	watchers map[string][]*watcher
	closed   bool
}

func New() *Store {
	return &Store{
		docs:     make(map[string]map[string]map[string]any),
		watchers: make(map[string][]*watcher),
	}
}

func copyData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	cp := make(map[string]any, len(data))
	for k, v := range data {
		cp[k] = v
	}
	return cp
}

func (s *Store) Get(ctx context.Context, collection, id string) (*storage.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[collection][id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Document{ID: id, Data: copyData(data)}, nil
}

func (s *Store) QueryFirst(ctx context.Context, collection, field, value string, limit int) (*storage.Document, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, data := range s.docs[collection] {
		if arrayContains(data[field], value) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, 0, storage.ErrNotFound
	}
	sort.Strings(ids)
	n := len(ids)
	if limit > 0 && n > limit {
		n = limit
	}
	first := ids[0]
	return &storage.Document{ID: first, Data: copyData(s.docs[collection][first])}, n, nil
}

func arrayContains(v any, value string) bool {
	switch arr := v.(type) {
	case []any:
		for _, item := range arr {
			if s, ok := item.(string); ok && s == value {
				return true
			}
		}
	case []string:
		for _, s := range arr {
			if s == value {
				return true
			}
		}
	}
	return false
}

// Watch сразу отдаёт снапшот текущего состояния, затем изменения, сделанные через Put/Delete/Emit.
func (s *Store) Watch(ctx context.Context, collection string) (<-chan storage.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("memory.Watch %s: store closed", collection)
	}
	w := &watcher{ctx: ctx, ch: make(chan storage.Snapshot, watchBufSize)}
	initial := storage.Snapshot{Collection: collection}
	ids := make([]string, 0, len(s.docs[collection]))
	for id := range s.docs[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		initial.Changes = append(initial.Changes, storage.Change{
			Type: storage.ChangeAdded, DocID: id, Data: copyData(s.docs[collection][id]),
		})
	}
	// Буфер свежего канала пуст — запись не блокирует.
	w.ch <- initial
	s.watchers[collection] = append(s.watchers[collection], w)

	go func() {
		<-ctx.Done()
		s.removeWatcher(collection, w)
	}()
	return w.ch, nil
}

func (s *Store) removeWatcher(collection string, w *watcher) {
	s.mu.Lock()
	list := s.watchers[collection]
	for i, cur := range list {
		if cur == w {
			s.watchers[collection] = append(list[:i], list[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	w.mu.Lock()
	w.closed = true
	close(w.ch)
	w.mu.Unlock()
}

// Put создаёт или заменяет документ и рассылает изменение подписчикам коллекции.
func (s *Store) Put(collection, id string, data map[string]any) {
	s.mu.Lock()
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]map[string]any)
	}
	typ := storage.ChangeAdded
	if _, exists := s.docs[collection][id]; exists {
		typ = storage.ChangeModified
	}
	s.docs[collection][id] = copyData(data)
	s.mu.Unlock()
	s.Emit(storage.Snapshot{
		Collection: collection,
		Changes:    []storage.Change{{Type: typ, DocID: id, Data: copyData(data)}},
	})
}

// Seed кладёт документ без уведомления подписчиков (исходное состояние для тестов).
func (s *Store) Seed(collection, id string, data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]map[string]any)
	}
	s.docs[collection][id] = copyData(data)
}

// Delete удаляет документ и рассылает removed.
func (s *Store) Delete(collection, id string) {
	s.mu.Lock()
	delete(s.docs[collection], id)
	s.mu.Unlock()
	s.Emit(storage.Snapshot{
		Collection: collection,
		Changes:    []storage.Change{{Type: storage.ChangeRemoved, DocID: id}},
	})
}

// Emit доставляет произвольный снапшот подписчикам коллекции (повторы, ошибки потока).
// Запись идёт вне мьютекса: подписчик может параллельно читать хранилище.
func (s *Store) Emit(snap storage.Snapshot) {
	s.mu.RLock()
	list := append([]*watcher(nil), s.watchers[snap.Collection]...)
	s.mu.RUnlock()
	for _, w := range list {
		s.deliver(w, snap)
	}
}

func (s *Store) deliver(w *watcher, snap storage.Snapshot) {
	// Канал закрывается в removeWatcher под w.mu; ctx.Done отпускает заблокированную запись.
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.ch <- snap:
	case <-w.ctx.Done():
	}
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
