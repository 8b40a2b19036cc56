package journal

import (
	"context"
	"sync"
	"time"
)

const defaultMemoryCap = 500

// Memory — кольцевой буфер последних записей (по умолчанию, без диска).
type Memory struct {
	mu   sync.Mutex
	buf  []Entry
	next int
	full bool
}

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = defaultMemoryCap
	}
	return &Memory{buf: make([]Entry, capacity)}
}

func (m *Memory) Record(ctx context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf[m.next] = e
	m.next = (m.next + 1) % len(m.buf)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

func (m *Memory) size() int {
	if m.full {
		return len(m.buf)
	}
	return m.next
}

func (m *Memory) Recent(ctx context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.size()
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Entry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.buf)) % len(m.buf)
		out = append(out, m.buf[idx])
	}
	return out, nil
}

// Prune для кольцевого буфера выкидывает старые записи, сохраняя порядок остальных.
func (m *Memory) Prune(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.size()
	kept := make([]Entry, 0, n)
	for i := n; i >= 1; i-- {
		e := m.buf[(m.next-i+len(m.buf))%len(m.buf)]
		if !e.CreatedAt.Before(before) {
			kept = append(kept, e)
		}
	}
	removed := int64(n - len(kept))
	m.buf = make([]Entry, len(m.buf))
	copy(m.buf, kept)
	m.next = len(kept) % len(m.buf)
	m.full = len(kept) == len(m.buf)
	return removed, nil
}

func (m *Memory) Close() error { return nil }
