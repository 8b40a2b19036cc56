// Package journal хранит исход каждой попытки отправки уведомления: кому, что и с каким результатом.
// Журнал только для наблюдения — повторных отправок по нему нет.
package journal

import (
	"context"
	"time"
)

// Entry — одна попытка отправки.
type Entry struct {
	ID        string    `db:"id" json:"id"`
	Provider  string    `db:"provider" json:"provider"`
	Channel   string    `db:"channel" json:"channel"`
	Topic     string    `db:"topic" json:"topic"`
	Title     string    `db:"title" json:"title"`
	MessageID string    `db:"message_id" json:"message_id,omitempty"`
	Error     string    `db:"error" json:"error,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// OK — отправка принята провайдером.
func (e Entry) OK() bool { return e.Error == "" }

// Journal — хранилище записей. Реализации: Memory (кольцевой буфер), SQLite.
type Journal interface {
	Record(ctx context.Context, e Entry) error
	// Recent возвращает последние записи, новые первыми.
	Recent(ctx context.Context, limit int) ([]Entry, error)
	// Prune удаляет записи старше before и возвращает их число.
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}
