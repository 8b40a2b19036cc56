package storage

import (
	"context"
	"errors"
)

// ErrNotFound — документа нет (или reverse-запрос ничего не нашёл). Не ошибка обработки.
var ErrNotFound = errors.New("not found")

// Названия коллекций документного хранилища (пишет мобильный клиент).
const (
	CollectionHistory  = "history"
	CollectionMessages = "messages"
	CollectionTasks    = "tasks"
	CollectionProjects = "projects"
	CollectionChats    = "chats"
	CollectionTeams    = "teams"
	CollectionUsers    = "users"
)

// ChangeType — тип изменения документа в снапшоте.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// Document — документ коллекции в сыром виде.
type Document struct {
	ID   string
	Data map[string]any
}

// Change — одно изменение в снапшоте коллекции.
type Change struct {
	Type  ChangeType
	DocID string
	Data  map[string]any
}

// Snapshot — пачка изменений коллекции.
// Первый снапшот после подписки содержит текущее состояние (все документы как added).
// Resync выставляется, если бэкенд переподключил поток и снова прислал полное состояние.
// Err — ошибка потока; подписка при этом остаётся открытой.
type Snapshot struct {
	Collection string
	Changes    []Change
	Resync     bool
	Err        error
}

// DocumentStore — документное хранилище, из которого читает сервис уведомлений.
// Реализации: firestore.Store, postgres.Store, memory.Store (тесты).
type DocumentStore interface {
	// Get возвращает документ по id или ErrNotFound.
	Get(ctx context.Context, collection, id string) (*Document, error)
	// QueryFirst ищет документы, у которых массив field содержит value, упорядоченные по id.
	// Возвращает первый найденный и общее число найденных (до limit), ErrNotFound если пусто.
	QueryFirst(ctx context.Context, collection, field, value string, limit int) (*Document, int, error)
	// Watch подписывается на изменения коллекции. Канал закрывается при отмене ctx.
	Watch(ctx context.Context, collection string) (<-chan Snapshot, error)
	Close() error
}

// Subscription — подписка браузера (Web Push) на топик.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// TopicStore — реестр подписок на топики для web push.
// Реализации: redis.Client, memory.Topics (тесты и -dev без Redis).
type TopicStore interface {
	Subscribe(ctx context.Context, topic string, sub Subscription) error
	Unsubscribe(ctx context.Context, topic, endpoint string) error
	Subscriptions(ctx context.Context, topic string) ([]Subscription, error)
	Close() error
}
