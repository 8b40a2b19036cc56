package memory

import (
	"context"
	"sync"

	"github.com/notifier/internal/storage"
)

const maxSubsPerTopic = 500

// Topics реализует storage.TopicStore в памяти (для тестов и -dev без Redis).
type Topics struct {
	mu   sync.RWMutex
	subs map[string][]storage.Subscription
}

func NewTopics() *Topics {
	return &Topics{subs: make(map[string][]storage.Subscription)}
}

func (t *Topics) Close() error { return nil }

// Subscribe добавляет подписку; повторная подписка того же endpoint заменяет старую.
func (t *Topics) Subscribe(ctx context.Context, topic string, sub storage.Subscription) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	list := t.subs[topic]
	kept := list[:0:0]
	for _, s := range list {
		if s.Endpoint != sub.Endpoint {
			kept = append(kept, s)
		}
	}
	kept = append(kept, sub)
	if len(kept) > maxSubsPerTopic {
		kept = kept[len(kept)-maxSubsPerTopic:]
	}
	t.subs[topic] = kept
	return nil
}

func (t *Topics) Unsubscribe(ctx context.Context, topic, endpoint string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var kept []storage.Subscription
	for _, s := range t.subs[topic] {
		if s.Endpoint != endpoint {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		delete(t.subs, topic)
		return nil
	}
	t.subs[topic] = kept
	return nil
}

func (t *Topics) Subscriptions(ctx context.Context, topic string) ([]storage.Subscription, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]storage.Subscription(nil), t.subs[topic]...), nil
}
