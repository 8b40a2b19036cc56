package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/notifier/internal/storage"
)

// Подписки топика живут 30 дней с последней подписки; не больше 500 endpoint на топик.
const (
	topicKeyPrefix  = "push:topic:"
	MaxSubsPerTopic = 500
	SubscriptionTTL = 30 * 24 * time.Hour
)

// Client реализует storage.TopicStore: список JSON-подписок по ключу push:topic:{topic}.
type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

// NewFromClient оборачивает готовый клиент (тесты, общий пул).
func NewFromClient(cli *redis.Client) *Client {
	return &Client{cli: cli}
}

func (c *Client) Close() error {
	return c.cli.Close()
}

func key(topic string) string { return topicKeyPrefix + topic }

// Subscribe добавляет подписку в конец списка, обрезает до MaxSubsPerTopic и продлевает TTL.
// Старая запись с тем же endpoint удаляется, чтобы не слать дубли.
func (c *Client) Subscribe(ctx context.Context, topic string, sub storage.Subscription) error {
	raw, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("redis.Subscribe encode: %w", err)
	}
	if err := c.Unsubscribe(ctx, topic, sub.Endpoint); err != nil {
		return err
	}
	k := key(topic)
	pipe := c.cli.Pipeline()
	pipe.RPush(ctx, k, string(raw))
	pipe.LTrim(ctx, k, -MaxSubsPerTopic, -1)
	pipe.Expire(ctx, k, SubscriptionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis.Subscribe %s: %w", topic, err)
	}
	return nil
}

// Unsubscribe удаляет подписку по endpoint. Отсутствие подписки — не ошибка.
func (c *Client) Unsubscribe(ctx context.Context, topic, endpoint string) error {
	k := key(topic)
	list, err := c.cli.LRange(ctx, k, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("redis.Unsubscribe %s: %w", topic, err)
	}
	for _, item := range list {
		var sub storage.Subscription
		if json.Unmarshal([]byte(item), &sub) == nil && sub.Endpoint == endpoint {
			if err := c.cli.LRem(ctx, k, 0, item).Err(); err != nil {
				return fmt.Errorf("redis.Unsubscribe %s: %w", topic, err)
			}
		}
	}
	return nil
}

// Subscriptions возвращает валидные подписки топика; битые записи пропускаются.
func (c *Client) Subscriptions(ctx context.Context, topic string) ([]storage.Subscription, error) {
	list, err := c.cli.LRange(ctx, key(topic), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis.Subscriptions %s: %w", topic, err)
	}
	subs := make([]storage.Subscription, 0, len(list))
	for _, item := range list {
		var sub storage.Subscription
		if json.Unmarshal([]byte(item), &sub) == nil && sub.Endpoint != "" {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}
