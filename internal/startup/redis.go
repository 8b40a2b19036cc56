package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/notifier/internal/logger"
	redisstorage "github.com/notifier/internal/storage/redis"
)

// ConnectRedisWithRetry подключается к Redis (реестр web push подписок) с повторами.
func ConnectRedisWithRetry(ctx context.Context, redisURL string, maxWait time.Duration) (*redisstorage.Client, error) {
	deadline := time.Now().Add(maxWait)
	backoff := 2 * time.Second
	for {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		client, err := redisstorage.New(pingCtx, redisURL)
		cancel()
		if err == nil {
			return client, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("redis (gave up after %v): %w", maxWait, err)
		}
		logger.Errorf("redis connect failed, retry in %v: %v", backoff, err)
		if err := sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff = nextBackoff(backoff)
	}
}
