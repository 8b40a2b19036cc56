package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifier/internal/logger"
)

// ConnectDBWithRetry подключается к Postgres с повторами; при недоступности БД не сдаётся сразу.
// Ошибка — только когда истёк maxWait или отменён ctx; решение о выходе за вызывающим.
func ConnectDBWithRetry(ctx context.Context, dsn string, maxConns int, maxWait time.Duration) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}
	// Каждая подписка держит своё соединение под LISTEN.
	poolCfg.MinConns = 2
	deadline := time.Now().Add(maxWait)
	backoff := 2 * time.Second
	for {
		pool, err := tryConnect(ctx, poolCfg)
		if err == nil {
			return pool, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("connect to db (gave up after %v): %w", maxWait, err)
		}
		logger.Errorf("db connect failed, retry in %v: %v", backoff, err)
		if err := sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff = nextBackoff(backoff)
	}
}

func tryConnect(ctx context.Context, poolCfg *pgxpool.Config) (*pgxpool.Pool, error) {
	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(connCtx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(connCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d < 30*time.Second {
		return d * 2
	}
	return d
}
