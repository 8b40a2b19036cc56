package startup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemdOutsideSystemd(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	t.Setenv("WATCHDOG_USEC", "")

	NotifyReady()
	NotifyStopping()

	done := make(chan struct{})
	go func() {
		RunWatchdog(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchdog must return when not enabled")
	}
}

func TestConnectDBBadDSN(t *testing.T) {
	_, err := ConnectDBWithRetry(context.Background(), "postgres://%zz", 2, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse db config")
}

func TestConnectDBGivesUpOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	// Порт 1 никто не слушает: первая попытка падает, ожидание прерывается контекстом.
	_, err := ConnectDBWithRetry(ctx, "postgres://u:p@127.0.0.1:1/db?sslmode=disable&connect_timeout=1", 2, time.Minute)
	require.Error(t, err)
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 4*time.Second, nextBackoff(2*time.Second))
	assert.Equal(t, 32*time.Second, nextBackoff(16*time.Second))
	assert.Equal(t, 32*time.Second, nextBackoff(32*time.Second))
}
