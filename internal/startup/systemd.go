package startup

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/notifier/internal/logger"
)

// NotifyReady сообщает systemd (Type=notify), что подписки открыты и HTTP слушает.
// Вне systemd (нет NOTIFY_SOCKET) ничего не делает.
func NotifyReady() {
	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Errorf("systemd notify ready: %v", err)
	} else if sent {
		logger.Info("systemd: READY=1")
	}
}

// NotifyStopping — начало корректной остановки.
func NotifyStopping() {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		logger.Errorf("systemd notify stopping: %v", err)
	}
}

// RunWatchdog пингует watchdog systemd с половинным интервалом WatchdogSec, пока жив ctx.
func RunWatchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		logger.Errorf("systemd watchdog: %v", err)
		return
	}
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
				logger.Errorf("systemd watchdog ping: %v", err)
			}
		}
	}
}
