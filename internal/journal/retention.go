package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/notifier/internal/logger"
)

// Retention периодически удаляет записи старше maxAge по cron-расписанию.
type Retention struct {
	c      *cron.Cron
	j      Journal
	maxAge time.Duration
	now    func() time.Time
}

// NewRetention готовит задачу очистки. schedule — cron-выражение ("@daily", "0 */6 * * *").
func NewRetention(j Journal, schedule string, maxAge time.Duration) (*Retention, error) {
	r := &Retention{c: cron.New(), j: j, maxAge: maxAge, now: time.Now}
	if _, err := r.c.AddFunc(schedule, r.RunOnce); err != nil {
		return nil, fmt.Errorf("journal retention schedule %q: %w", schedule, err)
	}
	return r, nil
}

// RunOnce выполняет одну очистку.
func (r *Retention) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := r.j.Prune(ctx, r.now().Add(-r.maxAge))
	if err != nil {
		logger.Errorf("journal prune: %v", err)
		return
	}
	if n > 0 {
		logger.Infof("journal prune: removed %d entries older than %v", n, r.maxAge)
	}
}

func (r *Retention) Start() { r.c.Start() }

// Stop останавливает планировщик и ждёт завершения запущенной очистки.
func (r *Retention) Stop() {
	<-r.c.Stop().Done()
}
