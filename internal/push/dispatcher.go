package push

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/notifier/internal/journal"
	"github.com/notifier/internal/logger"
)

// ErrNoTopic — сообщение без топика отправлять некуда.
var ErrNoTopic = errors.New("push: empty topic")

// Provider доставляет сообщение подписчикам топика и возвращает id, присвоенный доставкой.
type Provider interface {
	Name() string
	Send(ctx context.Context, m *Message) (string, error)
}

const defaultSendTimeout = 10 * time.Second

// Dispatcher делает ровно одну попытку отправки на событие: без повторов и очередей.
// Исход пишется в лог и в журнал.
type Dispatcher struct {
	provider Provider
	journal  journal.Journal
	timeout  time.Duration
}

// NewDispatcher создаёт диспетчер. j может быть nil — тогда исход только логируется.
func NewDispatcher(p Provider, j journal.Journal, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &Dispatcher{provider: p, journal: j, timeout: timeout}
}

func (d *Dispatcher) Provider() string { return d.provider.Name() }

// Dispatch отправляет сообщение. Ошибка возвращается только для наблюдения (тесты, метрики):
// вызывающий не должен ничего повторять.
func (d *Dispatcher) Dispatch(ctx context.Context, m *Message) (string, error) {
	defer logger.DeferLogDuration("push.Dispatch", time.Now())()
	var id string
	var err error
	if m.Topic == "" {
		err = ErrNoTopic
	} else {
		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		id, err = d.provider.Send(sendCtx, m)
		cancel()
	}

	if err != nil {
		logger.Errorf("push %s channel=%s topic=%s: %v", d.provider.Name(), m.Notification.ChannelID, m.Topic, err)
	} else {
		logger.Infof("push sent provider=%s channel=%s topic=%s id=%s", d.provider.Name(), m.Notification.ChannelID, m.Topic, id)
	}

	if d.journal != nil {
		e := journal.Entry{
			ID:        uuid.NewString(),
			Provider:  d.provider.Name(),
			Channel:   m.Notification.ChannelID,
			Topic:     m.Topic,
			Title:     m.Notification.Title,
			MessageID: id,
			CreatedAt: time.Now(),
		}
		if err != nil {
			e.Error = err.Error()
		}
		// Журнал не должен зависеть от отмены контекста события.
		jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if jerr := d.journal.Record(jctx, e); jerr != nil {
			logger.Errorf("journal record: %v", jerr)
		}
		cancel()
	}
	return id, err
}
