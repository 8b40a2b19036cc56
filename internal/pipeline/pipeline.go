// Package pipeline связывает изменения из ленты с отправкой пушей:
// разбор документа -> разрешение ссылок -> сборка уведомления -> одна попытка отправки.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/notifier/internal/logger"
	"github.com/notifier/internal/model"
	"github.com/notifier/internal/notify"
	"github.com/notifier/internal/push"
	"github.com/notifier/internal/resolver"
	"github.com/notifier/internal/storage"
)

// Pipeline обрабатывает каждое изменение в своей горутине; порядок между записями не гарантируется.
type Pipeline struct {
	resolver   *resolver.Resolver
	dispatcher *push.Dispatcher
	icon       string
	wg         sync.WaitGroup
}

func New(r *resolver.Resolver, d *push.Dispatcher, icon string) *Pipeline {
	return &Pipeline{resolver: r, dispatcher: d, icon: icon}
}

// HandleHistory — feed.Handler для коллекции history. Не блокирует ленту.
func (p *Pipeline) HandleHistory(ctx context.Context, c storage.Change) {
	p.spawn(ctx, storage.CollectionHistory, c, p.ProcessHistory)
}

// HandleMessage — feed.Handler для коллекции messages. Не блокирует ленту.
func (p *Pipeline) HandleMessage(ctx context.Context, c storage.Change) {
	p.spawn(ctx, storage.CollectionMessages, c, p.ProcessMessage)
}

func (p *Pipeline) spawn(ctx context.Context, collection string, c storage.Change, fn func(context.Context, storage.Change) error) {
	// Начатая обработка доживает до конца при остановке подписки; её ждёт Drain.
	ctx = context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		report(collection, c.DocID, fn(ctx, c))
	}()
}

// report выбирает уровень лога по виду ошибки.
func report(collection, id string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, model.ErrMalformed):
		logger.Warnf("%s/%s dropped: %v", collection, id, err)
	case errors.Is(err, resolver.ErrUnresolvable):
		logger.Infof("%s/%s dropped: %v", collection, id, err)
	case errors.Is(err, errDispatch):
		// Dispatcher уже залогировал ошибку провайдера.
	default:
		logger.Errorf("%s/%s: %v", collection, id, err)
	}
}

var errDispatch = errors.New("dispatch failed")

// ProcessHistory синхронно проводит запись истории через весь конвейер.
func (p *Pipeline) ProcessHistory(ctx context.Context, c storage.Change) error {
	defer logger.DeferLogDuration("pipeline.History", time.Now())()
	entry, err := model.DecodeHistoryEntry(c.DocID, c.Data)
	if err != nil {
		return err
	}
	hc, err := p.resolver.History(ctx, entry)
	if err != nil {
		return err
	}
	return p.dispatch(ctx, notify.History(hc, p.icon))
}

// ProcessMessage синхронно проводит сообщение чата через весь конвейер.
func (p *Pipeline) ProcessMessage(ctx context.Context, c storage.Change) error {
	defer logger.DeferLogDuration("pipeline.Message", time.Now())()
	msg, err := model.DecodeMessage(c.DocID, c.Data)
	if err != nil {
		return err
	}
	mc, err := p.resolver.Message(ctx, msg)
	if err != nil {
		return err
	}
	return p.dispatch(ctx, notify.Message(mc, p.icon))
}

func (p *Pipeline) dispatch(ctx context.Context, m *push.Message) error {
	if _, err := p.dispatcher.Dispatch(ctx, m); err != nil {
		return errors.Join(errDispatch, err)
	}
	return nil
}

// Drain ждёт завершения начатых обработок не дольше timeout. false — не дождались.
func (p *Pipeline) Drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
