package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"

	"github.com/notifier/internal/logger"
	"github.com/notifier/internal/storage"
)

// WebPush рассылает сообщение всем web push подпискам топика (VAPID).
// Подписки с ответом 404/410 удаляются.
type WebPush struct {
	topics storage.TopicStore
	opts   *webpush.Options
}

func NewWebPush(topics storage.TopicStore, keys *VAPIDKeys, subscriber string, client webpush.HTTPClient) *WebPush {
	if subscriber == "" {
		subscriber = "notifier"
	}
	return &WebPush{
		topics: topics,
		opts: &webpush.Options{
			Subscriber:      subscriber,
			VAPIDPublicKey:  keys.PublicKey,
			VAPIDPrivateKey: keys.PrivateKey,
			TTL:             30,
			HTTPClient:      client,
		},
	}
}

func (p *WebPush) Name() string { return "webpush" }

func (p *WebPush) Send(ctx context.Context, m *Message) (string, error) {
	defer logger.DeferLogDuration("webpush.Send", time.Now())()
	subs, err := p.topics.Subscriptions(ctx, m.Topic)
	if err != nil {
		return "", fmt.Errorf("webpush topic=%s: %w", m.Topic, err)
	}
	id := uuid.NewString()
	if len(subs) == 0 {
		logger.Debugf("webpush topic=%s: no subscribers", m.Topic)
		return id, nil
	}
	payload, err := json.Marshal(m.WebPayload())
	if err != nil {
		return "", fmt.Errorf("webpush encode: %w", err)
	}

	var errs []error
	for i := range subs {
		sub := &subs[i]
		wpSub := &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys:     webpush.Keys{P256dh: sub.Keys.P256dh, Auth: sub.Keys.Auth},
		}
		resp, err := webpush.SendNotificationWithContext(ctx, payload, wpSub, p.opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", MaskEndpoint(sub.Endpoint), err))
			continue
		}
		resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
			logger.Infof("webpush topic=%s: subscription %s expired, removing", m.Topic, MaskEndpoint(sub.Endpoint))
			if err := p.topics.Unsubscribe(ctx, m.Topic, sub.Endpoint); err != nil {
				logger.Errorf("webpush unsubscribe: %v", err)
			}
		case resp.StatusCode >= 400:
			errs = append(errs, fmt.Errorf("%s: status %d", MaskEndpoint(sub.Endpoint), resp.StatusCode))
		}
	}
	// Ошибка — только если не доставили ни одной подписке.
	if len(errs) == len(subs) {
		return "", fmt.Errorf("webpush topic=%s: %w", m.Topic, errors.Join(errs...))
	}
	for _, e := range errs {
		logger.Warnf("webpush topic=%s: %v", m.Topic, e)
	}
	return id, nil
}
