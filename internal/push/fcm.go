package push

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

// FCMSender — часть *messaging.Client, нужная провайдеру (подменяется в тестах).
type FCMSender interface {
	Send(ctx context.Context, m *messaging.Message) (string, error)
}

// FCM отправляет сообщение в топик Firebase Cloud Messaging.
type FCM struct {
	client FCMSender
}

func NewFCM(client FCMSender) *FCM {
	return &FCM{client: client}
}

func (p *FCM) Name() string { return "fcm" }

func (p *FCM) Send(ctx context.Context, m *Message) (string, error) {
	id, err := p.client.Send(ctx, ToFCM(m))
	if err != nil {
		return "", fmt.Errorf("fcm send topic=%s: %w", m.Topic, err)
	}
	return id, nil
}

// ToFCM переводит сообщение в формат FCM: видимая часть только в android.notification.
func ToFCM(m *Message) *messaging.Message {
	n := m.Notification
	return &messaging.Message{
		Data:  m.Data,
		Topic: m.Topic,
		Android: &messaging.AndroidConfig{
			Notification: &messaging.AndroidNotification{
				Title:                 n.Title,
				Body:                  n.Body,
				Icon:                  n.Icon,
				ChannelID:             n.ChannelID,
				Tag:                   n.Tag,
				ImageURL:              n.ImageURL,
				DefaultSound:          n.DefaultSound,
				DefaultVibrateTimings: n.DefaultVibrateTimings,
			},
		},
	}
}
