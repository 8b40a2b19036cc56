package ws

import "github.com/notifier/internal/push"

type EventType string

const (
	// Клиент -> сервер
	EventSubscribe   EventType = "subscribe"
	EventUnsubscribe EventType = "unsubscribe"
	// Сервер -> клиент
	EventNotification EventType = "notification"
	EventSubscribed   EventType = "subscribed"
	EventError        EventType = "error"
)

// IncomingMessage is what the client sends to the server.
type IncomingMessage struct {
	Type   EventType `json:"type"`
	Topics []string  `json:"topics,omitempty"`
}

// OutgoingMessage is what the server sends to the client.
type OutgoingMessage struct {
	Type    EventType `json:"type"`
	ID      string    `json:"id,omitempty"`
	Payload any       `json:"payload"`
}

// SubscribedPayload — текущий набор топиков клиента после subscribe/unsubscribe.
type SubscribedPayload struct {
	Topics []string `json:"topics"`
}

// NotificationPayload — то же содержимое, что получает service worker при web push.
type NotificationPayload = push.WebPayload
