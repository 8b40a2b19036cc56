package model

import "time"

// Message — сообщение чата. Unread — список пользователей, ещё не прочитавших сообщение.
type Message struct {
	ID        string    `mapstructure:"-" json:"id"`
	ChatID    string    `mapstructure:"chatId" json:"chatId"`
	SenderID  string    `mapstructure:"senderId" json:"senderId"`
	Content   string    `mapstructure:"content" json:"content"`
	Timestamp time.Time `mapstructure:"timestamp" json:"timestamp"`
	Unread    []string  `mapstructure:"unread" json:"unread"`
}

// DecodeMessage разбирает документ коллекции messages.
func DecodeMessage(id string, data map[string]any) (*Message, error) {
	m := &Message{ID: id}
	if err := decode(data, m); err != nil {
		return nil, malformed("messages", id, err)
	}
	if m.ChatID == "" {
		return nil, missing("messages", id, "chatId")
	}
	if m.SenderID == "" {
		return nil, missing("messages", id, "senderId")
	}
	return m, nil
}
