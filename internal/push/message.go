package push

// Каналы уведомлений Android (создаются мобильным клиентом).
const (
	ChannelHistory  = "history"
	ChannelMessages = "messages"
)

// Notification — видимая часть пуша.
type Notification struct {
	Title                 string `json:"title"`
	Body                  string `json:"body"`
	Icon                  string `json:"icon,omitempty"`
	ChannelID             string `json:"channelId"`
	Tag                   string `json:"tag,omitempty"`
	ImageURL              string `json:"imageUrl,omitempty"`
	DefaultSound          bool   `json:"default_sound"`
	DefaultVibrateTimings bool   `json:"default_vibrate_timings"`
}

// Message — уведомление, адресованное топику (id чата или задачи).
// Кто получит пуш, решает провайдер по подпискам на топик.
type Message struct {
	Data         map[string]string `json:"data"`
	Notification Notification      `json:"notification"`
	Topic        string            `json:"topic"`
}

// WireMessage — формат, в котором сообщение уходит во внешние сервисы доставки.
type WireMessage struct {
	Data    map[string]string `json:"data"`
	Android struct {
		Notification Notification `json:"notification"`
	} `json:"android"`
	Topic string `json:"topic"`
}

func (m *Message) Wire() WireMessage {
	var w WireMessage
	w.Data = m.Data
	w.Android.Notification = m.Notification
	w.Topic = m.Topic
	return w
}

// WebPayload — тело web push / ws-события, которое разбирает service worker клиента.
type WebPayload struct {
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	Icon    string            `json:"icon,omitempty"`
	Image   string            `json:"image,omitempty"`
	Tag     string            `json:"tag,omitempty"`
	Channel string            `json:"channel"`
	Topic   string            `json:"topic"`
	Data    map[string]string `json:"data,omitempty"`
}

func (m *Message) WebPayload() WebPayload {
	return WebPayload{
		Title:   m.Notification.Title,
		Body:    m.Notification.Body,
		Icon:    m.Notification.Icon,
		Image:   m.Notification.ImageURL,
		Tag:     m.Notification.Tag,
		Channel: m.Notification.ChannelID,
		Topic:   m.Topic,
		Data:    m.Data,
	}
}
