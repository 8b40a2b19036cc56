// Package notify собирает содержимое пуша из разрешённого контекста. Чистые функции, без I/O.
package notify

import (
	"strconv"

	"github.com/notifier/internal/model"
	"github.com/notifier/internal/push"
	"github.com/notifier/internal/resolver"
)

// Значения поля data["type"].
const (
	TypeHistory = "history"
	TypeMessage = "message"
)

// Variant — один из четырёх видов уведомления о сообщении.
type Variant int

const (
	PersonalMonogram Variant = iota
	PersonalImage
	GroupMonogram
	GroupImage
)

func (v Variant) String() string {
	switch v {
	case PersonalMonogram:
		return "personal+monogram"
	case PersonalImage:
		return "personal+image"
	case GroupMonogram:
		return "group+monogram"
	case GroupImage:
		return "group+image"
	}
	return "variant(" + strconv.Itoa(int(v)) + ")"
}

func (v Variant) Personal() bool  { return v == PersonalMonogram || v == PersonalImage }
func (v Variant) WithImage() bool { return v == PersonalImage || v == GroupImage }

// VariantOf: для личного чата решает аватар отправителя, для группового — картинка команды.
func VariantOf(personal bool, src model.ImageSource) Variant {
	switch {
	case personal && src.IsMonogram():
		return PersonalMonogram
	case personal:
		return PersonalImage
	case src.IsMonogram():
		return GroupMonogram
	default:
		return GroupImage
	}
}

func base(title, body, icon, channel, tag string) push.Notification {
	return push.Notification{
		Title:                 title,
		Body:                  body,
		Icon:                  icon,
		ChannelID:             channel,
		Tag:                   tag,
		DefaultSound:          true,
		DefaultVibrateTimings: true,
	}
}

// History — уведомление о новой записи истории задачи. Топик — id задачи.
func History(hc *resolver.HistoryContext, icon string) *push.Message {
	return &push.Message{
		Data: map[string]string{
			"type":      TypeHistory,
			"taskId":    hc.Task.ID,
			"projectId": hc.Project.ID,
			"historyId": hc.Entry.ID,
		},
		Notification: base(
			hc.Task.TaskName+" in "+hc.Project.ProjectName,
			hc.Entry.Text,
			icon,
			push.ChannelHistory,
			hc.Entry.User,
		),
		Topic: hc.Task.ID,
	}
}

// Message — уведомление о сообщении в чате. Топик — id чата.
func Message(mc *resolver.MessageContext, icon string) *push.Message {
	msg, sender, team := mc.Message, mc.Sender, mc.Team
	src := team.ImageSource
	if mc.Chat.Personal {
		src = sender.ProfileImageSource
	}
	v := VariantOf(mc.Chat.Personal, src)

	var n push.Notification
	if v.Personal() {
		n = base(sender.Nickname+" | "+team.Name, msg.Content, icon, push.ChannelMessages, personalTag(msg))
	} else {
		n = base(team.Name, sender.Nickname+": "+msg.Content, icon, push.ChannelMessages, msg.SenderID)
	}
	if v.WithImage() {
		if v.Personal() {
			n.ImageURL = sender.ProfileImage
		} else {
			n.ImageURL = team.Image
		}
	}

	return &push.Message{
		Data: map[string]string{
			"type":      TypeMessage,
			"chatId":    msg.ChatID,
			"teamId":    team.ID,
			"senderId":  msg.SenderID,
			"messageId": msg.ID,
			"personal":  strconv.FormatBool(mc.Chat.Personal),
		},
		Notification: n,
		Topic:        msg.ChatID,
	}
}

// personalTag — первый непрочитавший; если список пуст, тег по отправителю.
func personalTag(m *model.Message) string {
	if len(m.Unread) > 0 && m.Unread[0] != "" {
		return m.Unread[0]
	}
	return m.SenderID
}
