package notify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifier/internal/model"
	"github.com/notifier/internal/push"
	"github.com/notifier/internal/resolver"
)

func TestHistory(t *testing.T) {
	hc := &resolver.HistoryContext{
		Entry:   &model.HistoryEntry{ID: "h1", Text: "Status changed to Completed", User: "u9"},
		Task:    &model.Task{ID: "t1", TaskName: "Design Review", History: []string{"h1"}},
		Project: &model.Project{ID: "p1", ProjectName: "TeamOn Launch", Tasks: []string{"t1"}},
	}
	m := History(hc, "ic_notification")

	assert.Equal(t, "t1", m.Topic)
	assert.Equal(t, "Design Review in TeamOn Launch", m.Notification.Title)
	assert.Equal(t, "Status changed to Completed", m.Notification.Body)
	assert.Equal(t, "u9", m.Notification.Tag)
	assert.Equal(t, push.ChannelHistory, m.Notification.ChannelID)
	assert.Equal(t, "ic_notification", m.Notification.Icon)
	assert.True(t, m.Notification.DefaultSound)
	assert.True(t, m.Notification.DefaultVibrateTimings)
	assert.Empty(t, m.Notification.ImageURL)
	assert.Equal(t, map[string]string{
		"type": TypeHistory, "taskId": "t1", "projectId": "p1", "historyId": "h1",
	}, m.Data)
}

func messageContext(personal bool, userSrc, teamSrc model.ImageSource) *resolver.MessageContext {
	return &resolver.MessageContext{
		Message: &model.Message{ID: "m1", ChatID: "c1", SenderID: "s1", Content: "Hello", Unread: []string{"r1", "r2"}},
		Chat:    &model.Chat{ID: "c1", TeamID: "tm1", Personal: personal},
		Team:    &model.Team{ID: "tm1", Name: "Alice & Bob", Image: "https://img/team.png", ImageSource: teamSrc},
		Sender:  &model.User{ID: "s1", Nickname: "Alice", ProfileImage: "https://img/alice.png", ProfileImageSource: userSrc},
	}
}

func TestMessageVariants(t *testing.T) {
	cases := []struct {
		name    string
		mc      *resolver.MessageContext
		variant Variant
		title   string
		body    string
		image   string
		tag     string
	}{
		{
			name:    "personal monogram",
			mc:      messageContext(true, model.ImageSourceMonogram, "UPLOAD"),
			variant: PersonalMonogram,
			title:   "Alice | Alice & Bob",
			body:    "Hello",
			tag:     "r1",
		},
		{
			name:    "personal image",
			mc:      messageContext(true, "UPLOAD", model.ImageSourceMonogram),
			variant: PersonalImage,
			title:   "Alice | Alice & Bob",
			body:    "Hello",
			image:   "https://img/alice.png",
			tag:     "r1",
		},
		{
			name:    "group monogram",
			mc:      messageContext(false, "UPLOAD", model.ImageSourceMonogram),
			variant: GroupMonogram,
			title:   "Alice & Bob",
			body:    "Alice: Hello",
			tag:     "s1",
		},
		{
			name:    "group image",
			mc:      messageContext(false, model.ImageSourceMonogram, "UPLOAD"),
			variant: GroupImage,
			title:   "Alice & Bob",
			body:    "Alice: Hello",
			image:   "https://img/team.png",
			tag:     "s1",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := tc.mc.Team.ImageSource
			if tc.mc.Chat.Personal {
				src = tc.mc.Sender.ProfileImageSource
			}
			assert.Equal(t, tc.variant, VariantOf(tc.mc.Chat.Personal, src))

			m := Message(tc.mc, "")
			assert.Equal(t, "c1", m.Topic)
			assert.Equal(t, push.ChannelMessages, m.Notification.ChannelID)
			assert.Equal(t, tc.title, m.Notification.Title)
			assert.Equal(t, tc.body, m.Notification.Body)
			assert.Equal(t, tc.image, m.Notification.ImageURL)
			assert.Equal(t, tc.tag, m.Notification.Tag)
		})
	}
}

func TestMessagePersonalMonogramScenario(t *testing.T) {
	mc := &resolver.MessageContext{
		Message: &model.Message{ChatID: "c1", SenderID: "s1", Content: "Hello"},
		Chat:    &model.Chat{ID: "c1", TeamID: "tm1", Personal: true},
		Team:    &model.Team{ID: "tm1", Name: "Alice & Bob"},
		Sender:  &model.User{ID: "s1", Nickname: "Alice", ProfileImageSource: model.ImageSourceMonogram},
	}
	m := Message(mc, "ic_notification")

	assert.Equal(t, "c1", m.Topic)
	assert.Equal(t, "Alice | Alice & Bob", m.Notification.Title)
	assert.Equal(t, "Hello", m.Notification.Body)
	// unread пуст — тег по отправителю
	assert.Equal(t, "s1", m.Notification.Tag)

	raw, err := json.Marshal(m.Wire())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "imageUrl")
}

func TestMessageImageVariantWithEmptyURL(t *testing.T) {
	mc := messageContext(false, model.ImageSourceMonogram, "UPLOAD")
	mc.Team.Image = ""
	m := Message(mc, "")
	assert.Equal(t, GroupImage, VariantOf(false, mc.Team.ImageSource))
	assert.Empty(t, m.Notification.ImageURL)
}

func TestMessageData(t *testing.T) {
	m := Message(messageContext(false, "", ""), "")
	assert.Equal(t, map[string]string{
		"type":      TypeMessage,
		"chatId":    "c1",
		"teamId":    "tm1",
		"senderId":  "s1",
		"messageId": "m1",
		"personal":  "false",
	}, m.Data)
}
