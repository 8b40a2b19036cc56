package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifier/internal/model"
	"github.com/notifier/internal/storage"
	"github.com/notifier/internal/storage/memory"
)

func seedHistory(s *memory.Store) {
	s.Seed(storage.CollectionTasks, "t1", map[string]any{"taskName": "Design Review", "history": []any{"h1"}})
	s.Seed(storage.CollectionProjects, "p1", map[string]any{"projectName": "TeamOn Launch", "tasks": []any{"t1"}})
}

func seedChat(s *memory.Store, personal bool) {
	s.Seed(storage.CollectionChats, "c1", map[string]any{"teamId": "tm1", "personal": personal, "userIds": []any{"s1", "u2"}})
	s.Seed(storage.CollectionTeams, "tm1", map[string]any{"name": "Alice & Bob", "image": "https://img/team.png", "imageSource": "STORAGE"})
	s.Seed(storage.CollectionUsers, "s1", map[string]any{"nickname": "Alice", "profileImageSource": "MONOGRAM"})
}

func TestHistoryResolved(t *testing.T) {
	s := memory.New()
	seedHistory(s)
	r := New(s, time.Second)

	hc, err := r.History(context.Background(), &model.HistoryEntry{ID: "h1", Text: "Status changed to Completed", User: "u9"})
	require.NoError(t, err)
	assert.Equal(t, "t1", hc.Task.ID)
	assert.Equal(t, "Design Review", hc.Task.TaskName)
	assert.Equal(t, "p1", hc.Project.ID)
	assert.Equal(t, "TeamOn Launch", hc.Project.ProjectName)
}

func TestHistoryUnresolvable(t *testing.T) {
	t.Run("no owning task", func(t *testing.T) {
		s := memory.New()
		seedHistory(s)
		_, err := New(s, time.Second).History(context.Background(), &model.HistoryEntry{ID: "h2"})
		require.ErrorIs(t, err, ErrUnresolvable)
		assert.Contains(t, err.Error(), AwaitingTask.String())
	})

	t.Run("task without project", func(t *testing.T) {
		s := memory.New()
		s.Seed(storage.CollectionTasks, "t1", map[string]any{"taskName": "Orphan", "history": []any{"h1"}})
		_, err := New(s, time.Second).History(context.Background(), &model.HistoryEntry{ID: "h1"})
		require.ErrorIs(t, err, ErrUnresolvable)
		assert.Contains(t, err.Error(), AwaitingProject.String())
	})

	t.Run("malformed task", func(t *testing.T) {
		s := memory.New()
		s.Seed(storage.CollectionTasks, "t1", map[string]any{"history": []any{"h1"}})
		_, err := New(s, time.Second).History(context.Background(), &model.HistoryEntry{ID: "h1"})
		require.ErrorIs(t, err, ErrUnresolvable)
		assert.ErrorIs(t, err, model.ErrMalformed)
	})
}

func TestHistorySeveralOwnersUsesFirstByID(t *testing.T) {
	s := memory.New()
	s.Seed(storage.CollectionTasks, "t2", map[string]any{"taskName": "Second", "history": []any{"h1"}})
	s.Seed(storage.CollectionTasks, "t1", map[string]any{"taskName": "First", "history": []any{"h1"}})
	s.Seed(storage.CollectionProjects, "p1", map[string]any{"projectName": "P", "tasks": []any{"t1", "t2"}})

	for i := 0; i < 5; i++ {
		hc, err := New(s, time.Second).History(context.Background(), &model.HistoryEntry{ID: "h1"})
		require.NoError(t, err)
		assert.Equal(t, "t1", hc.Task.ID)
	}
}

func TestMessageResolved(t *testing.T) {
	s := memory.New()
	seedChat(s, true)
	mc, err := New(s, time.Second).Message(context.Background(), &model.Message{ID: "m1", ChatID: "c1", SenderID: "s1", Content: "Hello"})
	require.NoError(t, err)
	assert.True(t, mc.Chat.Personal)
	assert.Equal(t, "Alice & Bob", mc.Team.Name)
	assert.Equal(t, "Alice", mc.Sender.Nickname)
	assert.True(t, mc.Sender.ProfileImageSource.IsMonogram())
}

func TestMessageUnresolvable(t *testing.T) {
	tests := []struct {
		name  string
		msg   model.Message
		setup func(s *memory.Store)
		state State
	}{
		{"missing chat", model.Message{ChatID: "nope", SenderID: "s1"}, func(s *memory.Store) { seedChat(s, false) }, AwaitingChat},
		{"missing team", model.Message{ChatID: "c1", SenderID: "s1"}, func(s *memory.Store) {
			seedChat(s, false)
			s.Delete(storage.CollectionTeams, "tm1")
		}, AwaitingTeam},
		{"missing sender", model.Message{ChatID: "c1", SenderID: "ghost"}, func(s *memory.Store) { seedChat(s, false) }, AwaitingUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := memory.New()
			tt.setup(s)
			msg := tt.msg
			_, err := New(s, time.Second).Message(context.Background(), &msg)
			require.ErrorIs(t, err, ErrUnresolvable)
			assert.Contains(t, err.Error(), tt.state.String())
		})
	}
}

type failingStore struct {
	*memory.Store
	err error
}

func (f failingStore) Get(ctx context.Context, collection, id string) (*storage.Document, error) {
	return nil, f.err
}

func TestMessageStoreFailureIsNotUnresolvable(t *testing.T) {
	boom := errors.New("permission denied")
	s := failingStore{Store: memory.New(), err: boom}
	_, err := New(s, time.Second).Message(context.Background(), &model.Message{ChatID: "c1", SenderID: "s1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrUnresolvable)
	assert.Contains(t, err.Error(), "chatRepo.GetByID c1")
}
