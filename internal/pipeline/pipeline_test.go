package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifier/internal/feed"
	"github.com/notifier/internal/journal"
	"github.com/notifier/internal/model"
	"github.com/notifier/internal/push"
	"github.com/notifier/internal/resolver"
	"github.com/notifier/internal/storage"
	"github.com/notifier/internal/storage/memory"
)

type recordingProvider struct {
	mu   sync.Mutex
	sent []*push.Message
	err  error
}

func (p *recordingProvider) Name() string { return "recording" }

func (p *recordingProvider) Send(_ context.Context, m *push.Message) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, m)
	if p.err != nil {
		return "", p.err
	}
	return "id", nil
}

func (p *recordingProvider) messages() []*push.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*push.Message(nil), p.sent...)
}

type env struct {
	store    *memory.Store
	provider *recordingProvider
	journal  *journal.Memory
	pipe     *Pipeline
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.New()
	p := &recordingProvider{}
	j := journal.NewMemory(100)
	pipe := New(resolver.New(store, time.Second), push.NewDispatcher(p, j, time.Second), "ic_notification")
	return &env{store: store, provider: p, journal: j, pipe: pipe}
}

// run поднимает обе подписки и ждёт, пока они отбросят начальные снапшоты.
func (e *env) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		e.pipe.Drain(2 * time.Second)
	})
	subs := []*feed.Subscription{
		feed.New(e.store, storage.CollectionHistory, e.pipe.HandleHistory),
		feed.New(e.store, storage.CollectionMessages, e.pipe.HandleMessage),
	}
	for _, s := range subs {
		go func() { _ = s.Run(ctx) }()
	}
	require.Eventually(t, func() bool {
		return subs[0].Stats().Discarded == 1 && subs[1].Stats().Discarded == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func (e *env) seedTaskChain() {
	e.store.Seed(storage.CollectionTasks, "t1", map[string]any{"taskName": "Design Review", "history": []any{"h0", "h1"}})
	e.store.Seed(storage.CollectionProjects, "p1", map[string]any{"projectName": "TeamOn Launch", "tasks": []any{"t1"}})
}

func (e *env) seedChat(personal bool) {
	e.store.Seed(storage.CollectionChats, "c1", map[string]any{"teamId": "tm1", "personal": personal, "userIds": []any{"s1", "r1"}})
	e.store.Seed(storage.CollectionTeams, "tm1", map[string]any{"name": "Alice & Bob", "image": "https://img/team.png", "imageSource": "UPLOAD"})
	e.store.Seed(storage.CollectionUsers, "s1", map[string]any{"nickname": "Alice", "profileImageSource": "MONOGRAM"})
}

func TestInitialSnapshotProducesNoDispatch(t *testing.T) {
	e := newEnv(t)
	e.seedTaskChain()
	e.store.Seed(storage.CollectionHistory, "h0", map[string]any{"text": "created", "user": "u1"})
	e.seedChat(true)
	e.store.Seed(storage.CollectionMessages, "m0", map[string]any{"chatId": "c1", "senderId": "s1", "content": "old"})

	e.run(t)
	require.True(t, e.pipe.Drain(time.Second))
	assert.Empty(t, e.provider.messages())
}

func TestHistoryScenario(t *testing.T) {
	e := newEnv(t)
	e.seedTaskChain()
	e.run(t)

	e.store.Put(storage.CollectionHistory, "h1", map[string]any{"text": "Status changed to Completed", "user": "u9"})

	require.Eventually(t, func() bool { return len(e.provider.messages()) == 1 }, 2*time.Second, 5*time.Millisecond)
	m := e.provider.messages()[0]
	assert.Equal(t, "t1", m.Topic)
	assert.Equal(t, "Design Review in TeamOn Launch", m.Notification.Title)
	assert.Equal(t, "Status changed to Completed", m.Notification.Body)
	assert.Equal(t, "u9", m.Notification.Tag)
	assert.Equal(t, push.ChannelHistory, m.Notification.ChannelID)

	require.True(t, e.pipe.Drain(time.Second))
	entries, err := e.journal.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].OK())
}

func TestMessageScenario(t *testing.T) {
	e := newEnv(t)
	e.seedChat(true)
	e.run(t)

	e.store.Put(storage.CollectionMessages, "m1", map[string]any{"chatId": "c1", "senderId": "s1", "content": "Hello"})

	require.Eventually(t, func() bool { return len(e.provider.messages()) == 1 }, 2*time.Second, 5*time.Millisecond)
	m := e.provider.messages()[0]
	assert.Equal(t, "c1", m.Topic)
	assert.Equal(t, "Alice | Alice & Bob", m.Notification.Title)
	assert.Equal(t, "Hello", m.Notification.Body)
	assert.Empty(t, m.Notification.ImageURL)
	assert.Equal(t, push.ChannelMessages, m.Notification.ChannelID)
}

func TestGroupMessage(t *testing.T) {
	e := newEnv(t)
	e.seedChat(false)
	e.run(t)

	e.store.Put(storage.CollectionMessages, "m1", map[string]any{"chatId": "c1", "senderId": "s1", "content": "Hi all"})

	require.Eventually(t, func() bool { return len(e.provider.messages()) == 1 }, 2*time.Second, 5*time.Millisecond)
	m := e.provider.messages()[0]
	assert.Equal(t, "Alice & Bob", m.Notification.Title)
	assert.Equal(t, "Alice: Hi all", m.Notification.Body)
	assert.Equal(t, "https://img/team.png", m.Notification.ImageURL)
	assert.Equal(t, "s1", m.Notification.Tag)
}

func TestRedeliveryDispatchesTwice(t *testing.T) {
	e := newEnv(t)
	e.seedTaskChain()
	e.store.Seed(storage.CollectionHistory, "h1", map[string]any{"text": "done", "user": "u9"})
	e.run(t)

	change := storage.Change{Type: storage.ChangeModified, DocID: "h1", Data: map[string]any{"text": "done", "user": "u9"}}
	for range 2 {
		e.store.Emit(storage.Snapshot{Collection: storage.CollectionHistory, Changes: []storage.Change{change}})
	}

	require.Eventually(t, func() bool { return len(e.provider.messages()) == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestUnresolvableHistory(t *testing.T) {
	cases := []struct {
		name string
		seed func(*memory.Store)
	}{
		{"no owning task", func(*memory.Store) {}},
		{"task without project", func(s *memory.Store) {
			s.Seed(storage.CollectionTasks, "t1", map[string]any{"taskName": "Orphan", "history": []any{"h1"}})
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			tc.seed(e.store)

			err := e.pipe.ProcessHistory(context.Background(), storage.Change{
				Type: storage.ChangeAdded, DocID: "h1", Data: map[string]any{"text": "x", "user": "u1"},
			})
			require.ErrorIs(t, err, resolver.ErrUnresolvable)
			assert.Empty(t, e.provider.messages())
		})
	}
}

func TestUnresolvableMessage(t *testing.T) {
	e := newEnv(t)
	e.store.Seed(storage.CollectionChats, "c1", map[string]any{"teamId": "tm-missing", "personal": false})

	err := e.pipe.ProcessMessage(context.Background(), storage.Change{
		Type: storage.ChangeAdded, DocID: "m1", Data: map[string]any{"chatId": "c1", "senderId": "s1", "content": "x"},
	})
	require.ErrorIs(t, err, resolver.ErrUnresolvable)
	assert.Empty(t, e.provider.messages())
}

func TestMalformedRecord(t *testing.T) {
	e := newEnv(t)
	err := e.pipe.ProcessMessage(context.Background(), storage.Change{
		Type: storage.ChangeAdded, DocID: "m1", Data: map[string]any{"content": "no chat"},
	})
	require.ErrorIs(t, err, model.ErrMalformed)
	assert.Empty(t, e.provider.messages())
}

func TestDispatchFailureIsReportedOnce(t *testing.T) {
	e := newEnv(t)
	e.provider.err = errors.New("provider down")
	e.seedTaskChain()

	err := e.pipe.ProcessHistory(context.Background(), storage.Change{
		Type: storage.ChangeAdded, DocID: "h1", Data: map[string]any{"text": "x", "user": "u1"},
	})
	require.ErrorIs(t, err, errDispatch)
	assert.Len(t, e.provider.messages(), 1)

	entries, err := e.journal.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].OK())
}

func TestDrainWaitsForInFlight(t *testing.T) {
	e := newEnv(t)
	e.seedTaskChain()
	ctx, cancel := context.WithCancel(context.Background())
	e.pipe.HandleHistory(ctx, storage.Change{Type: storage.ChangeAdded, DocID: "h1", Data: map[string]any{"text": "x", "user": "u1"}})
	// Отмена контекста ленты не прерывает начатую обработку.
	cancel()
	require.True(t, e.pipe.Drain(2*time.Second))
	assert.Len(t, e.provider.messages(), 1)
}
