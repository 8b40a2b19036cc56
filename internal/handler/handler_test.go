package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifier/internal/feed"
	"github.com/notifier/internal/journal"
	"github.com/notifier/internal/middleware"
	"github.com/notifier/internal/storage"
	"github.com/notifier/internal/storage/memory"
)

type fixture struct {
	topics  *memory.Topics
	journal *journal.Memory
	router  http.Handler
}

func newFixture(t *testing.T, vapid string) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{topics: memory.NewTopics(), journal: journal.NewMemory(10)}
	f.router = NewRouter(Routes{
		Health:     NewHealthHandler("log", feed.New(store, storage.CollectionHistory, func(context.Context, storage.Change) {})),
		Config:     NewConfigHandler(vapid),
		Topics:     NewTopicHandler(f.topics),
		Dispatches: NewDispatchHandler(f.journal),
		RateLimit:  middleware.NewRateLimiter(0, 0),
	})
	return f
}

func (f *fixture) do(method, path string, body any, remote string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if remote != "" {
		req.RemoteAddr = remote
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	f := newFixture(t, "")
	rec := f.do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "log", resp.Provider)
	assert.Contains(t, resp.Feeds, storage.CollectionHistory)
}

func TestVAPIDPublic(t *testing.T) {
	rec := newFixture(t, "BPubKey").do(http.MethodGet, "/api/vapid-public", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BPubKey", rec.Body.String())

	rec = newFixture(t, "").do(http.MethodGet, "/api/vapid-public", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTopicSubscribeUnsubscribe(t *testing.T) {
	f := newFixture(t, "")
	var sub storage.Subscription
	sub.Endpoint = "https://push.example/abc"
	sub.Keys.P256dh = "p"
	sub.Keys.Auth = "a"

	rec := f.do(http.MethodPost, "/api/topics/subscribe", SubscribeRequest{Topic: "c1", Subscription: sub}, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	subs, err := f.topics.Subscriptions(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, subs, 1)

	rec = f.do(http.MethodDelete, "/api/topics/subscribe", UnsubscribeRequest{Topic: "c1", Endpoint: sub.Endpoint}, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	subs, err = f.topics.Subscriptions(context.Background(), "c1")
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestTopicSubscribeValidation(t *testing.T) {
	f := newFixture(t, "")
	rec := f.do(http.MethodPost, "/api/topics/subscribe", map[string]any{"topic": "c1"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeInvalidRequest, decodeError(t, rec).Code)

	rec = f.do(http.MethodDelete, "/api/topics/subscribe", map[string]any{"endpoint": "x"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeInvalidRequest, decodeError(t, rec).Code)
}

func TestTopicSubscribeRejectsBadBody(t *testing.T) {
	f := newFixture(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/topics/subscribe", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeInvalidBody, decodeError(t, rec).Code)

	huge := `{"topic":"c1","subscription":{"endpoint":"` + strings.Repeat("x", maxBodyBytes) + `"}}`
	req = httptest.NewRequest(http.MethodPost, "/api/topics/subscribe", strings.NewReader(huge))
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeInvalidBody, decodeError(t, rec).Code)

	subs, err := f.topics.Subscriptions(context.Background(), "c1")
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestQueryLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 50},
		{"limit=10", 10},
		{"limit=0", 50},
		{"limit=-3", 50},
		{"limit=abc", 50},
		{"limit=100000", 500},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/dispatches?"+tt.query, nil)
			assert.Equal(t, tt.want, queryLimit(r, "limit", defaultDispatchLimit, maxDispatchLimit))
		})
	}
}

func TestDispatchesInternalOnly(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, f.journal.Record(ctx, journal.Entry{ID: "1", Topic: "t1", CreatedAt: now.Add(-time.Minute)}))
	require.NoError(t, f.journal.Record(ctx, journal.Entry{ID: "2", Topic: "c1", CreatedAt: now}))

	rec := f.do(http.MethodGet, "/api/dispatches?limit=1", nil, "127.0.0.1:4000")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []journal.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "2", entries[0].ID)

	rec = f.do(http.MethodGet, "/api/dispatches", nil, "203.0.113.5:4000")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWSNotMountedWithoutHub(t *testing.T) {
	rec := newFixture(t, "").do(http.MethodGet, "/ws", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSplitTopics(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitTopics(" a,b,, c "))
	assert.Nil(t, splitTopics(""))
}
