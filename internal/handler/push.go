package handler

import (
	"net/http"
	"strings"

	"github.com/notifier/internal/logger"
	"github.com/notifier/internal/storage"
)

// TopicHandler управляет web push подписками браузеров на топики (id чата или задачи).
type TopicHandler struct {
	topics storage.TopicStore
}

func NewTopicHandler(topics storage.TopicStore) *TopicHandler {
	return &TopicHandler{topics: topics}
}

// SubscribeRequest — тело от фронта (subscription из PushManager.getSubscription()).
type SubscribeRequest struct {
	Topic        string               `json:"topic"`
	Subscription storage.Subscription `json:"subscription"`
}

// Subscribe: POST /api/topics/subscribe.
func (h *TopicHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if !readJSON(w, r, &req) {
		return
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" || req.Subscription.Endpoint == "" || req.Subscription.Keys.P256dh == "" || req.Subscription.Keys.Auth == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "topic and subscription (endpoint, keys.p256dh, keys.auth) required")
		return
	}
	if err := h.topics.Subscribe(r.Context(), req.Topic, req.Subscription); err != nil {
		logger.Errorf("topic subscribe %s: %v", req.Topic, err)
		writeError(w, http.StatusInternalServerError, codeTopicStore, "failed to subscribe")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnsubscribeRequest — тело для отписки по endpoint.
type UnsubscribeRequest struct {
	Topic    string `json:"topic"`
	Endpoint string `json:"endpoint"`
}

// Unsubscribe: DELETE /api/topics/subscribe.
func (h *TopicHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req UnsubscribeRequest
	if !readJSON(w, r, &req) {
		return
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" || req.Endpoint == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "topic and endpoint required")
		return
	}
	if err := h.topics.Unsubscribe(r.Context(), req.Topic, req.Endpoint); err != nil {
		logger.Errorf("topic unsubscribe %s: %v", req.Topic, err)
		writeError(w, http.StatusInternalServerError, codeTopicStore, "failed to unsubscribe")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
