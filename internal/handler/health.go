package handler

import (
	"net/http"
	"time"

	"github.com/notifier/internal/feed"
)

// HealthHandler — liveness. Отвечает 200, пока процесс жив; тело — для людей.
type HealthHandler struct {
	started  time.Time
	provider string
	feeds    []*feed.Subscription
}

func NewHealthHandler(provider string, feeds ...*feed.Subscription) *HealthHandler {
	return &HealthHandler{started: time.Now(), provider: provider, feeds: feeds}
}

type healthResponse struct {
	Status   string                `json:"status"`
	Provider string                `json:"provider"`
	Uptime   string                `json:"uptime"`
	Feeds    map[string]feed.Stats `json:"feeds"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Provider: h.provider,
		Uptime:   time.Since(h.started).Truncate(time.Second).String(),
		Feeds:    make(map[string]feed.Stats, len(h.feeds)),
	}
	for _, f := range h.feeds {
		resp.Feeds[f.Collection()] = f.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}
