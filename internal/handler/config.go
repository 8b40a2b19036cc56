package handler

import (
	"net/http"
)

// ConfigHandler отдаёт публичные параметры для клиентов.
type ConfigHandler struct {
	vapidPublicKey string
}

// NewConfigHandler: пустой ключ — web push выключен.
func NewConfigHandler(vapidPublicKey string) *ConfigHandler {
	return &ConfigHandler{vapidPublicKey: vapidPublicKey}
}

// VAPIDPublic: GET /api/vapid-public — ключ для PushManager.subscribe, text/plain.
func (h *ConfigHandler) VAPIDPublic(w http.ResponseWriter, r *http.Request) {
	if h.vapidPublicKey == "" {
		http.Error(w, "push not configured", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte(h.vapidPublicKey))
}
