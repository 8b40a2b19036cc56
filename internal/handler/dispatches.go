package handler

import (
	"net/http"

	"github.com/notifier/internal/journal"
	"github.com/notifier/internal/logger"
)

const (
	defaultDispatchLimit = 50
	maxDispatchLimit     = 500
)

// DispatchHandler отдаёт последние записи журнала отправок (служебная ручка).
type DispatchHandler struct {
	journal journal.Journal
}

func NewDispatchHandler(j journal.Journal) *DispatchHandler {
	return &DispatchHandler{journal: j}
}

// List: GET /api/dispatches?limit=N, новые первыми.
func (h *DispatchHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.journal.Recent(r.Context(), queryLimit(r, "limit", defaultDispatchLimit, maxDispatchLimit))
	if err != nil {
		logger.Errorf("dispatches recent: %v", err)
		writeError(w, http.StatusInternalServerError, codeJournal, "failed to read journal")
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
