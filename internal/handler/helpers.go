package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/notifier/internal/logger"
)

// Коды ошибок API: фронт различает их без разбора текста.
const (
	codeInvalidBody    = "invalid_body"
	codeInvalidRequest = "invalid_request"
	codeTopicStore     = "topic_store_unavailable"
	codeJournal        = "journal_unavailable"
)

// Тело подписки браузера — сотни байт; больше 16 KiB не принимаем.
const maxBodyBytes = 16 << 10

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("writeJSON encode: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// readJSON декодирует тело запроса в dst; при ошибке сам отвечает 400 и возвращает false.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "invalid body")
		return false
	}
	return true
}

// queryLimit читает ?key=N. Пусто, не число или <= 0 — def; больше hi — hi.
func queryLimit(r *http.Request, key string, def, hi int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, hi)
}
