package middleware

import (
	"net/http"
	"time"

	"github.com/notifier/internal/logger"
)

// RequestLog логирует каждый HTTP-запрос: method, path, статус и время выполнения.
// Медленные запросы попадают в info через LogDuration, остальное — debug.
func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrap := wrapWriter(w)
		next.ServeHTTP(wrap, r)
		logger.Debugf("http %s %s status=%d", r.Method, r.URL.Path, wrap.status)
		logger.LogDuration("http "+r.Method+" "+r.URL.Path, start)
	})
}
