package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/notifier/internal/middleware"
)

// Routes — обработчики HTTP. Nil-поле — ручка не монтируется (например, /ws без ws-провайдера).
type Routes struct {
	Health     *HealthHandler
	Config     *ConfigHandler
	Topics     *TopicHandler
	WS         *WSHandler
	Dispatches *DispatchHandler

	CORSAllowedOrigins string
	RateLimit          *middleware.RateLimiter
	InternalSecret     string
}

func corsOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// NewRouter собирает chi-роутер сервиса.
func NewRouter(rt Routes) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RecoverJSON)
	r.Use(middleware.RequestLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins(rt.CORSAllowedOrigins),
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Internal-Secret"},
		MaxAge:         300,
	}))

	// liveness — всегда, без лимитов
	r.Get("/health", rt.Health.Health)

	r.Group(func(r chi.Router) {
		if rt.RateLimit != nil {
			r.Use(rt.RateLimit.Handler)
		}
		if rt.Config != nil {
			r.Get("/api/vapid-public", rt.Config.VAPIDPublic)
		}
		if rt.Topics != nil {
			r.Post("/api/topics/subscribe", rt.Topics.Subscribe)
			r.Delete("/api/topics/subscribe", rt.Topics.Unsubscribe)
		}
		if rt.WS != nil {
			r.Get("/ws", rt.WS.ServeWS)
		}
	})

	if rt.Dispatches != nil {
		r.With(middleware.InternalOnly(rt.InternalSecret)).Get("/api/dispatches", rt.Dispatches.List)
	}
	return r
}
