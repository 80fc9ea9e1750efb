package server

import (
	"net/http"

	"github.com/cloo-solutions/docchat/internal/api"
	"github.com/cloo-solutions/docchat/internal/api/handlers"
	"github.com/cloo-solutions/docchat/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const DefaultMaxBodyBytes int64 = 5 * 1024 * 1024

type RouterConfig struct {
	DocumentHandler *handlers.DocumentHandler
	JobHandler      *handlers.JobHandler
	ChatHandler     *handlers.ChatHandler
	SessionHandler  *handlers.SessionHandler
	Logger          *zap.Logger
	MaxBodyBytes    int64
	// MetricsHandler defaults to the Prometheus default registry.
	MetricsHandler http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", cfg.DocumentHandler.Ingest)
		r.Get("/{id}", cfg.DocumentHandler.Get)
		r.Delete("/{id}", cfg.DocumentHandler.Delete)
		r.Post("/{id}/search", cfg.DocumentHandler.Search)
	})

	r.Get("/jobs/{id}", cfg.JobHandler.Get)

	r.Post("/chat", cfg.ChatHandler.Chat)

	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/history", cfg.SessionHandler.History)
		r.Delete("/", cfg.SessionHandler.Clear)
	})

	return r
}
