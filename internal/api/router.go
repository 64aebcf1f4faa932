package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"coursescout/internal/logger"
	"coursescout/internal/storage"
)

// RouterConfig holds what the router needs beyond the store.
type RouterConfig struct {
	Logger   logger.Logger
	Gatherer prometheus.Gatherer // nil disables /metrics
	Runs     RunReporter         // nil disables /v1/runs/latest
}

// NewRouter creates a chi router and registers the API handlers.
func NewRouter(store storage.Storer, cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	h := NewHandlers(store, cfg.Runs, cfg.Logger)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger(cfg.Logger))
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", h.Healthz)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/verdicts", h.ListVerdicts)
		r.Get("/verdicts/lookup", h.LookupVerdict)
		r.Get("/posts", h.ListPosts)
		r.Get("/posts/{post_id}", h.GetPost)
		if cfg.Runs != nil {
			r.Get("/runs/latest", h.LatestRun)
		}
	})
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	return r
}
