package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clinicflow/clinicflow/internal/audit"
	"github.com/clinicflow/clinicflow/internal/journey"
	"github.com/clinicflow/clinicflow/internal/observability"
	"github.com/clinicflow/clinicflow/report"
)

// RouterConfig collects handlers mounted on the HTTP router.
type RouterConfig struct {
	Middleware     MiddlewareConfig
	JourneyHandler *journey.Handler
	AuditHandler   *audit.Handler
	ReportHandler  *report.Handler
	Metrics        *observability.Metrics
}

// NewRouter builds the chi router for the service.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(cfg.Middleware) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		cfg.JourneyHandler.MountRoutes(r)
		if cfg.AuditHandler != nil {
			cfg.AuditHandler.MountRoutes(r)
		}
		if cfg.ReportHandler != nil {
			cfg.ReportHandler.MountRoutes(r)
		}
	})

	return r
}
