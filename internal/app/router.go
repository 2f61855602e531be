package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gestoria-erp/gestoria-erp/internal/clients"
	"github.com/gestoria-erp/gestoria-erp/internal/filings"
	"github.com/gestoria-erp/gestoria-erp/internal/reports"
	"github.com/gestoria-erp/gestoria-erp/internal/taxcal"
	"github.com/gestoria-erp/gestoria-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	CalendarHandler *taxcal.Handler
	FilingsHandler  *filings.Handler
	ClientsHandler  *clients.Handler
	ReportsHandler  *reports.Handler
	JobHandler      *jobs.Handler
}

// NewRouter constructs the chi.Router with Gestoria defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		if params.CalendarHandler != nil {
			r.Route("/tax-calendar", params.CalendarHandler.MountRoutes)
		}
		if params.FilingsHandler != nil {
			r.Route("/filings", params.FilingsHandler.MountRoutes)
		}
		if params.ClientsHandler != nil {
			r.Route("/clients", params.ClientsHandler.MountRoutes)
		}
		if params.ReportsHandler != nil {
			r.Route("/reports", params.ReportsHandler.MountRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
