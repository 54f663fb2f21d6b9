package apiapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	reportsvc "github.com/militaernews/tarta/internal/services/reports"
	"github.com/militaernews/tarta/internal/transport/http/handlers"
)

type Dependencies struct {
	ReportService *reportsvc.Service
	ReadmeURL     string
	Logger        *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	reportHandler := handlers.NewReportHandler(deps.ReportService)
	healthHandler := handlers.NewHealthHandler()

	r.Get("/healthz", healthHandler.Get)
	r.Post("/reports", reportHandler.Submit)
	r.Get("/users/{id}", reportHandler.LookupBanned)

	if deps.ReadmeURL != "" {
		readmeURL := deps.ReadmeURL
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, readmeURL, http.StatusFound)
		})
	}
}
