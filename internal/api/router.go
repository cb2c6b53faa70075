package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/api/handlers"
	custommiddleware "github.com/ndewijer/Portfolio-Valuation-Engine/internal/api/middleware"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/config"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/service"
)

// Services bundles what the router serves.
type Services struct {
	System  *service.SystemService
	Summary *service.SummaryService
	Alert   *service.AlertService
}

// NewRouter creates and configures the HTTP router
func NewRouter(svc Services, cfg *config.Config, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(log))
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(svc.System)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/portfolio/{uuid}", func(r chi.Router) {
			r.Use(custommiddleware.ValidateUUIDMiddleware)
			portfolioHandler := handlers.NewPortfolioHandler(svc.Summary)
			r.Get("/summary", portfolioHandler.Summary)
			r.Get("/positions", portfolioHandler.Positions)
			r.Get("/performance", portfolioHandler.Performance)
		})

		r.Route("/alert", func(r chi.Router) {
			alertHandler := handlers.NewAlertHandler(svc.Alert)
			r.Post("/evaluate", alertHandler.EvaluateDryRun)
			r.With(custommiddleware.ValidateUUIDMiddleware).Post("/{uuid}/evaluate", alertHandler.EvaluateStored)
		})
	})

	return r
}
