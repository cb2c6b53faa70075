package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/api/response"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/service"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/validation"
)

// PortfolioHandler handles portfolio valuation HTTP requests
type PortfolioHandler struct {
	summaryService *service.SummaryService
}

// NewPortfolioHandler creates a new PortfolioHandler
func NewPortfolioHandler(summaryService *service.SummaryService) *PortfolioHandler {
	return &PortfolioHandler{
		summaryService: summaryService,
	}
}

// Summary returns the Portfolio Summary.
//
// Endpoint: GET /api/portfolio/{uuid}/summary
// Query parameters:
//   - days: number of daily points in the performance series, today included (optional, positive)
//   - as_of: valuation time, YYYY-MM-DD or RFC3339 (optional, default now)
//
// Response: 200 OK with model.PortfolioSummary
// Error: 400 for bad parameters, 404 for an unknown portfolio, 422 for an inconsistent ledger
func (h *PortfolioHandler) Summary(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days")
	if err != nil {
		respondServiceError(w, err)
		return
	}
	asOf, err := queryTime(r, "as_of")
	if err != nil {
		respondServiceError(w, err)
		return
	}

	summary, err := h.summaryService.GetSummary(r.Context(), service.SummaryRequest{
		PortfolioID: chi.URLParam(r, "uuid"),
		AsOf:        asOf,
		Days:        days,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, summary)
}

// Positions returns the valued positions of a portfolio.
//
// Endpoint: GET /api/portfolio/{uuid}/positions
// Query parameters:
//   - as_of: valuation time (optional, default now)
//   - include_closed: "true" also lists positions with zero quantity
func (h *PortfolioHandler) Positions(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryTime(r, "as_of")
	if err != nil {
		respondServiceError(w, err)
		return
	}
	includeClosed := r.URL.Query().Get("include_closed") == "true"

	positions, err := h.summaryService.GetPositions(r.Context(), chi.URLParam(r, "uuid"), asOf, includeClosed)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if positions == nil {
		positions = []model.ValuedPosition{}
	}

	response.RespondJSON(w, http.StatusOK, positions)
}

// PerformanceResponse is the performance series plus its statistics.
type PerformanceResponse struct {
	Points []model.PerformancePoint `json:"points"`
	Stats  service.SeriesStats      `json:"stats"`
}

// Performance returns the daily value and P&L series.
//
// Endpoint: GET /api/portfolio/{uuid}/performance
// Query parameters:
//   - start_date: first day (optional, default first transaction)
//   - end_date: last day (optional, default today)
func (h *PortfolioHandler) Performance(w http.ResponseWriter, r *http.Request) {
	start, err := queryTime(r, "start_date")
	if err != nil {
		respondServiceError(w, err)
		return
	}
	end, err := queryTime(r, "end_date")
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if err := validation.ValidateDateRange(start, end); err != nil {
		respondServiceError(w, err)
		return
	}

	points, stats, err := h.summaryService.GetPerformance(r.Context(), chi.URLParam(r, "uuid"), start, end)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if points == nil {
		points = []model.PerformancePoint{}
	}

	response.RespondJSON(w, http.StatusOK, PerformanceResponse{Points: points, Stats: stats})
}
