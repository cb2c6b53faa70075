package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/api/request"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/api/response"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/service"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/validation"
)

// AlertHandler handles alert evaluation HTTP requests. Evaluations through the
// API never record triggers.
type AlertHandler struct {
	alertService *service.AlertService
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(alertService *service.AlertService) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
	}
}

// EvaluateDryRun evaluates a condition that is not stored.
//
// Endpoint: POST /api/alert/evaluate
// Request body: request.EvaluateAlertRequest
// Response: 200 OK with model.AlertEvaluation
// Error: 400 for an invalid condition, 404 for an unknown portfolio or asset,
// 409 when there is not enough history to evaluate yet
func (h *AlertHandler) EvaluateDryRun(w http.ResponseWriter, r *http.Request) {
	var req request.EvaluateAlertRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	cond, err := validation.ValidateEvaluateAlert(req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	eval, err := h.alertService.Evaluate(r.Context(), cond)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, eval)
}

// EvaluateStored evaluates a stored condition without recording the result.
//
// Endpoint: POST /api/alert/{uuid}/evaluate
// Response: 200 OK with model.AlertEvaluation
func (h *AlertHandler) EvaluateStored(w http.ResponseWriter, r *http.Request) {
	eval, err := h.alertService.EvaluateStored(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, eval)
}
