package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/api/response"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/validation"
)

// statusFor maps engine errors onto HTTP status codes.
//
//   - unknown portfolio, asset or alert: 404
//   - malformed input or an invalid condition: 400
//   - not enough history to evaluate yet: 409
//   - ledger integrity violations: 422
//   - anything else: 500
func statusFor(err error) (int, string) {
	var verr *validation.Error
	switch {
	case errors.Is(err, apperrors.ErrPortfolioNotFound):
		return http.StatusNotFound, apperrors.ErrPortfolioNotFound.Error()
	case errors.Is(err, apperrors.ErrAssetNotFound):
		return http.StatusNotFound, apperrors.ErrAssetNotFound.Error()
	case errors.Is(err, apperrors.ErrAlertNotFound):
		return http.StatusNotFound, apperrors.ErrAlertNotFound.Error()
	case errors.As(err, &verr):
		return http.StatusBadRequest, "validation failed"
	case errors.Is(err, apperrors.ErrInvalidUUID),
		errors.Is(err, apperrors.ErrInvalidDateRange),
		errors.Is(err, apperrors.ErrInvalidLookbackWindow),
		errors.Is(err, apperrors.ErrInvalidAlertCondition):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, apperrors.ErrInsufficientHistory):
		return http.StatusConflict, "cannot evaluate yet"
	case errors.Is(err, apperrors.ErrMissingPriceQuote):
		return http.StatusConflict, "price quote unavailable"
	case errors.Is(err, apperrors.ErrInsufficientQuantity),
		errors.Is(err, apperrors.ErrInvalidTransaction),
		errors.Is(err, apperrors.ErrUnknownSide),
		errors.Is(err, apperrors.ErrExchangeRateNotFound):
		return http.StatusUnprocessableEntity, "ledger cannot be valued"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// respondServiceError writes err with the status statusFor picks.
func respondServiceError(w http.ResponseWriter, err error) {
	status, message := statusFor(err)
	var verr *validation.Error
	if errors.As(err, &verr) {
		response.RespondError(w, status, message, verr.Fields)
		return
	}
	response.RespondError(w, status, message, err.Error())
}

// queryTime parses an optional date or RFC3339 query parameter.
func queryTime(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := validation.ParseTime(raw)
	if err != nil {
		return time.Time{}, &validation.Error{Fields: map[string]string{name: err.Error()}}
	}
	return t, nil
}

// queryInt parses an optional positive integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, &validation.Error{Fields: map[string]string{name: "must be a positive integer"}}
	}
	return n, nil
}
