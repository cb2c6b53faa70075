package validation

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/api/request"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

// maxLookbackMinutes is the longest window a time.Duration can hold.
const maxLookbackMinutes = math.MaxInt64 / int64(time.Minute)

var validAlertTypes = map[model.AlertType]bool{
	model.AlertPriceAbove:        true,
	model.AlertPriceBelow:        true,
	model.AlertPercentChange:     true,
	model.AlertPortfolioDrawdown: true,
	model.AlertTargetPnl:         true,
}

// ValidateEvaluateAlert checks a dry-run request and converts it into a condition.
//
// Required fields:
//   - type: one of PRICE_ABOVE, PRICE_BELOW, PERCENT_CHANGE, PORTFOLIO_DRAWDOWN, TARGET_PNL
//   - scope: ASSET or PORTFOLIO
//   - threshold: a decimal number
//
// Optional fields:
//   - portfolioId: must be a UUID if provided
//   - quoteCurrency: must be an ISO 4217 code if provided
//   - lookbackMinutes: must be positive and fit a time.Duration if provided
//   - state: ACTIVE (default) or PAUSED
//
// Returns a validation Error with field-specific error messages if validation fails.
// Whether scope and type fit together is checked by the evaluator.
func ValidateEvaluateAlert(req request.EvaluateAlertRequest) (model.AlertCondition, error) {
	errors := make(map[string]string)
	cond := model.AlertCondition{
		Scope:         model.AlertScope(strings.ToUpper(strings.TrimSpace(req.Scope))),
		PortfolioID:   strings.TrimSpace(req.PortfolioID),
		AssetID:       strings.TrimSpace(req.AssetID),
		QuoteCurrency: strings.ToUpper(strings.TrimSpace(req.QuoteCurrency)),
		Type:          model.AlertType(strings.ToUpper(strings.TrimSpace(req.Type))),
		State:         model.AlertState(strings.ToUpper(strings.TrimSpace(req.State))),
	}

	if cond.Type == "" {
		errors["type"] = "type is required"
	} else if !validAlertTypes[cond.Type] {
		errors["type"] = fmt.Sprintf("invalid type: %s", req.Type)
	}

	if cond.Scope != model.AlertScopeAsset && cond.Scope != model.AlertScopePortfolio {
		errors["scope"] = "scope must be ASSET or PORTFOLIO"
	}

	if cond.PortfolioID != "" {
		if err := ValidateUUID(cond.PortfolioID); err != nil {
			errors["portfolioId"] = err.Error()
		}
	}

	if cond.QuoteCurrency != "" {
		if err := ValidateCurrency(cond.QuoteCurrency); err != nil {
			errors["quoteCurrency"] = err.Error()
		}
	}

	if req.Threshold == "" {
		errors["threshold"] = "threshold is required"
	} else if threshold, err := decimal.NewFromString(req.Threshold.String()); err != nil {
		errors["threshold"] = fmt.Sprintf("invalid number: %s", req.Threshold)
	} else {
		cond.Threshold = threshold
	}

	if req.LookbackMinutes != nil {
		if *req.LookbackMinutes <= 0 {
			errors["lookbackMinutes"] = "lookbackMinutes must be positive"
		} else if *req.LookbackMinutes > maxLookbackMinutes {
			errors["lookbackMinutes"] = fmt.Sprintf("lookbackMinutes must be at most %d", maxLookbackMinutes)
		} else {
			window := time.Duration(*req.LookbackMinutes) * time.Minute
			cond.LookbackWindow = &window
		}
	}

	switch cond.State {
	case "":
		cond.State = model.AlertActive
	case model.AlertActive, model.AlertPaused:
	default:
		errors["state"] = fmt.Sprintf("invalid state: %s", req.State)
	}

	if len(errors) > 0 {
		return model.AlertCondition{}, &Error{Fields: errors}
	}
	return cond, nil
}
