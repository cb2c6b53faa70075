package request

import "encoding/json"

// EvaluateAlertRequest is the body of a dry-run alert evaluation.
// LookbackMinutes is optional; omitted means the default window for the type.
type EvaluateAlertRequest struct {
	Scope           string      `json:"scope"`
	PortfolioID     string      `json:"portfolioId,omitempty"`
	AssetID         string      `json:"assetId,omitempty"`
	QuoteCurrency   string      `json:"quoteCurrency,omitempty"`
	Type            string      `json:"type"`
	Threshold       json.Number `json:"threshold"`
	LookbackMinutes *int64      `json:"lookbackMinutes,omitempty"`
	State           string      `json:"state,omitempty"`
}
