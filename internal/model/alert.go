package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertType selects what an alert condition measures.
type AlertType string

const (
	AlertPriceAbove        AlertType = "PRICE_ABOVE"
	AlertPriceBelow        AlertType = "PRICE_BELOW"
	AlertPercentChange     AlertType = "PERCENT_CHANGE"
	AlertPortfolioDrawdown AlertType = "PORTFOLIO_DRAWDOWN"
	AlertTargetPnl         AlertType = "TARGET_PNL"
)

// AlertScope tells whether a condition watches one asset or a whole portfolio.
type AlertScope string

const (
	AlertScopeAsset     AlertScope = "ASSET"
	AlertScopePortfolio AlertScope = "PORTFOLIO"
)

// AlertState is the persisted state of a condition. Triggered is not a state:
// the evaluator reports it and the caller records LastTriggeredAt.
type AlertState string

const (
	AlertActive AlertState = "ACTIVE"
	AlertPaused AlertState = "PAUSED"
)

// AlertCondition is a user-defined price or P&L condition.
type AlertCondition struct {
	ID              string          `json:"id"`
	OwnerID         string          `json:"ownerId"`
	Scope           AlertScope      `json:"scope"`
	PortfolioID     string          `json:"portfolioId,omitempty"`
	AssetID         string          `json:"assetId,omitempty"`
	QuoteCurrency   string          `json:"quoteCurrency,omitempty"`
	Type            AlertType       `json:"type"`
	Threshold       decimal.Decimal `json:"threshold"`
	LookbackWindow  *time.Duration  `json:"lookbackWindow,omitempty"`
	State           AlertState      `json:"state"`
	LastTriggeredAt *time.Time      `json:"lastTriggeredAt,omitempty"`
}

// AlertEvaluation is the outcome of evaluating one condition. MeasuredValue is
// what was compared against Threshold, kept for audit logging by the caller.
type AlertEvaluation struct {
	ConditionID   string          `json:"conditionId"`
	Type          AlertType       `json:"type"`
	Triggered     bool            `json:"triggered"`
	Skipped       bool            `json:"skipped"`
	MeasuredValue decimal.Decimal `json:"measuredValue"`
	Threshold     decimal.Decimal `json:"threshold"`
	EvaluatedAt   time.Time       `json:"evaluatedAt"`
}
