package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio represents a portfolio from the database
type Portfolio struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	Name         string    `json:"name"`
	BaseCurrency string    `json:"baseCurrency"`
	IsArchived   bool      `json:"isArchived"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PortfolioFilter for querying portfolios
type PortfolioFilter struct {
	OwnerID         string
	IncludeArchived bool
}

// PortfolioSummary is the valuation of one portfolio at a point in time, in the
// portfolio base currency. Positions lists open positions only; realized P&L from
// closed positions is still part of TotalRealizedPnl.
type PortfolioSummary struct {
	PortfolioID        string             `json:"portfolioId"`
	BaseCurrency       string             `json:"baseCurrency"`
	AsOf               time.Time          `json:"asOf"`
	TotalValue         decimal.Decimal    `json:"totalValue"`
	TotalCost          decimal.Decimal    `json:"totalCost"`
	TotalUnrealizedPnl decimal.Decimal    `json:"totalUnrealizedPnl"`
	TotalRealizedPnl   decimal.Decimal    `json:"totalRealizedPnl"`
	DailyChange        decimal.Decimal    `json:"dailyChange"`
	DailyChangePercent decimal.Decimal    `json:"dailyChangePercent"`
	Positions          []ValuedPosition   `json:"positions"`
	Allocation         []AllocationEntry  `json:"allocation"`
	Performance        []PerformancePoint `json:"performance"`
	MissingQuotes      []string           `json:"missingQuotes,omitempty"`
}

// AllocationEntry is the share of total portfolio value held in one asset class.
type AllocationEntry struct {
	Class   AssetClass      `json:"class"`
	Value   decimal.Decimal `json:"value"`
	Percent decimal.Decimal `json:"percent"`
}

// PerformanceSource tells where a performance point came from.
type PerformanceSource string

const (
	PerformanceFromSnapshot PerformanceSource = "snapshot"
	PerformanceComputed     PerformanceSource = "computed"
)

// PerformancePoint is the end-of-day value and total P&L of a portfolio.
type PerformancePoint struct {
	Date   string            `json:"date"` // Date in YYYY-MM-DD format
	Value  decimal.Decimal   `json:"value"`
	Pnl    decimal.Decimal   `json:"pnl"`
	Source PerformanceSource `json:"source"`
}
