package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the derived holding of one asset in one portfolio. It is never
// ground truth: it is rebuilt from the ledger whenever needed.
type Position struct {
	PortfolioID   string          `json:"portfolioId"`
	AssetID       string          `json:"assetId"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgCost       decimal.Decimal `json:"avgCost"`
	RealizedPnl   decimal.Decimal `json:"realizedPnl"`
	Fees          decimal.Decimal `json:"fees"`
	LastTradeTime time.Time       `json:"lastTradeTime"`
	LastSequence  int64           `json:"lastSequence"`
}

// IsOpen reports whether the position still holds a positive quantity.
func (p Position) IsOpen() bool {
	return p.Quantity.IsPositive()
}

// CostBasis is Quantity * AvgCost.
func (p Position) CostBasis() decimal.Decimal {
	return p.Quantity.Mul(p.AvgCost)
}

// ValuedPosition is a position combined with its latest price. Price-dependent
// fields are null when no quote was available.
type ValuedPosition struct {
	AssetID        string              `json:"assetId"`
	Symbol         string              `json:"symbol"`
	Class          AssetClass          `json:"class"`
	Quantity       decimal.Decimal     `json:"quantity"`
	AvgPrice       decimal.Decimal     `json:"avgPrice"`
	CostBasis      decimal.Decimal     `json:"costBasis"`
	CurrentPrice   decimal.NullDecimal `json:"currentPrice"`
	MarketValue    decimal.NullDecimal `json:"marketValue"`
	UnrealizedPnl  decimal.NullDecimal `json:"unrealizedPnl"`
	RealizedPnl    decimal.Decimal     `json:"realizedPnl"`
	PnlPercent     decimal.NullDecimal `json:"pnlPercent"`
	Weight         decimal.NullDecimal `json:"weight"`
	Fees           decimal.Decimal     `json:"fees"`
	PriceAvailable bool                `json:"priceAvailable"`
	QuoteTime      *time.Time          `json:"quoteTime,omitempty"`
	Open           bool                `json:"open"`
}
