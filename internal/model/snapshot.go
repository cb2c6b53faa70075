package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioSnapshot is a pre-calculated end-of-day valuation of a portfolio.
// LedgerSequence is the highest ledger sequence that was folded into it; a later
// backdated transaction with a higher sequence makes the snapshot stale.
type PortfolioSnapshot struct {
	ID             string          // Primary key
	PortfolioID    string          // Portfolio identifier
	Date           time.Time       // Date of this snapshot (UTC midnight)
	TotalValue     decimal.Decimal // Market value at close
	RealizedPnl    decimal.Decimal // Realized P&L as of close
	UnrealizedPnl  decimal.Decimal // Unrealized P&L at close
	LedgerSequence int64           // Highest ledger sequence folded
	CalculatedAt   time.Time       // When this record was calculated
	QuotesDigest   string          // Digest of the quotes the valuation read
}

// Pnl is realized plus unrealized P&L.
func (s PortfolioSnapshot) Pnl() decimal.Decimal {
	return s.RealizedPnl.Add(s.UnrealizedPnl)
}
