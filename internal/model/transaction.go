package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a ledger transaction. The set is closed: every
// side maps to exactly one Effect, and the aggregator only switches on Effect.
type Side string

const (
	SideBuy         Side = "BUY"
	SideSell        Side = "SELL"
	SideDeposit     Side = "DEPOSIT"
	SideWithdrawal  Side = "WITHDRAWAL"
	SideTransferIn  Side = "TRANSFER_IN"
	SideTransferOut Side = "TRANSFER_OUT"
	SideIncome      Side = "INCOME"
	SideFee         Side = "FEE"
)

// Effect is how a side changes a position.
type Effect int

const (
	EffectUnknown Effect = iota
	// EffectAcquisition increases quantity and re-blends the average cost.
	EffectAcquisition
	// EffectDisposal decreases quantity and realizes P&L against the average cost.
	EffectDisposal
	// EffectAdjustment books cash P&L without touching quantity or average cost.
	EffectAdjustment
)

var sideEffects = map[Side]Effect{
	SideBuy:         EffectAcquisition,
	SideDeposit:     EffectAcquisition,
	SideTransferIn:  EffectAcquisition,
	SideSell:        EffectDisposal,
	SideWithdrawal:  EffectDisposal,
	SideTransferOut: EffectDisposal,
	SideIncome:      EffectAdjustment,
	SideFee:         EffectAdjustment,
}

// Effect returns the position effect of the side, EffectUnknown for anything
// outside the closed set.
func (s Side) Effect() Effect {
	return sideEffects[s]
}

// Valid reports whether s is one of the known sides.
func (s Side) Valid() bool {
	return s.Effect() != EffectUnknown
}

// Sides returns every known side in a stable order.
func Sides() []Side {
	return []Side{
		SideBuy, SideSell, SideDeposit, SideWithdrawal,
		SideTransferIn, SideTransferOut, SideIncome, SideFee,
	}
}

// Transaction is a single immutable ledger entry. Quantity is always positive;
// Side carries the direction. Sequence is assigned by the ledger store and breaks
// ties between transactions sharing the same TradeTime.
type Transaction struct {
	ID            string          `json:"id"`
	PortfolioID   string          `json:"portfolioId"`
	AssetID       string          `json:"assetId"`
	Side          Side            `json:"side"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	PriceCurrency string          `json:"priceCurrency"`
	Fee           decimal.Decimal `json:"fee"`
	FeeCurrency   string          `json:"feeCurrency,omitempty"`
	TradeTime     time.Time       `json:"tradeTime"`
	Sequence      int64           `json:"sequence"`
	Note          string          `json:"note,omitempty"`
}

// Before reports whether t sorts strictly before o in ledger order.
func (t Transaction) Before(o Transaction) bool {
	if !t.TradeTime.Equal(o.TradeTime) {
		return t.TradeTime.Before(o.TradeTime)
	}
	return t.Sequence < o.Sequence
}

// Amount is Quantity * Price in the price currency.
func (t Transaction) Amount() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}

// Cursor identifies a position in ledger order.
type Cursor struct {
	TradeTime time.Time `json:"tradeTime"`
	Sequence  int64     `json:"sequence"`
}

// CursorOf returns the ledger position of t.
func CursorOf(t Transaction) Cursor {
	return Cursor{TradeTime: t.TradeTime, Sequence: t.Sequence}
}

// IsZero reports whether the cursor points before any transaction.
func (c Cursor) IsZero() bool {
	return c.TradeTime.IsZero() && c.Sequence == 0
}

// Precedes reports whether transaction t sorts at or before the cursor.
func (c Cursor) Precedes(t Transaction) bool {
	if !t.TradeTime.Equal(c.TradeTime) {
		return t.TradeTime.Before(c.TradeTime)
	}
	return t.Sequence <= c.Sequence
}
