package service

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/ledger"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

// PrecisionPolicy decides how many fractional digits the average cost of an
// asset is kept at. Crypto-class assets never go below model.MinCryptoScale.
type PrecisionPolicy struct {
	DefaultScale int32
	CryptoScale  int32
}

// ScaleFor returns the division scale for an asset.
func (p PrecisionPolicy) ScaleFor(asset model.Asset) int32 {
	scale := p.DefaultScale
	if asset.Precision > 0 {
		scale = asset.Precision
	}
	if asset.Class == model.AssetClassCrypto {
		scale = max(scale, p.CryptoScale, model.MinCryptoScale)
	}
	return scale
}

// AggregateRequest carries the reference data a fold needs. Quotes is only used
// to convert prices and fees quoted in a currency other than the portfolio base
// currency; it may be nil when every transaction is in the base currency.
type AggregateRequest struct {
	Portfolio model.Portfolio
	Assets    map[string]model.Asset
	Quotes    QuoteLookup
}

// Checkpoint is the result of folding a ledger prefix: the positions plus the
// ledger cursor and highest store sequence folded so far. It is immutable.
type Checkpoint struct {
	PortfolioID    string
	Cursor         model.Cursor
	LedgerSequence int64
	positions      map[string]model.Position
}

// Positions returns every position touched, closed ones included, sorted by asset ID.
func (c Checkpoint) Positions() []model.Position {
	out := make([]model.Position, 0, len(c.positions))
	for _, id := range slices.Sorted(maps.Keys(c.positions)) {
		out = append(out, c.positions[id])
	}
	return out
}

// OpenPositions returns the positions with a positive quantity.
func (c Checkpoint) OpenPositions() []model.Position {
	var out []model.Position
	for _, p := range c.Positions() {
		if p.IsOpen() {
			out = append(out, p)
		}
	}
	return out
}

// Position returns the position of one asset.
func (c Checkpoint) Position(assetID string) (model.Position, bool) {
	p, ok := c.positions[assetID]
	return p, ok
}

// PositionAggregator folds ordered transactions into positions using moving
// weighted-average cost. It holds no state between calls.
type PositionAggregator struct {
	precision PrecisionPolicy
}

// NewPositionAggregator creates a PositionAggregator with the given precision policy.
func NewPositionAggregator(precision PrecisionPolicy) *PositionAggregator {
	return &PositionAggregator{precision: precision}
}

// Aggregate folds seq from an empty state.
//
// Transactions are applied strictly in (TradeTime, Sequence) order. The first
// transaction that cannot be applied aborts the fold; the error identifies it
// and no partial result is returned.
func (a *PositionAggregator) Aggregate(req AggregateRequest, seq *ledger.Sequence) (Checkpoint, error) {
	return a.AggregateFrom(req, Checkpoint{PortfolioID: req.Portfolio.ID}, seq)
}

// AggregateFrom continues folding seq on top of cp. Every transaction in seq
// must sort after cp.Cursor; otherwise apperrors.ErrBackdatedTransaction is
// returned and the caller must recompute from scratch. cp itself is never modified.
func (a *PositionAggregator) AggregateFrom(req AggregateRequest, cp Checkpoint, seq *ledger.Sequence) (Checkpoint, error) {
	next := Checkpoint{
		PortfolioID:    req.Portfolio.ID,
		Cursor:         cp.Cursor,
		LedgerSequence: cp.LedgerSequence,
		positions:      maps.Clone(cp.positions),
	}
	if next.positions == nil {
		next.positions = make(map[string]model.Position)
	}

	for tx := range seq.All() {
		if !next.Cursor.IsZero() && next.Cursor.Precedes(tx) {
			return Checkpoint{}, fmt.Errorf("%w: %s at %s", apperrors.ErrBackdatedTransaction, tx.ID, tx.TradeTime)
		}

		pos, ok := next.positions[tx.AssetID]
		if !ok {
			pos = model.Position{PortfolioID: req.Portfolio.ID, AssetID: tx.AssetID}
		}

		folded, err := a.Fold(req, pos, tx)
		if err != nil {
			return Checkpoint{}, err
		}

		next.positions[tx.AssetID] = folded
		next.Cursor = model.CursorOf(tx)
		next.LedgerSequence = max(next.LedgerSequence, tx.Sequence)
	}

	return next, nil
}

// Advance brings cp up to date with full, the complete current ledger. It folds
// only what cp has not seen: the transactions sorting after cp.Cursor. A
// transaction sorting at or before the cursor but stored after cp was taken
// (Sequence > cp.LedgerSequence) is a backdated insert; the result is then
// recomputed from scratch.
func (a *PositionAggregator) Advance(req AggregateRequest, cp Checkpoint, full *ledger.Sequence) (Checkpoint, error) {
	if cp.Cursor.IsZero() {
		return a.Aggregate(req, full)
	}
	for tx := range full.All() {
		if cp.Cursor.Precedes(tx) && tx.Sequence > cp.LedgerSequence {
			return a.Aggregate(req, full)
		}
	}
	return a.AggregateFrom(req, cp, full.After(cp.Cursor))
}

// Fold applies one transaction to a position and returns the new position. The
// input position is a value and is never changed, so a failed fold leaves the
// caller's state untouched.
//
// Transaction Processing Logic:
//   - Acquisition (BUY, DEPOSIT, TRANSFER_IN): avg = (q*avg + txQ*txP + fee) / (q + txQ), q += txQ
//   - Disposal (SELL, WITHDRAWAL, TRANSFER_OUT): realized += txQ*(txP - avg) - fee, q -= txQ,
//     avg unchanged; txQ > q fails with *apperrors.InsufficientQuantityError
//   - Adjustment (INCOME, FEE): the cash amount txQ*txP goes straight to realized P&L
//
// Prices and fees are converted to the portfolio base currency first.
func (a *PositionAggregator) Fold(req AggregateRequest, pos model.Position, tx model.Transaction) (model.Position, error) {
	if err := checkTransaction(tx); err != nil {
		return pos, err
	}

	price, err := a.toBase(req, tx.Price, tx.PriceCurrency, tx)
	if err != nil {
		return pos, err
	}
	feeCurrency := tx.FeeCurrency
	if feeCurrency == "" {
		feeCurrency = tx.PriceCurrency
	}
	fee, err := a.toBase(req, tx.Fee, feeCurrency, tx)
	if err != nil {
		return pos, err
	}

	next := pos
	next.LastTradeTime = tx.TradeTime
	next.LastSequence = tx.Sequence

	switch tx.Side.Effect() {
	case model.EffectAcquisition:
		scale := a.precision.ScaleFor(req.Assets[tx.AssetID])
		newQty := pos.Quantity.Add(tx.Quantity)
		totalCost := pos.CostBasis().Add(tx.Quantity.Mul(price)).Add(fee)
		next.Quantity = newQty
		next.AvgCost = divHalfEven(totalCost, newQty, scale)
		next.Fees = pos.Fees.Add(fee)

	case model.EffectDisposal:
		if tx.Quantity.GreaterThan(pos.Quantity) {
			return pos, &apperrors.InsufficientQuantityError{
				TransactionID: tx.ID,
				PortfolioID:   tx.PortfolioID,
				AssetID:       tx.AssetID,
				TradeTime:     tx.TradeTime,
				Held:          pos.Quantity,
				Requested:     tx.Quantity,
			}
		}
		gain := tx.Quantity.Mul(price.Sub(pos.AvgCost)).Sub(fee)
		next.Quantity = pos.Quantity.Sub(tx.Quantity)
		next.RealizedPnl = pos.RealizedPnl.Add(gain)
		next.Fees = pos.Fees.Add(fee)

	case model.EffectAdjustment:
		amount := tx.Quantity.Mul(price)
		if tx.Side == model.SideFee {
			next.RealizedPnl = pos.RealizedPnl.Sub(amount).Sub(fee)
			next.Fees = pos.Fees.Add(amount).Add(fee)
		} else {
			next.RealizedPnl = pos.RealizedPnl.Add(amount).Sub(fee)
			next.Fees = pos.Fees.Add(fee)
		}

	default:
		return pos, fmt.Errorf("%w: %q in transaction %s", apperrors.ErrUnknownSide, tx.Side, tx.ID)
	}

	return next, nil
}

// toBase converts amount from currency into the portfolio base currency using
// the latest rate at or before the trade time.
func (a *PositionAggregator) toBase(req AggregateRequest, amount decimal.Decimal, currency string, tx model.Transaction) (decimal.Decimal, error) {
	base := req.Portfolio.BaseCurrency
	if amount.IsZero() || currency == "" || strings.EqualFold(currency, base) {
		return amount, nil
	}
	if req.Quotes == nil {
		return decimal.Zero, fmt.Errorf("%w: %s/%s for transaction %s", apperrors.ErrExchangeRateNotFound, currency, base, tx.ID)
	}
	rate, ok := req.Quotes.LatestQuote(currency, base, tx.TradeTime)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s/%s at %s for transaction %s",
			apperrors.ErrExchangeRateNotFound, currency, base, tx.TradeTime.Format("2006-01-02T15:04:05Z07:00"), tx.ID)
	}
	return amount.Mul(rate.Price), nil
}

// checkTransaction enforces the ledger invariants the fold relies on.
func checkTransaction(tx model.Transaction) error {
	if !tx.Quantity.IsPositive() {
		return fmt.Errorf("%w: transaction %s has non-positive quantity %s", apperrors.ErrInvalidTransaction, tx.ID, tx.Quantity)
	}
	if tx.Price.IsNegative() {
		return fmt.Errorf("%w: transaction %s has negative price %s", apperrors.ErrInvalidTransaction, tx.ID, tx.Price)
	}
	if tx.Fee.IsNegative() {
		return fmt.Errorf("%w: transaction %s has negative fee %s", apperrors.ErrInvalidTransaction, tx.ID, tx.Fee)
	}
	return nil
}
