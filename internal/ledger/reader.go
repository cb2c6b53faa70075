package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

// Store is the persistence behind the reader. Implementations must return
// apperrors.ErrPortfolioNotFound for unknown portfolios.
type Store interface {
	GetPortfolioOnID(ctx context.Context, portfolioID string) (model.Portfolio, error)
	AssetExists(ctx context.Context, assetID string) (bool, error)
	// LoadTransactions returns all transactions of the portfolio with TradeTime <= asOf.
	// Order is not required; the reader sorts.
	LoadTransactions(ctx context.Context, portfolioID string, asOf time.Time) ([]model.Transaction, error)
}

// Query selects the transactions to read. AssetID and AsOf are optional; a zero
// AsOf means "now" according to the reader's clock.
type Query struct {
	PortfolioID string
	AssetID     string
	AsOf        time.Time
}

// Reader produces ordered transaction sequences from a Store.
type Reader struct {
	store Store
	now   func() time.Time
}

// NewReader creates a Reader over store using the wall clock.
func NewReader(store Store) *Reader {
	return &Reader{store: store, now: time.Now}
}

// WithClock returns a copy of the reader that resolves a zero AsOf with now.
func (r *Reader) WithClock(now func() time.Time) *Reader {
	return &Reader{store: r.store, now: now}
}

// TransactionsFor returns the transactions of q.PortfolioID sorted ascending by
// (TradeTime, Sequence) and filtered to TradeTime <= AsOf. A portfolio without
// transactions yields an empty sequence and no error.
func (r *Reader) TransactionsFor(ctx context.Context, q Query) (*Sequence, error) {
	if _, err := r.store.GetPortfolioOnID(ctx, q.PortfolioID); err != nil {
		return nil, err
	}

	if q.AssetID != "" {
		exists, err := r.store.AssetExists(ctx, q.AssetID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up asset: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrAssetNotFound, q.AssetID)
		}
	}

	asOf := q.AsOf
	if asOf.IsZero() {
		asOf = r.now()
	}

	txs, err := r.store.LoadTransactions(ctx, q.PortfolioID, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	filtered := make([]model.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.TradeTime.After(asOf) {
			continue
		}
		if q.AssetID != "" && tx.AssetID != q.AssetID {
			continue
		}
		filtered = append(filtered, tx)
	}

	return NewSequence(filtered), nil
}
