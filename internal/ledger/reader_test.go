package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/ledger"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *ledger.MemoryStore {
	t.Helper()
	store := ledger.NewMemoryStore()
	store.AddPortfolio(model.Portfolio{ID: "p1", BaseCurrency: "USD"})
	store.AddPortfolio(model.Portfolio{ID: "empty", BaseCurrency: "USD"})
	store.AddAsset(model.Asset{ID: "BTC", Class: model.AssetClassCrypto})
	store.AddAsset(model.Asset{ID: "ETH", Class: model.AssetClassCrypto})
	return store
}

func appendTx(t *testing.T, store *ledger.MemoryStore, asset string, side model.Side, at time.Time) model.Transaction {
	t.Helper()
	tx, err := store.Append(model.Transaction{
		ID:            asset + at.Format(time.RFC3339Nano),
		PortfolioID:   "p1",
		AssetID:       asset,
		Side:          side,
		Quantity:      decimal.NewFromInt(1),
		Price:         decimal.NewFromInt(100),
		PriceCurrency: "USD",
		TradeTime:     at,
	})
	require.NoError(t, err)
	return tx
}

// TestReader_TransactionsFor covers ordering, filtering and error handling of the ledger view.
//
// WHY: every derived number depends on folding in (tradeTime, sequence) order; a
// reader that leaks insertion order or future transactions corrupts all positions.
func TestReader_TransactionsFor(t *testing.T) {
	ctx := context.Background()

	t.Run("orders by trade time then sequence", func(t *testing.T) {
		store := newStore(t)
		late := appendTx(t, store, "BTC", model.SideBuy, t0.Add(2*time.Hour))
		tieA := appendTx(t, store, "BTC", model.SideBuy, t0)
		tieB := appendTx(t, store, "ETH", model.SideBuy, t0)

		seq, err := ledger.NewReader(store).TransactionsFor(ctx, ledger.Query{PortfolioID: "p1", AsOf: t0.Add(24 * time.Hour)})
		require.NoError(t, err)

		got := seq.Slice()
		require.Len(t, got, 3)
		assert.Equal(t, tieA.Sequence, got[0].Sequence)
		assert.Equal(t, tieB.Sequence, got[1].Sequence)
		assert.Equal(t, late.Sequence, got[2].Sequence)
		// late was stored first, so the backdated tie rows carry the highest sequence.
		assert.Equal(t, tieB.Sequence, seq.LastSequence())
	})

	t.Run("filters by asset and as-of", func(t *testing.T) {
		store := newStore(t)
		appendTx(t, store, "BTC", model.SideBuy, t0)
		appendTx(t, store, "ETH", model.SideBuy, t0.Add(time.Hour))
		appendTx(t, store, "BTC", model.SideSell, t0.Add(48*time.Hour))

		seq, err := ledger.NewReader(store).TransactionsFor(ctx, ledger.Query{
			PortfolioID: "p1", AssetID: "BTC", AsOf: t0.Add(24 * time.Hour),
		})
		require.NoError(t, err)
		require.Equal(t, 1, seq.Len())
		first, ok := seq.First()
		require.True(t, ok)
		assert.Equal(t, "BTC", first.AssetID)
	})

	t.Run("zero as-of uses the clock", func(t *testing.T) {
		store := newStore(t)
		appendTx(t, store, "BTC", model.SideBuy, t0)
		appendTx(t, store, "BTC", model.SideBuy, t0.Add(time.Hour))

		reader := ledger.NewReader(store).WithClock(func() time.Time { return t0.Add(30 * time.Minute) })
		seq, err := reader.TransactionsFor(ctx, ledger.Query{PortfolioID: "p1"})
		require.NoError(t, err)
		assert.Equal(t, 1, seq.Len())
	})

	t.Run("sequence is restartable", func(t *testing.T) {
		store := newStore(t)
		appendTx(t, store, "BTC", model.SideBuy, t0)
		appendTx(t, store, "ETH", model.SideBuy, t0.Add(time.Hour))

		seq, err := ledger.NewReader(store).TransactionsFor(ctx, ledger.Query{PortfolioID: "p1", AsOf: t0.Add(time.Hour)})
		require.NoError(t, err)

		var first, second []string
		for tx := range seq.All() {
			first = append(first, tx.AssetID)
		}
		for tx := range seq.All() {
			second = append(second, tx.AssetID)
		}
		assert.Equal(t, first, second)
		assert.Equal(t, []string{"BTC", "ETH"}, seq.Assets())
	})

	t.Run("empty ledger is not an error", func(t *testing.T) {
		seq, err := ledger.NewReader(newStore(t)).TransactionsFor(ctx, ledger.Query{PortfolioID: "empty"})
		require.NoError(t, err)
		assert.Equal(t, 0, seq.Len())
	})

	t.Run("unknown portfolio is NotFound", func(t *testing.T) {
		_, err := ledger.NewReader(newStore(t)).TransactionsFor(ctx, ledger.Query{PortfolioID: "nope"})
		assert.ErrorIs(t, err, apperrors.ErrPortfolioNotFound)
	})

	t.Run("unknown asset is NotFound", func(t *testing.T) {
		_, err := ledger.NewReader(newStore(t)).TransactionsFor(ctx, ledger.Query{PortfolioID: "p1", AssetID: "DOGE"})
		assert.ErrorIs(t, err, apperrors.ErrAssetNotFound)
	})
}

func TestSequence_UntilAndAfter(t *testing.T) {
	txs := []model.Transaction{
		{AssetID: "A", TradeTime: t0, Sequence: 1},
		{AssetID: "B", TradeTime: t0, Sequence: 2},
		{AssetID: "C", TradeTime: t0.Add(time.Hour), Sequence: 3},
	}
	seq := ledger.NewSequence(txs)

	assert.Equal(t, 2, seq.Until(t0).Len())
	assert.Equal(t, 3, seq.Until(t0.Add(time.Hour)).Len())
	assert.Equal(t, 0, seq.Until(t0.Add(-time.Second)).Len())

	rest := seq.After(model.Cursor{TradeTime: t0, Sequence: 1}).Slice()
	require.Len(t, rest, 2)
	assert.Equal(t, "B", rest[0].AssetID)
	assert.Equal(t, 0, seq.After(model.Cursor{TradeTime: t0.Add(time.Hour), Sequence: 3}).Len())
}
