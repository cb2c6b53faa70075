package service_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/ledger"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/repository"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/service"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/testutil"
)

type fixture struct {
	db        *sql.DB
	portfolio model.Portfolio
	btc       model.Asset
}

// newFixture seeds a USD portfolio that bought 1 BTC at 30000 on 2024-01-02 and
// 1 BTC at 40000 on 2024-01-03. BTC closes at 42000 on 2024-01-09 and trades at
// 43000 on the morning of 2024-01-10 (testutil.Now is noon that day).
func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	p := testutil.NewPortfolio().Build(t, db)
	btc := testutil.NewAsset().WithSymbol("BTC").WithClass(model.AssetClassCrypto).Build(t, db)

	testutil.NewTransaction(p.ID, btc.ID).WithPrice("30000").WithTradeTime(testutil.Day(2024, 1, 2).Add(12 * time.Hour)).Build(t, db)
	testutil.NewTransaction(p.ID, btc.ID).WithPrice("40000").WithTradeTime(testutil.Day(2024, 1, 3).Add(12 * time.Hour)).Build(t, db)

	testutil.NewQuote(btc.ID, "USD").WithPrice("30000").WithTimestamp(testutil.Day(2024, 1, 2).Add(16 * time.Hour)).Build(t, db)
	testutil.NewQuote(btc.ID, "USD").WithPrice("42000").WithTimestamp(testutil.Day(2024, 1, 9).Add(16 * time.Hour)).Build(t, db)
	testutil.NewQuote(btc.ID, "USD").WithPrice("43000").WithTimestamp(testutil.Day(2024, 1, 10).Add(10 * time.Hour)).Build(t, db)

	return fixture{db: db, portfolio: p, btc: btc}
}

// TestSummaryService_GetSummary tests building the Portfolio Summary end to end.
//
// WHY: the summary combines every engine component. These tests pin the numbers
// a user sees and check that memoization never serves a stale ledger.
func TestSummaryService_GetSummary(t *testing.T) {
	ctx := context.Background()

	t.Run("values the portfolio at the current time", func(t *testing.T) {
		f := newFixture(t)
		svc := testutil.NewTestSummaryService(t, f.db)

		s, err := svc.GetSummary(ctx, service.SummaryRequest{PortfolioID: f.portfolio.ID})
		require.NoError(t, err)

		assert.Equal(t, "86000", s.TotalValue.String())
		assert.Equal(t, "70000", s.TotalCost.String())
		assert.Equal(t, "16000", s.TotalUnrealizedPnl.String())
		assert.True(t, s.TotalRealizedPnl.IsZero())
		assert.Equal(t, "2000", s.DailyChange.String())
		assert.Equal(t, "2.38095238", s.DailyChangePercent.String())
		assert.True(t, s.AsOf.Equal(testutil.Now))

		require.Len(t, s.Positions, 1)
		assert.Equal(t, "BTC", s.Positions[0].Symbol)
		require.Len(t, s.Allocation, 1)
		assert.Equal(t, "100", s.Allocation[0].Percent.String())

		// 2024-01-02 through 2024-01-10
		require.Len(t, s.Performance, 9)
		assert.Equal(t, "30000", s.Performance[0].Value.String())
		assert.Equal(t, "84000", s.Performance[7].Value.String())
	})

	t.Run("values the portfolio at an earlier time", func(t *testing.T) {
		f := newFixture(t)
		svc := testutil.NewTestSummaryService(t, f.db)

		s, err := svc.GetSummary(ctx, service.SummaryRequest{
			PortfolioID: f.portfolio.ID,
			AsOf:        testutil.Day(2024, 1, 2).Add(18 * time.Hour),
			Days:        3,
		})
		require.NoError(t, err)

		assert.Equal(t, "30000", s.TotalValue.String())
		assert.True(t, s.DailyChange.IsZero(), "no close exists before the first trade")
		require.Len(t, s.Performance, 1)
	})

	t.Run("reflects transactions appended after a memoized read", func(t *testing.T) {
		f := newFixture(t)
		svc := testutil.NewTestSummaryService(t, f.db)

		first, err := svc.GetSummary(ctx, service.SummaryRequest{PortfolioID: f.portfolio.ID})
		require.NoError(t, err)
		again, err := svc.GetSummary(ctx, service.SummaryRequest{PortfolioID: f.portfolio.ID})
		require.NoError(t, err)
		assert.Equal(t, first.TotalValue.String(), again.TotalValue.String())

		testutil.NewTransaction(f.portfolio.ID, f.btc.ID).
			WithSide(model.SideSell).
			WithPrice("43000").
			WithTradeTime(testutil.Day(2024, 1, 10).Add(11 * time.Hour)).
			Build(t, f.db)

		after, err := svc.GetSummary(ctx, service.SummaryRequest{PortfolioID: f.portfolio.ID})
		require.NoError(t, err)
		assert.Equal(t, "43000", after.TotalValue.String())
		assert.Equal(t, "8000", after.TotalRealizedPnl.String())
	})

	t.Run("matches a fresh computation after a backdated insert", func(t *testing.T) {
		f := newFixture(t)
		svc := testutil.NewTestSummaryService(t, f.db)

		_, err := svc.GetSummary(ctx, service.SummaryRequest{PortfolioID: f.portfolio.ID})
		require.NoError(t, err)

		testutil.NewTransaction(f.portfolio.ID, f.btc.ID).
			WithPrice("20000").
			WithTradeTime(testutil.Day(2024, 1, 1)).
			Build(t, f.db)

		memoized, err := svc.GetSummary(ctx, service.SummaryRequest{PortfolioID: f.portfolio.ID})
		require.NoError(t, err)
		fresh, err := testutil.NewTestSummaryService(t, f.db).GetSummary(ctx, service.SummaryRequest{PortfolioID: f.portfolio.ID})
		require.NoError(t, err)

		assert.Equal(t, "129000", memoized.TotalValue.String())
		assert.Equal(t, fresh.TotalCost.String(), memoized.TotalCost.String())
		assert.Equal(t, fresh.Positions[0].AvgPrice.String(), memoized.Positions[0].AvgPrice.String())
	})

	t.Run("matches a fresh computation after a late quote for another pair", func(t *testing.T) {
		f := newFixture(t)
		eth := testutil.CreateAsset(t, f.db, "ETH", model.AssetClassCrypto)
		testutil.NewTransaction(f.portfolio.ID, eth.ID).WithPrice("2000").WithTradeTime(testutil.Day(2024, 1, 4)).Build(t, f.db)
		testutil.NewQuote(eth.ID, "USD").WithPrice("2100").WithTimestamp(testutil.Day(2024, 1, 10).Add(11 * time.Hour)).Build(t, f.db)
		svc := testutil.NewTestSummaryService(t, f.db)

		first, err := svc.GetSummary(ctx, service.SummaryRequest{PortfolioID: f.portfolio.ID})
		require.NoError(t, err)
		assert.Equal(t, "88100", first.TotalValue.String())

		// Older than the newest ETH quote, so the newest timestamp overall is unchanged.
		testutil.NewQuote(f.btc.ID, "USD").WithPrice("45000").WithTimestamp(testutil.Day(2024, 1, 10).Add(10*time.Hour + 30*time.Minute)).Build(t, f.db)

		memoized, err := svc.GetSummary(ctx, service.SummaryRequest{PortfolioID: f.portfolio.ID})
		require.NoError(t, err)
		fresh, err := testutil.NewTestSummaryService(t, f.db).GetSummary(ctx, service.SummaryRequest{PortfolioID: f.portfolio.ID})
		require.NoError(t, err)

		assert.Equal(t, "92100", fresh.TotalValue.String())
		assert.Equal(t, fresh.TotalValue.String(), memoized.TotalValue.String())
		assert.Equal(t, fresh.TotalUnrealizedPnl.String(), memoized.TotalUnrealizedPnl.String())
		assert.Equal(t, fresh.DailyChange.String(), memoized.DailyChange.String())
	})

	t.Run("matches a fresh computation at an earlier time on the same day", func(t *testing.T) {
		f := newFixture(t)
		testutil.NewTransaction(f.portfolio.ID, f.btc.ID).
			WithSide(model.SideSell).
			WithPrice("43000").
			WithTradeTime(testutil.Day(2024, 1, 10).Add(11 * time.Hour)).
			Build(t, f.db)
		testutil.NewTransaction(f.portfolio.ID, f.btc.ID).
			WithPrice("20000").
			WithTradeTime(testutil.Day(2024, 1, 1)).
			Build(t, f.db)
		svc := testutil.NewTestSummaryService(t, f.db)

		noon, err := svc.GetSummary(ctx, service.SummaryRequest{PortfolioID: f.portfolio.ID})
		require.NoError(t, err)
		assert.Equal(t, "13000", noon.TotalRealizedPnl.String())

		// The sell at 11:00 is excluded while the highest sequence stays the same.
		morning := testutil.Day(2024, 1, 10).Add(10*time.Hour + 30*time.Minute)
		memoized, err := svc.GetSummary(ctx, service.SummaryRequest{PortfolioID: f.portfolio.ID, AsOf: morning})
		require.NoError(t, err)
		fresh, err := testutil.NewTestSummaryService(t, f.db).GetSummary(ctx, service.SummaryRequest{PortfolioID: f.portfolio.ID, AsOf: morning})
		require.NoError(t, err)

		assert.True(t, fresh.TotalRealizedPnl.IsZero())
		assert.Equal(t, "129000", fresh.TotalValue.String())
		assert.Equal(t, fresh.TotalRealizedPnl.String(), memoized.TotalRealizedPnl.String())
		assert.Equal(t, fresh.TotalValue.String(), memoized.TotalValue.String())
		assert.True(t, memoized.AsOf.Equal(morning))
	})

	t.Run("a one day window still reports the daily change", func(t *testing.T) {
		f := newFixture(t)
		svc := testutil.NewTestSummaryService(t, f.db)

		s, err := svc.GetSummary(ctx, service.SummaryRequest{PortfolioID: f.portfolio.ID, Days: 1})
		require.NoError(t, err)

		require.Len(t, s.Performance, 1)
		assert.Equal(t, "2024-01-10", s.Performance[0].Date)
		assert.Equal(t, "2000", s.DailyChange.String())
	})

	t.Run("days counts the points including today", func(t *testing.T) {
		f := newFixture(t)
		svc := testutil.NewTestSummaryService(t, f.db)

		s, err := svc.GetSummary(ctx, service.SummaryRequest{PortfolioID: f.portfolio.ID, Days: 3})
		require.NoError(t, err)

		require.Len(t, s.Performance, 3)
		assert.Equal(t, "2024-01-08", s.Performance[0].Date)
		assert.Equal(t, "2024-01-10", s.Performance[2].Date)
	})

	t.Run("concurrent requests agree", func(t *testing.T) {
		f := newFixture(t)
		svc := testutil.NewTestSummaryService(t, f.db)

		const n = 8
		results := make([]*model.PortfolioSummary, n)
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], errs[i] = svc.GetSummary(ctx, service.SummaryRequest{PortfolioID: f.portfolio.ID, Days: 1 + i%2})
			}()
		}
		wg.Wait()

		for i := range n {
			require.NoError(t, errs[i])
			assert.Equal(t, "86000", results[i].TotalValue.String())
			assert.Len(t, results[i].Performance, 1+i%2)
		}
	})

	t.Run("callers do not share result slices", func(t *testing.T) {
		f := newFixture(t)
		svc := testutil.NewTestSummaryService(t, f.db)

		a, err := svc.GetSummary(ctx, service.SummaryRequest{PortfolioID: f.portfolio.ID})
		require.NoError(t, err)
		a.Positions[0].Symbol = "CHANGED"

		b, err := svc.GetSummary(ctx, service.SummaryRequest{PortfolioID: f.portfolio.ID})
		require.NoError(t, err)
		assert.Equal(t, "BTC", b.Positions[0].Symbol)
	})

	t.Run("unknown portfolio", func(t *testing.T) {
		f := newFixture(t)
		svc := testutil.NewTestSummaryService(t, f.db)

		_, err := svc.GetSummary(ctx, service.SummaryRequest{PortfolioID: testutil.MakeID()})
		assert.ErrorIs(t, err, apperrors.ErrPortfolioNotFound)
	})

	t.Run("oversold ledger fails with the offending transaction", func(t *testing.T) {
		f := newFixture(t)
		svc := testutil.NewTestSummaryService(t, f.db)
		bad := testutil.NewTransaction(f.portfolio.ID, f.btc.ID).
			WithSide(model.SideSell).
			WithQuantity("5").
			WithTradeTime(testutil.Day(2024, 1, 4)).
			Build(t, f.db)

		_, err := svc.GetSummary(ctx, service.SummaryRequest{PortfolioID: f.portfolio.ID})
		var qerr *apperrors.InsufficientQuantityError
		require.ErrorAs(t, err, &qerr)
		assert.Equal(t, bad.ID, qerr.TransactionID)
	})
}

// gatedQuotes blocks the first quote load until release is closed.
type gatedQuotes struct {
	service.QuoteSource
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedQuotes) GetQuotes(ctx context.Context, assetIDs []string, quoteCurrency string, until time.Time) ([]model.PriceQuote, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.QuoteSource.GetQuotes(ctx, assetIDs, quoteCurrency, until)
}

// TestSummaryService_CallerCancellation tests that a caller giving up does not
// fail the callers sharing its computation.
func TestSummaryService_CallerCancellation(t *testing.T) {
	f := newFixture(t)
	gate := &gatedQuotes{
		QuoteSource: repository.NewQuoteRepository(f.db),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	store := repository.NewLedgerStore(f.db)
	loader := service.NewDataLoaderService(
		store.PortfolioRepository,
		store.AssetRepository,
		ledger.NewReader(store).WithClock(testutil.Clock),
		gate,
		repository.NewSnapshotRepository(f.db),
	)
	aggregator := service.NewPositionAggregator(testutil.DefaultPrecision)
	valuation := service.NewValuationEngine()
	svc := service.NewSummaryService(
		loader,
		aggregator,
		valuation,
		service.NewAllocationCalculator(),
		service.NewPerformanceSeriesBuilder(aggregator, valuation, 2, zerolog.Nop()),
		30,
		zerolog.Nop(),
	).WithClock(testutil.Clock)
	req := service.SummaryRequest{PortfolioID: f.portfolio.ID}

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	errA := make(chan error, 1)
	go func() {
		_, err := svc.GetSummary(ctxA, req)
		errA <- err
	}()
	<-gate.entered

	type result struct {
		summary *model.PortfolioSummary
		err     error
	}
	resB := make(chan result, 1)
	go func() {
		s, err := svc.GetSummary(context.Background(), req)
		resB <- result{s, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		close(gate.release)
		t.Fatal("cancelled caller waited for the shared computation")
	}

	close(gate.release)
	select {
	case r := <-resB:
		require.NoError(t, r.err)
		assert.Equal(t, "86000", r.summary.TotalValue.String())
	case <-time.After(5 * time.Second):
		t.Fatal("second caller never received the summary")
	}
}

func TestSummaryService_GetPositions(t *testing.T) {
	f := newFixture(t)
	svc := testutil.NewTestSummaryService(t, f.db)
	eth := testutil.CreateAsset(t, f.db, "ETH", model.AssetClassCrypto)
	testutil.NewTransaction(f.portfolio.ID, eth.ID).WithPrice("2000").WithTradeTime(testutil.Day(2024, 1, 4)).Build(t, f.db)
	testutil.NewTransaction(f.portfolio.ID, eth.ID).WithSide(model.SideSell).WithPrice("2100").WithTradeTime(testutil.Day(2024, 1, 5)).Build(t, f.db)

	open, err := svc.GetPositions(context.Background(), f.portfolio.ID, time.Time{}, false)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	all, err := svc.GetPositions(context.Background(), f.portfolio.ID, time.Time{}, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSummaryService_GetPerformance(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the requested range with statistics", func(t *testing.T) {
		f := newFixture(t)
		svc := testutil.NewTestSummaryService(t, f.db)

		points, stats, err := svc.GetPerformance(ctx, f.portfolio.ID, testutil.Day(2024, 1, 8), testutil.Day(2024, 1, 9))
		require.NoError(t, err)

		require.Len(t, points, 2)
		assert.Equal(t, "2024-01-08", points[0].Date)
		assert.Equal(t, "60000", points[0].Value.String())
		assert.Equal(t, "84000", points[1].Value.String())
		assert.Equal(t, 2, stats.Days)
		assert.InDelta(t, 0.4, stats.MeanDailyReturn, 1e-9)
	})

	t.Run("rejects an inverted range", func(t *testing.T) {
		f := newFixture(t)
		svc := testutil.NewTestSummaryService(t, f.db)

		_, _, err := svc.GetPerformance(ctx, f.portfolio.ID, testutil.Day(2024, 1, 9), testutil.Day(2024, 1, 8))
		assert.ErrorIs(t, err, apperrors.ErrInvalidDateRange)
	})
}
