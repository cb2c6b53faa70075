package service

import (
	"context"
	"crypto/sha256"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

// SummaryService builds portfolio summaries, positions and performance series.
//
// Only one computation per portfolio runs at a time: identical concurrent
// requests share a single in-flight result, and requests for the same portfolio
// with different parameters queue behind each other. Different portfolios are
// computed in parallel.
//
// The last summary of each portfolio is memoized on digests of everything it
// was computed from: the ledger up to the as-of time, the quotes at or before
// it and the stored snapshots in the window, plus the window and the as-of day.
// A request whose inputs digest the same way is served from the memo.
type SummaryService struct {
	loader      *DataLoaderService
	aggregator  *PositionAggregator
	valuation   *ValuationEngine
	allocation  *AllocationCalculator
	performance *PerformanceSeriesBuilder
	defaultDays int
	now         func() time.Time
	log         zerolog.Logger

	flight singleflight.Group
	locks  sync.Map // portfolio ID -> *sync.Mutex

	mu   sync.Mutex
	memo map[string]summaryMemo
}

type summaryKey struct {
	ledger    [sha256.Size]byte
	quotes    [sha256.Size]byte
	snapshots [sha256.Size]byte
	days      int
	asOfDay   string
}

type summaryMemo struct {
	key        summaryKey
	summary    model.PortfolioSummary
	checkpoint Checkpoint
	// foldQuotes digests the quotes the checkpoint's fold could have read, i.e.
	// those at or before its cursor.
	foldQuotes [sha256.Size]byte
	asOf       time.Time
}

// NewSummaryService creates a new SummaryService. defaultDays is the performance
// window used when a request does not set one.
func NewSummaryService(
	loader *DataLoaderService,
	aggregator *PositionAggregator,
	valuation *ValuationEngine,
	allocation *AllocationCalculator,
	performance *PerformanceSeriesBuilder,
	defaultDays int,
	log zerolog.Logger,
) *SummaryService {
	return &SummaryService{
		loader:      loader,
		aggregator:  aggregator,
		valuation:   valuation,
		allocation:  allocation,
		performance: performance,
		defaultDays: max(defaultDays, 1),
		now:         time.Now,
		log:         log.With().Str("service", "summary").Logger(),
		memo:        make(map[string]summaryMemo),
	}
}

// WithClock replaces the clock used when a request has no as-of time.
func (s *SummaryService) WithClock(now func() time.Time) *SummaryService {
	s.now = now
	return s
}

// SummaryRequest selects the portfolio, the valuation time (zero means now) and
// the number of daily points in the performance series, today included (zero
// means the default).
type SummaryRequest struct {
	PortfolioID string
	AsOf        time.Time
	Days        int
}

// GetSummary returns the Portfolio Summary of req.PortfolioID at req.AsOf.
//
// The summary lists open positions only; realized P&L of closed positions is still
// part of TotalRealizedPnl. DailyChange compares TotalValue with the previous day's
// close and is zero when the portfolio had no history yet.
//
// Identical concurrent requests share one computation. It runs detached from any
// single caller's context, so a caller that gives up gets ctx.Err() while the
// others still receive the result.
func (s *SummaryService) GetSummary(ctx context.Context, req SummaryRequest) (*model.PortfolioSummary, error) {
	if req.AsOf.IsZero() {
		req.AsOf = s.now().UTC()
	}
	if req.Days <= 0 {
		req.Days = s.defaultDays
	}

	flightKey := fmt.Sprintf("%s|%s|%d", req.PortfolioID, req.AsOf.Format(time.RFC3339Nano), req.Days)
	detached := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(flightKey, func() (any, error) {
		unlock := s.lockPortfolio(req.PortfolioID)
		defer unlock()
		return s.computeSummary(detached, req)
	})

	select {
	case <-ctx.Done():
		s.log.Debug().Str("portfolio_id", req.PortfolioID).Err(ctx.Err()).Msg("summary caller gave up")
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.log.Debug().Str("portfolio_id", req.PortfolioID).Msg("shared in-flight summary")
		}
		return cloneSummary(res.Val.(model.PortfolioSummary), req.AsOf), nil
	}
}

func (s *SummaryService) computeSummary(ctx context.Context, req SummaryRequest) (model.PortfolioSummary, error) {
	today := startOfDay(req.AsOf)
	start := today.AddDate(0, 0, -(req.Days - 1))
	// The series is built from yesterday at the latest so DailyChange has a close
	// to compare with, and trimmed back to start afterwards.
	buildFrom := start
	if req.Days < 2 {
		buildFrom = today.AddDate(0, 0, -1)
	}
	data, err := s.loader.LoadForPortfolio(ctx, req.PortfolioID, req.AsOf, LoadOptions{SnapshotsFrom: buildFrom})
	if err != nil {
		return model.PortfolioSummary{}, err
	}

	key := summaryKey{
		ledger:    data.Ledger.Fingerprint(),
		quotes:    data.Quotes.Fingerprint(req.AsOf),
		snapshots: snapshotsFingerprint(data.Snapshots),
		days:      req.Days,
		asOfDay:   dateKey(req.AsOf),
	}
	lastSequence := data.Ledger.LastSequence()

	s.mu.Lock()
	prev, hasPrev := s.memo[req.PortfolioID]
	s.mu.Unlock()
	if hasPrev && prev.key == key {
		s.log.Debug().Str("portfolio_id", req.PortfolioID).Int64("ledger_sequence", lastSequence).Msg("summary memo hit")
		return prev.summary, nil
	}

	cp, err := s.checkpoint(data, prev, hasPrev)
	if err != nil {
		return model.PortfolioSummary{}, err
	}

	valuation := s.valuation.Value(ValuationRequest{
		PortfolioID:  data.Portfolio.ID,
		BaseCurrency: data.Portfolio.BaseCurrency,
		AsOf:         req.AsOf,
		Positions:    cp.Positions(),
		Assets:       data.Assets,
		Quotes:       data.Quotes,
	})

	series, err := s.performance.Build(ctx, PerformanceInput{
		Portfolio: data.Portfolio,
		Assets:    data.Assets,
		Ledger:    data.Ledger,
		Quotes:    data.Quotes,
		Snapshots: data.Snapshots,
		Start:     buildFrom,
		End:       req.AsOf,
		AsOf:      req.AsOf,
	})
	if err != nil {
		return model.PortfolioSummary{}, err
	}

	summary := model.PortfolioSummary{
		PortfolioID:        data.Portfolio.ID,
		BaseCurrency:       data.Portfolio.BaseCurrency,
		AsOf:               req.AsOf,
		TotalValue:         valuation.TotalValue,
		TotalCost:          valuation.TotalCost,
		TotalUnrealizedPnl: valuation.TotalUnrealizedPnl,
		TotalRealizedPnl:   valuation.TotalRealizedPnl,
		DailyChange:        decimal.Zero,
		DailyChangePercent: decimal.Zero,
		Positions:          valuation.OpenPositions(),
		Allocation:         s.allocation.Calculate(valuation.Positions),
		Performance:        trimSeries(series, dateKey(start)),
		MissingQuotes:      valuation.MissingQuotes,
	}

	yesterday := dateKey(startOfDay(req.AsOf).AddDate(0, 0, -1))
	for _, p := range series {
		if p.Date == yesterday {
			summary.DailyChange = valuation.TotalValue.Sub(p.Value)
			summary.DailyChangePercent = percentOf(summary.DailyChange, p.Value)
		}
	}

	s.mu.Lock()
	s.memo[req.PortfolioID] = summaryMemo{
		key:        key,
		summary:    summary,
		checkpoint: cp,
		foldQuotes: data.Quotes.Fingerprint(cp.Cursor.TradeTime),
		asOf:       req.AsOf,
	}
	s.mu.Unlock()

	s.log.Info().
		Str("portfolio_id", req.PortfolioID).
		Int("positions", len(summary.Positions)).
		Int("missing_quotes", len(summary.MissingQuotes)).
		Int64("ledger_sequence", lastSequence).
		Msg("summary computed")

	return summary, nil
}

// checkpoint folds the ledger. The memoized checkpoint is advanced instead when
// the new as-of time is not earlier than the memoized one and the exchange
// rates its fold read are unchanged.
func (s *SummaryService) checkpoint(data *PortfolioData, prev summaryMemo, hasPrev bool) (Checkpoint, error) {
	req := data.AggregateRequest()
	if hasPrev && !data.AsOf.Before(prev.asOf) &&
		data.Quotes.Fingerprint(prev.checkpoint.Cursor.TradeTime) == prev.foldQuotes {
		return s.aggregator.Advance(req, prev.checkpoint, data.Ledger)
	}
	return s.aggregator.Aggregate(req, data.Ledger)
}

// snapshotsFingerprint digests the stored snapshots a series may read.
func snapshotsFingerprint(snaps []model.PortfolioSnapshot) [sha256.Size]byte {
	h := sha256.New()
	for _, snap := range snaps {
		fmt.Fprintf(h, "%s\x00%s\x00%d\x00%d\x00%s\x00%s\x00%s\x00%s\n",
			snap.ID, dateKey(snap.Date), snap.LedgerSequence, snap.CalculatedAt.UnixNano(),
			snap.TotalValue.String(), snap.RealizedPnl.String(), snap.UnrealizedPnl.String(), snap.QuotesDigest)
	}
	var sum [sha256.Size]byte
	h.Sum(sum[:0])
	return sum
}

// trimSeries drops the points dated before from.
func trimSeries(series []model.PerformancePoint, from string) []model.PerformancePoint {
	i := 0
	for i < len(series) && series[i].Date < from {
		i++
	}
	return series[i:]
}

// Valuate folds and values a portfolio at asOf without building the summary.
func (s *SummaryService) Valuate(ctx context.Context, portfolioID string, asOf time.Time) (*PortfolioData, Valuation, error) {
	if asOf.IsZero() {
		asOf = s.now().UTC()
	}
	data, err := s.loader.LoadForPortfolio(ctx, portfolioID, asOf, LoadOptions{})
	if err != nil {
		return nil, Valuation{}, err
	}

	unlock := s.lockPortfolio(portfolioID)
	cp, err := s.aggregator.Aggregate(data.AggregateRequest(), data.Ledger)
	unlock()
	if err != nil {
		return nil, Valuation{}, err
	}

	return data, s.valuation.Value(ValuationRequest{
		PortfolioID:  data.Portfolio.ID,
		BaseCurrency: data.Portfolio.BaseCurrency,
		AsOf:         asOf,
		Positions:    cp.Positions(),
		Assets:       data.Assets,
		Quotes:       data.Quotes,
	}), nil
}

// GetPositions returns the valued positions of a portfolio at asOf. Closed
// positions are included only when includeClosed is set.
func (s *SummaryService) GetPositions(ctx context.Context, portfolioID string, asOf time.Time, includeClosed bool) ([]model.ValuedPosition, error) {
	_, valuation, err := s.Valuate(ctx, portfolioID, asOf)
	if err != nil {
		return nil, err
	}
	if includeClosed {
		return valuation.Positions, nil
	}
	return valuation.OpenPositions(), nil
}

// GetPerformance returns the daily series between start and end plus its statistics.
// A zero end means now; a zero start means the first transaction.
func (s *SummaryService) GetPerformance(ctx context.Context, portfolioID string, start, end time.Time) ([]model.PerformancePoint, SeriesStats, error) {
	asOf := s.now().UTC()
	if !end.IsZero() && end.Before(asOf) {
		asOf = endOfDay(end)
	}
	if !start.IsZero() && start.After(asOf) {
		return nil, SeriesStats{}, fmt.Errorf("%w: start %s is after end %s", apperrors.ErrInvalidDateRange, dateKey(start), dateKey(asOf))
	}

	snapshotsFrom := start
	if snapshotsFrom.IsZero() {
		snapshotsFrom = time.Unix(0, 0).UTC()
	}
	data, err := s.loader.LoadForPortfolio(ctx, portfolioID, asOf, LoadOptions{SnapshotsFrom: snapshotsFrom})
	if err != nil {
		return nil, SeriesStats{}, err
	}

	unlock := s.lockPortfolio(portfolioID)
	defer unlock()

	series, err := s.performance.Build(ctx, PerformanceInput{
		Portfolio: data.Portfolio,
		Assets:    data.Assets,
		Ledger:    data.Ledger,
		Quotes:    data.Quotes,
		Snapshots: data.Snapshots,
		Start:     start,
		End:       asOf,
		AsOf:      asOf,
	})
	if err != nil {
		return nil, SeriesStats{}, err
	}

	return series, ComputeSeriesStats(series), nil
}

func (s *SummaryService) lockPortfolio(portfolioID string) func() {
	m, _ := s.locks.LoadOrStore(portfolioID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// cloneSummary copies the slices so callers never share backing arrays with
// the memo or with each other.
func cloneSummary(in model.PortfolioSummary, asOf time.Time) *model.PortfolioSummary {
	out := in
	out.AsOf = asOf
	out.Positions = slices.Clone(in.Positions)
	out.Allocation = slices.Clone(in.Allocation)
	out.Performance = slices.Clone(in.Performance)
	out.MissingQuotes = slices.Clone(in.MissingQuotes)
	return &out
}
