package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/ledger"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

// PerformanceInput is everything the series builder reads. Ledger must hold the
// portfolio's transactions up to AsOf; Snapshots may be sparse, stale or empty.
type PerformanceInput struct {
	Portfolio model.Portfolio
	Assets    map[string]model.Asset
	Ledger    *ledger.Sequence
	Quotes    QuoteLookup
	Snapshots []model.PortfolioSnapshot
	Start     time.Time
	End       time.Time
	AsOf      time.Time
}

// PerformanceSeriesBuilder stitches stored snapshots and recomputed days into a
// gap-free daily series.
type PerformanceSeriesBuilder struct {
	aggregator *PositionAggregator
	valuation  *ValuationEngine
	workers    int
	log        zerolog.Logger
}

// NewPerformanceSeriesBuilder creates a builder. workers bounds how many
// fallback days are recomputed concurrently; values below 1 mean 1.
func NewPerformanceSeriesBuilder(
	aggregator *PositionAggregator,
	valuation *ValuationEngine,
	workers int,
	log zerolog.Logger,
) *PerformanceSeriesBuilder {
	return &PerformanceSeriesBuilder{
		aggregator: aggregator,
		valuation:  valuation,
		workers:    max(workers, 1),
		log:        log.With().Str("service", "performance").Logger(),
	}
}

// Build returns one point per UTC day between Start and End inclusive.
//
// The range is clamped to [first transaction day, AsOf]; a ledger with no
// transactions yields an empty series. For each day a stored snapshot is used
// when it exists and is not stale. A snapshot is stale when the ledger holds a
// transaction traded on or before that day's close whose sequence is higher than
// the snapshot's LedgerSequence, i.e. a backdated insert the snapshot never saw,
// or when the quotes its valuation read have changed since, i.e. a late quote.
// Snapshots without a quotes digest are always stale.
// Every other day is recomputed by folding the ledger up to the day's close and
// valuing it with the quotes at or before that close.
//
// Recomputation runs in parallel and stops at the first error or when ctx is done.
func (b *PerformanceSeriesBuilder) Build(ctx context.Context, in PerformanceInput) ([]model.PerformancePoint, error) {
	if !in.Start.IsZero() && !in.End.IsZero() && in.Start.After(in.End) {
		return nil, fmt.Errorf("%w: start %s is after end %s", apperrors.ErrInvalidDateRange, dateKey(in.Start), dateKey(in.End))
	}

	if in.AsOf.IsZero() {
		in.AsOf = in.End
		if last, ok := in.Ledger.Last(); ok && in.AsOf.IsZero() {
			in.AsOf = endOfDay(last.TradeTime)
		}
	}

	days := b.days(in)
	points := make([]model.PerformancePoint, len(days))
	if len(days) == 0 {
		return points, nil
	}

	snapshots := make(map[string]model.PortfolioSnapshot, len(in.Snapshots))
	for _, s := range in.Snapshots {
		snapshots[dateKey(s.Date)] = s
	}

	req := AggregateRequest{Portfolio: in.Portfolio, Assets: in.Assets, Quotes: in.Quotes}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	var fromSnapshots int
	for i, day := range days {
		cutoff := b.cutoff(day, in.AsOf)
		key := dateKey(day)

		if snap, ok := snapshots[key]; ok && !isStale(snap, in, cutoff) {
			points[i] = model.PerformancePoint{
				Date:   key,
				Value:  snap.TotalValue,
				Pnl:    snap.Pnl(),
				Source: model.PerformanceFromSnapshot,
			}
			fromSnapshots++
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cp, err := b.aggregator.Aggregate(req, in.Ledger.Until(cutoff))
			if err != nil {
				return fmt.Errorf("recompute %s: %w", key, err)
			}
			v := b.valuation.Value(ValuationRequest{
				PortfolioID:  in.Portfolio.ID,
				BaseCurrency: in.Portfolio.BaseCurrency,
				AsOf:         cutoff,
				Positions:    cp.Positions(),
				Assets:       in.Assets,
				Quotes:       in.Quotes,
			})
			points[i] = model.PerformancePoint{
				Date:   key,
				Value:  v.TotalValue,
				Pnl:    v.TotalPnl(),
				Source: model.PerformanceComputed,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.log.Debug().
		Str("portfolio_id", in.Portfolio.ID).
		Int("days", len(days)).
		Int("from_snapshots", fromSnapshots).
		Msg("performance series built")

	return points, nil
}

// days lists the UTC midnights covered by the clamped range.
func (b *PerformanceSeriesBuilder) days(in PerformanceInput) []time.Time {
	first, ok := in.Ledger.First()
	if !ok {
		return nil
	}

	start := startOfDay(first.TradeTime)
	if !in.Start.IsZero() && startOfDay(in.Start).After(start) {
		start = startOfDay(in.Start)
	}
	end := in.AsOf
	if !in.End.IsZero() && in.End.Before(end) {
		end = in.End
	}
	end = startOfDay(end)

	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// cutoff is the day's close, or asOf for the current day.
func (b *PerformanceSeriesBuilder) cutoff(day, asOf time.Time) time.Time {
	dayClose := endOfDay(day)
	if asOf.Before(dayClose) {
		return asOf
	}
	return dayClose
}

func isStale(snap model.PortfolioSnapshot, in PerformanceInput, cutoff time.Time) bool {
	prefix := in.Ledger.Until(cutoff)
	if prefix.LastSequence() > snap.LedgerSequence {
		return true
	}
	return snap.QuotesDigest != quoteInputsDigest(in.Quotes, prefix, in.Portfolio.BaseCurrency, cutoff)
}
