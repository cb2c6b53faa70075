package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

// SnapshotService materializes daily PortfolioSnapshots so the performance
// series can skip recomputation. It is driven by the scheduler and the CLI.
type SnapshotService struct {
	portfolios PortfolioSource
	loader     *DataLoaderService
	aggregator *PositionAggregator
	valuation  *ValuationEngine
	writer     SnapshotWriter
	now        func() time.Time
	log        zerolog.Logger
}

// NewSnapshotService creates a new SnapshotService.
func NewSnapshotService(
	portfolios PortfolioSource,
	loader *DataLoaderService,
	aggregator *PositionAggregator,
	valuation *ValuationEngine,
	writer SnapshotWriter,
	log zerolog.Logger,
) *SnapshotService {
	return &SnapshotService{
		portfolios: portfolios,
		loader:     loader,
		aggregator: aggregator,
		valuation:  valuation,
		writer:     writer,
		now:        time.Now,
		log:        log.With().Str("service", "snapshot").Logger(),
	}
}

// WithClock replaces the clock used to stamp CalculatedAt.
func (s *SnapshotService) WithClock(now func() time.Time) *SnapshotService {
	s.now = now
	return s
}

// MaterializePortfolio computes and stores one snapshot per day from start to end
// inclusive, replacing existing ones. Days before the first transaction are skipped.
// The ledger is folded once, advancing a checkpoint day by day.
//
// Returns the number of snapshots written.
func (s *SnapshotService) MaterializePortfolio(ctx context.Context, portfolioID string, start, end time.Time) (int, error) {
	if end.Before(start) {
		start, end = end, start
	}
	asOf := endOfDay(end)

	data, err := s.loader.LoadForPortfolio(ctx, portfolioID, asOf, LoadOptions{})
	if err != nil {
		return 0, err
	}
	first, ok := data.Ledger.First()
	if !ok {
		return 0, nil
	}
	if day := startOfDay(first.TradeTime); day.After(start) {
		start = day
	}

	req := data.AggregateRequest()
	cp := Checkpoint{PortfolioID: portfolioID}
	calculatedAt := s.now().UTC()

	var snapshots []model.PortfolioSnapshot
	for day := startOfDay(start); !day.After(startOfDay(end)); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		dayClose := endOfDay(day)
		prefix := data.Ledger.Until(dayClose)
		cp, err = s.aggregator.AggregateFrom(req, cp, prefix.After(cp.Cursor))
		if err != nil {
			return 0, fmt.Errorf("materialize %s for %s: %w", portfolioID, dateKey(day), err)
		}

		v := s.valuation.Value(ValuationRequest{
			PortfolioID:  portfolioID,
			BaseCurrency: data.Portfolio.BaseCurrency,
			AsOf:         dayClose,
			Positions:    cp.Positions(),
			Assets:       data.Assets,
			Quotes:       data.Quotes,
		})

		snapshots = append(snapshots, model.PortfolioSnapshot{
			ID:             uuid.New().String(),
			PortfolioID:    portfolioID,
			Date:           day,
			TotalValue:     v.TotalValue,
			RealizedPnl:    v.TotalRealizedPnl,
			UnrealizedPnl:  v.TotalUnrealizedPnl,
			LedgerSequence: prefix.LastSequence(),
			CalculatedAt:   calculatedAt,
			QuotesDigest:   quoteInputsDigest(data.Quotes, prefix, data.Portfolio.BaseCurrency, dayClose),
		})
	}

	if len(snapshots) == 0 {
		return 0, nil
	}
	if err := s.writer.UpsertSnapshots(ctx, snapshots); err != nil {
		return 0, fmt.Errorf("failed to store snapshots: %w", err)
	}

	s.log.Info().
		Str("portfolio_id", portfolioID).
		Str("start", dateKey(start)).
		Str("end", dateKey(end)).
		Int("snapshots", len(snapshots)).
		Msg("snapshots materialized")

	return len(snapshots), nil
}

// MaterializeAll materializes the given day for every active portfolio. A failing
// portfolio is logged and does not stop the others; the first error is returned.
func (s *SnapshotService) MaterializeAll(ctx context.Context, day time.Time) (int, error) {
	portfolios, err := s.portfolios.GetPortfolios(ctx, model.PortfolioFilter{})
	if err != nil {
		return 0, fmt.Errorf("failed to list portfolios: %w", err)
	}

	var (
		total    int
		firstErr error
	)
	for _, p := range portfolios {
		n, err := s.MaterializePortfolio(ctx, p.ID, day, day)
		if err != nil {
			s.log.Error().Err(err).Str("portfolio_id", p.ID).Msg("snapshot materialization failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		total += n
	}
	return total, firstErr
}

// MaterializeYesterday is the nightly job: it snapshots the previous UTC day.
func (s *SnapshotService) MaterializeYesterday(ctx context.Context) error {
	_, err := s.MaterializeAll(ctx, startOfDay(s.now()).AddDate(0, 0, -1))
	return err
}
