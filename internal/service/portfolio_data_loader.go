package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/ledger"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

// DataLoaderService centralizes the loading of all data required for portfolio calculations.
// One call gathers the portfolio, its ordered ledger, asset reference data, the price and
// FX quotes the ledger needs and, optionally, the stored snapshots of a date range.
type DataLoaderService struct {
	portfolios PortfolioSource
	assets     AssetCatalog
	reader     *ledger.Reader
	quotes     QuoteSource
	snapshots  SnapshotSource
}

// NewDataLoaderService creates a new DataLoaderService with the provided dependencies.
// snapshots may be nil, in which case no snapshots are ever loaded.
func NewDataLoaderService(
	portfolios PortfolioSource,
	assets AssetCatalog,
	reader *ledger.Reader,
	quotes QuoteSource,
	snapshots SnapshotSource,
) *DataLoaderService {
	return &DataLoaderService{
		portfolios: portfolios,
		assets:     assets,
		reader:     reader,
		quotes:     quotes,
		snapshots:  snapshots,
	}
}

// PortfolioData contains all data needed for calculations on one portfolio at AsOf.
//
// Quotes holds every quote in the portfolio base currency for the traded assets and
// for the foreign currencies the ledger prices or charges fees in, up to AsOf.
type PortfolioData struct {
	Portfolio model.Portfolio
	Assets    map[string]model.Asset
	Ledger    *ledger.Sequence
	Quotes    *QuoteBook
	Snapshots []model.PortfolioSnapshot
	AsOf      time.Time
}

// AggregateRequest returns the fold input for this data.
func (d *PortfolioData) AggregateRequest() AggregateRequest {
	return AggregateRequest{Portfolio: d.Portfolio, Assets: d.Assets, Quotes: d.Quotes}
}

// LoadOptions selects the optional parts of a load.
type LoadOptions struct {
	// SnapshotsFrom loads stored snapshots from this date up to AsOf. Zero skips snapshots.
	SnapshotsFrom time.Time
}

// LoadForPortfolio loads everything needed to value portfolioID at asOf.
//
// Parameters:
//   - portfolioID: The portfolio to load
//   - asOf: Upper bound for transactions, quotes and snapshots
//   - opts: Optional snapshot range
//
// Returns apperrors.ErrPortfolioNotFound (wrapped) when the portfolio does not exist.
func (s *DataLoaderService) LoadForPortfolio(ctx context.Context, portfolioID string, asOf time.Time, opts LoadOptions) (*PortfolioData, error) {
	portfolio, err := s.portfolios.GetPortfolioOnID(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	seq, err := s.reader.TransactionsFor(ctx, ledger.Query{PortfolioID: portfolioID, AsOf: asOf})
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	assets, err := s.assets.GetAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}

	quotes, err := s.quotes.GetQuotes(ctx, quotedInstruments(seq, portfolio.BaseCurrency), portfolio.BaseCurrency, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to load quotes: %w", err)
	}

	data := &PortfolioData{
		Portfolio: portfolio,
		Assets:    assets,
		Ledger:    seq,
		Quotes:    NewQuoteBook(quotes),
		AsOf:      asOf,
	}

	if s.snapshots != nil && !opts.SnapshotsFrom.IsZero() && !opts.SnapshotsFrom.After(asOf) {
		data.Snapshots, err = s.snapshots.GetSnapshots(ctx, portfolioID, startOfDay(opts.SnapshotsFrom), asOf)
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshots: %w", err)
		}
	}

	return data, nil
}

// quotedInstruments lists the traded assets plus every foreign currency the
// ledger uses, so the fold can convert amounts into the base currency.
func quotedInstruments(seq *ledger.Sequence, base string) []string {
	ids := seq.Assets()
	for tx := range seq.All() {
		for _, ccy := range []string{tx.PriceCurrency, tx.FeeCurrency} {
			if ccy != "" && !strings.EqualFold(ccy, base) && !slices.Contains(ids, ccy) {
				ids = append(ids, ccy)
			}
		}
	}
	slices.Sort(ids)
	return ids
}
