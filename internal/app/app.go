// Package app wires repositories and services into the engine used by the HTTP
// server, the scheduler and pvectl.
package app

import (
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/config"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/ledger"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/repository"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/service"
)

// Engine holds the services of one running process.
type Engine struct {
	System    *service.SystemService
	Summary   *service.SummaryService
	Snapshots *service.SnapshotService
	Alerts    *service.AlertService

	Store  *repository.LedgerStore
	Quotes *repository.QuoteRepository
}

// New builds an Engine over db using the engine and alert settings of cfg.
func New(db *sql.DB, cfg *config.Config, log zerolog.Logger) *Engine {
	store := repository.NewLedgerStore(db)
	quotes := repository.NewQuoteRepository(db)
	snapshots := repository.NewSnapshotRepository(db)
	alerts := repository.NewAlertRepository(db)

	loader := service.NewDataLoaderService(
		store.PortfolioRepository,
		store.AssetRepository,
		ledger.NewReader(store),
		quotes,
		snapshots,
	)

	aggregator := service.NewPositionAggregator(service.PrecisionPolicy{
		DefaultScale: cfg.Engine.DefaultScale,
		CryptoScale:  cfg.Engine.CryptoScale,
	})
	valuation := service.NewValuationEngine()

	summary := service.NewSummaryService(
		loader,
		aggregator,
		valuation,
		service.NewAllocationCalculator(),
		service.NewPerformanceSeriesBuilder(aggregator, valuation, cfg.Engine.PerformanceWorkers, log),
		cfg.Engine.PerformanceDays,
		log,
	)

	evaluator := service.NewAlertEvaluator(service.AlertDefaults{
		PercentWindow:  cfg.Alert.DefaultPercentWindow,
		DrawdownWindow: cfg.Alert.DefaultDrawdownWindow,
	})

	return &Engine{
		System:    service.NewSystemService(db),
		Summary:   summary,
		Snapshots: service.NewSnapshotService(store.PortfolioRepository, loader, aggregator, valuation, snapshots, log),
		Alerts:    service.NewAlertService(alerts, quotes, summary, evaluator, cfg.Alert.Cooldown, log),
		Store:     store,
		Quotes:    quotes,
	}
}
