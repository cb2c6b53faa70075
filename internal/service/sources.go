package service

import (
	"context"
	"time"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

// The engine reads its inputs through these interfaces. The SQLite repositories
// implement them in production; tests use in-memory fakes.

// PortfolioSource resolves portfolios.
type PortfolioSource interface {
	GetPortfolioOnID(ctx context.Context, portfolioID string) (model.Portfolio, error)
	GetPortfolios(ctx context.Context, filter model.PortfolioFilter) ([]model.Portfolio, error)
}

// AssetCatalog returns asset reference data keyed by asset ID.
type AssetCatalog interface {
	GetAssets(ctx context.Context) (map[string]model.Asset, error)
}

// QuoteSource returns every quote for the given assets in one quote currency
// with a timestamp at or before until.
type QuoteSource interface {
	GetQuotes(ctx context.Context, assetIDs []string, quoteCurrency string, until time.Time) ([]model.PriceQuote, error)
}

// SnapshotSource returns stored snapshots of a portfolio between two dates inclusive.
type SnapshotSource interface {
	GetSnapshots(ctx context.Context, portfolioID string, start, end time.Time) ([]model.PortfolioSnapshot, error)
}

// SnapshotWriter stores snapshots, replacing any existing one for the same
// portfolio and date.
type SnapshotWriter interface {
	UpsertSnapshots(ctx context.Context, snapshots []model.PortfolioSnapshot) error
}

// AlertStore reads alert conditions and records triggers.
type AlertStore interface {
	GetAlertOnID(ctx context.Context, alertID string) (model.AlertCondition, error)
	GetActiveAlerts(ctx context.Context) ([]model.AlertCondition, error)
	MarkTriggered(ctx context.Context, alertID string, at time.Time) error
}
