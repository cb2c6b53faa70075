package testutil

import (
	"database/sql"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/ledger"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/repository"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/service"
)

// Now is the fixed clock used by the service helpers.
var Now = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

// Clock returns Now.
func Clock() time.Time {
	return Now
}

// Day returns UTC midnight of the given date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DefaultPrecision is the precision policy the service helpers use.
var DefaultPrecision = service.PrecisionPolicy{DefaultScale: 8, CryptoScale: 8}

func NewTestDataLoaderService(t *testing.T, db *sql.DB) *service.DataLoaderService {
	t.Helper()

	store := repository.NewLedgerStore(db)
	reader := ledger.NewReader(store).WithClock(Clock)

	return service.NewDataLoaderService(
		store.PortfolioRepository,
		store.AssetRepository,
		reader,
		repository.NewQuoteRepository(db),
		repository.NewSnapshotRepository(db),
	)
}

func NewTestSummaryService(t *testing.T, db *sql.DB) *service.SummaryService {
	t.Helper()

	aggregator := service.NewPositionAggregator(DefaultPrecision)
	valuation := service.NewValuationEngine()

	return service.NewSummaryService(
		NewTestDataLoaderService(t, db),
		aggregator,
		valuation,
		service.NewAllocationCalculator(),
		service.NewPerformanceSeriesBuilder(aggregator, valuation, 2, zerolog.Nop()),
		30,
		zerolog.Nop(),
	).WithClock(Clock)
}

func NewTestSnapshotService(t *testing.T, db *sql.DB) *service.SnapshotService {
	t.Helper()

	return service.NewSnapshotService(
		repository.NewPortfolioRepository(db),
		NewTestDataLoaderService(t, db),
		service.NewPositionAggregator(DefaultPrecision),
		service.NewValuationEngine(),
		repository.NewSnapshotRepository(db),
		zerolog.Nop(),
	).WithClock(Clock)
}

func NewTestAlertService(t *testing.T, db *sql.DB) *service.AlertService {
	t.Helper()

	return service.NewAlertService(
		repository.NewAlertRepository(db),
		repository.NewQuoteRepository(db),
		NewTestSummaryService(t, db),
		service.NewAlertEvaluator(service.DefaultAlertDefaults()),
		time.Hour,
		zerolog.Nop(),
	).WithClock(Clock)
}

func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()

	return service.NewSystemService(db)
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// MakeSymbol generates a ticker symbol for testing.
//
// Example usage:
//
//	symbol := testutil.MakeSymbol("AAPL")
//	// Returns: "AAPL1A2B"
func MakeSymbol(base string) string {
	if base == "" {
		base = "TEST"
	}
	return base + randomAlphanumeric(4)
}

// MakePortfolioName generates a unique portfolio name for testing.
//
// Example usage:
//
//	name := testutil.MakePortfolioName("MyPortfolio")
//	// Returns: "MyPortfolio ABC123"
func MakePortfolioName(base string) string {
	if base == "" {
		base = "Portfolio"
	}
	return base + " " + randomAlphanumeric(6)
}

// MakeSymbolName generates a unique asset name for testing.
func MakeSymbolName(base string) string {
	if base == "" {
		base = "Symbol"
	}
	return base + " " + randomAlphanumeric(6)
}

// randomAlphanumeric generates a random alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
