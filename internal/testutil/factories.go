package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/repository"
)

// PortfolioBuilder provides a fluent interface for creating test portfolios.
//
// Example usage:
//
//	// Simple creation with defaults
//	portfolio := testutil.NewPortfolio().Build(t, db)
//
//	// Customized portfolio
//	portfolio := testutil.NewPortfolio().
//	    WithName("Custom Portfolio").
//	    WithBaseCurrency("EUR").
//	    Archived().
//	    Build(t, db)
type PortfolioBuilder struct {
	ID           string
	OwnerID      string
	Name         string
	BaseCurrency string
	IsArchived   bool
	CreatedAt    time.Time
}

// NewPortfolio creates a PortfolioBuilder with sensible defaults.
func NewPortfolio() *PortfolioBuilder {
	return &PortfolioBuilder{
		ID:           MakeID(),
		OwnerID:      MakeID(),
		Name:         MakePortfolioName("Test Portfolio"),
		BaseCurrency: "USD",
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// WithID sets a custom ID.
func (b *PortfolioBuilder) WithID(id string) *PortfolioBuilder {
	b.ID = id
	return b
}

// WithOwner sets the owner ID.
func (b *PortfolioBuilder) WithOwner(ownerID string) *PortfolioBuilder {
	b.OwnerID = ownerID
	return b
}

// WithName sets a custom name.
func (b *PortfolioBuilder) WithName(name string) *PortfolioBuilder {
	b.Name = name
	return b
}

// WithBaseCurrency sets the valuation currency.
func (b *PortfolioBuilder) WithBaseCurrency(currency string) *PortfolioBuilder {
	b.BaseCurrency = currency
	return b
}

// Archived marks the portfolio as archived.
func (b *PortfolioBuilder) Archived() *PortfolioBuilder {
	b.IsArchived = true
	return b
}

// Model returns the portfolio without storing it.
func (b *PortfolioBuilder) Model() model.Portfolio {
	return model.Portfolio{
		ID:           b.ID,
		OwnerID:      b.OwnerID,
		Name:         b.Name,
		BaseCurrency: b.BaseCurrency,
		IsArchived:   b.IsArchived,
		CreatedAt:    b.CreatedAt,
	}
}

// Build creates the portfolio in the database and returns it.
func (b *PortfolioBuilder) Build(t *testing.T, db *sql.DB) model.Portfolio {
	t.Helper()

	p := b.Model()
	if err := repository.NewPortfolioRepository(db).InsertPortfolio(context.Background(), p); err != nil {
		t.Fatalf("Failed to create test portfolio: %v", err)
	}
	return p
}

// Convenience functions

// CreatePortfolio creates a portfolio with the given name and default values.
//
// Example usage:
//
//	portfolio := testutil.CreatePortfolio(t, db, "My Portfolio")
func CreatePortfolio(t *testing.T, db *sql.DB, name string) model.Portfolio {
	t.Helper()
	return NewPortfolio().WithName(name).Build(t, db)
}

// CreateArchivedPortfolio creates an archived portfolio.
func CreateArchivedPortfolio(t *testing.T, db *sql.DB, name string) model.Portfolio {
	t.Helper()
	return NewPortfolio().WithName(name).Archived().Build(t, db)
}

// AssetBuilder provides a fluent interface for creating test assets.
//
// Example usage:
//
//	btc := testutil.NewAsset().
//	    WithSymbol("BTC").
//	    WithClass(model.AssetClassCrypto).
//	    Build(t, db)
type AssetBuilder struct {
	ID        string
	Symbol    string
	Name      string
	Class     model.AssetClass
	Precision int32
}

// NewAsset creates an AssetBuilder with sensible defaults.
func NewAsset() *AssetBuilder {
	symbol := MakeSymbol("TEST")
	return &AssetBuilder{
		ID:     MakeID(),
		Symbol: symbol,
		Name:   MakeSymbolName(symbol),
		Class:  model.AssetClassOther,
	}
}

// WithID sets a custom ID. Currency assets use their ISO code as ID.
func (b *AssetBuilder) WithID(id string) *AssetBuilder {
	b.ID = id
	return b
}

// WithSymbol sets a custom symbol.
func (b *AssetBuilder) WithSymbol(symbol string) *AssetBuilder {
	b.Symbol = symbol
	return b
}

// WithClass sets the asset class.
func (b *AssetBuilder) WithClass(class model.AssetClass) *AssetBuilder {
	b.Class = class
	return b
}

// WithPrecision sets the division scale of the asset.
func (b *AssetBuilder) WithPrecision(precision int32) *AssetBuilder {
	b.Precision = precision
	return b
}

// Model returns the asset without storing it.
func (b *AssetBuilder) Model() model.Asset {
	return model.Asset{
		ID:        b.ID,
		Symbol:    b.Symbol,
		Name:      b.Name,
		Class:     b.Class,
		Precision: b.Precision,
	}
}

// Build creates the asset in the database and returns it.
func (b *AssetBuilder) Build(t *testing.T, db *sql.DB) model.Asset {
	t.Helper()

	a := b.Model()
	if err := repository.NewAssetRepository(db).InsertAsset(context.Background(), a); err != nil {
		t.Fatalf("Failed to create test asset: %v", err)
	}
	return a
}

// CreateAsset creates an asset with the given symbol and class.
func CreateAsset(t *testing.T, db *sql.DB, symbol string, class model.AssetClass) model.Asset {
	t.Helper()
	return NewAsset().WithSymbol(symbol).WithClass(class).Build(t, db)
}

// TransactionBuilder provides a fluent interface for creating ledger transactions.
// Quantities and prices are decimal strings so tests read like the ledger.
//
// Example usage:
//
//	tx := testutil.NewTransaction(portfolio.ID, asset.ID).
//	    WithSide(model.SideSell).
//	    WithQuantity("0.5").
//	    WithPrice("40000").
//	    WithTradeTime(testutil.Day(2024, 1, 3)).
//	    Build(t, db)
type TransactionBuilder struct {
	ID            string
	PortfolioID   string
	AssetID       string
	Side          model.Side
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	PriceCurrency string
	Fee           decimal.Decimal
	FeeCurrency   string
	TradeTime     time.Time
	Sequence      int64
}

// NewTransaction creates a TransactionBuilder for a BUY of 1 unit at 100 USD.
func NewTransaction(portfolioID, assetID string) *TransactionBuilder {
	return &TransactionBuilder{
		ID:            MakeID(),
		PortfolioID:   portfolioID,
		AssetID:       assetID,
		Side:          model.SideBuy,
		Quantity:      decimal.NewFromInt(1),
		Price:         decimal.NewFromInt(100),
		PriceCurrency: "USD",
		Fee:           decimal.Zero,
		TradeTime:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// WithID sets a custom ID.
func (b *TransactionBuilder) WithID(id string) *TransactionBuilder {
	b.ID = id
	return b
}

// WithSide sets the transaction side.
func (b *TransactionBuilder) WithSide(side model.Side) *TransactionBuilder {
	b.Side = side
	return b
}

// WithQuantity sets the quantity.
func (b *TransactionBuilder) WithQuantity(qty string) *TransactionBuilder {
	b.Quantity = decimal.RequireFromString(qty)
	return b
}

// WithPrice sets the unit price.
func (b *TransactionBuilder) WithPrice(price string) *TransactionBuilder {
	b.Price = decimal.RequireFromString(price)
	return b
}

// WithPriceCurrency sets the currency of the price.
func (b *TransactionBuilder) WithPriceCurrency(currency string) *TransactionBuilder {
	b.PriceCurrency = currency
	return b
}

// WithFee sets the fee and its currency. An empty currency means the price currency.
func (b *TransactionBuilder) WithFee(fee, currency string) *TransactionBuilder {
	b.Fee = decimal.RequireFromString(fee)
	b.FeeCurrency = currency
	return b
}

// WithTradeTime sets the trade time.
func (b *TransactionBuilder) WithTradeTime(t time.Time) *TransactionBuilder {
	b.TradeTime = t
	return b
}

// WithSequence sets the ledger sequence. Build ignores it; the database assigns one.
func (b *TransactionBuilder) WithSequence(seq int64) *TransactionBuilder {
	b.Sequence = seq
	return b
}

// Model returns the transaction without storing it.
func (b *TransactionBuilder) Model() model.Transaction {
	return model.Transaction{
		ID:            b.ID,
		PortfolioID:   b.PortfolioID,
		AssetID:       b.AssetID,
		Side:          b.Side,
		Quantity:      b.Quantity,
		Price:         b.Price,
		PriceCurrency: b.PriceCurrency,
		Fee:           b.Fee,
		FeeCurrency:   b.FeeCurrency,
		TradeTime:     b.TradeTime,
		Sequence:      b.Sequence,
	}
}

// Build appends the transaction to the ledger and returns it with its sequence.
func (b *TransactionBuilder) Build(t *testing.T, db *sql.DB) model.Transaction {
	t.Helper()

	tx, err := repository.NewTransactionRepository(db).AppendTransaction(context.Background(), b.Model())
	if err != nil {
		t.Fatalf("Failed to create test transaction: %v", err)
	}
	return tx
}

// QuoteBuilder provides a fluent interface for creating price quotes.
//
// Example usage:
//
//	testutil.NewQuote(btc.ID, "USD").
//	    WithPrice("42000").
//	    WithTimestamp(testutil.Day(2024, 1, 2)).
//	    Build(t, db)
type QuoteBuilder struct {
	AssetID       string
	QuoteCurrency string
	Price         decimal.Decimal
	Timestamp     time.Time
	Source        string
}

// NewQuote creates a QuoteBuilder with sensible defaults.
func NewQuote(assetID, quoteCurrency string) *QuoteBuilder {
	return &QuoteBuilder{
		AssetID:       assetID,
		QuoteCurrency: quoteCurrency,
		Price:         decimal.NewFromInt(100),
		Timestamp:     time.Date(2024, 1, 1, 16, 0, 0, 0, time.UTC),
		Source:        "test",
	}
}

// WithPrice sets the quoted price.
func (b *QuoteBuilder) WithPrice(price string) *QuoteBuilder {
	b.Price = decimal.RequireFromString(price)
	return b
}

// WithTimestamp sets the quote time.
func (b *QuoteBuilder) WithTimestamp(t time.Time) *QuoteBuilder {
	b.Timestamp = t
	return b
}

// WithSource sets the quote source.
func (b *QuoteBuilder) WithSource(source string) *QuoteBuilder {
	b.Source = source
	return b
}

// Model returns the quote without storing it.
func (b *QuoteBuilder) Model() model.PriceQuote {
	return model.PriceQuote{
		AssetID:       b.AssetID,
		QuoteCurrency: b.QuoteCurrency,
		Price:         b.Price,
		Timestamp:     b.Timestamp,
		Source:        b.Source,
	}
}

// Build creates the quote in the database and returns it.
func (b *QuoteBuilder) Build(t *testing.T, db *sql.DB) model.PriceQuote {
	t.Helper()

	q := b.Model()
	if err := repository.NewQuoteRepository(db).InsertQuote(context.Background(), q); err != nil {
		t.Fatalf("Failed to create test quote: %v", err)
	}
	return q
}

// SnapshotBuilder provides a fluent interface for creating portfolio snapshots.
type SnapshotBuilder struct {
	PortfolioID    string
	Date           time.Time
	TotalValue     decimal.Decimal
	RealizedPnl    decimal.Decimal
	UnrealizedPnl  decimal.Decimal
	LedgerSequence int64
	QuotesDigest   string
}

// NewSnapshot creates a SnapshotBuilder for portfolioID on date.
func NewSnapshot(portfolioID string, date time.Time) *SnapshotBuilder {
	return &SnapshotBuilder{
		PortfolioID: portfolioID,
		Date:        date,
	}
}

// WithValue sets the total value and P&L split.
func (b *SnapshotBuilder) WithValue(total, realized, unrealized string) *SnapshotBuilder {
	b.TotalValue = decimal.RequireFromString(total)
	b.RealizedPnl = decimal.RequireFromString(realized)
	b.UnrealizedPnl = decimal.RequireFromString(unrealized)
	return b
}

// WithLedgerSequence sets the highest ledger sequence folded into the snapshot.
func (b *SnapshotBuilder) WithLedgerSequence(seq int64) *SnapshotBuilder {
	b.LedgerSequence = seq
	return b
}

// WithQuotesDigest sets the digest of the quotes the snapshot was valued with.
func (b *SnapshotBuilder) WithQuotesDigest(digest string) *SnapshotBuilder {
	b.QuotesDigest = digest
	return b
}

// Model returns the snapshot without storing it.
func (b *SnapshotBuilder) Model() model.PortfolioSnapshot {
	return model.PortfolioSnapshot{
		ID:             MakeID(),
		PortfolioID:    b.PortfolioID,
		Date:           b.Date,
		TotalValue:     b.TotalValue,
		RealizedPnl:    b.RealizedPnl,
		UnrealizedPnl:  b.UnrealizedPnl,
		LedgerSequence: b.LedgerSequence,
		CalculatedAt:   b.Date.Add(24 * time.Hour),
		QuotesDigest:   b.QuotesDigest,
	}
}

// Build creates the snapshot in the database and returns it.
func (b *SnapshotBuilder) Build(t *testing.T, db *sql.DB) model.PortfolioSnapshot {
	t.Helper()

	s := b.Model()
	if err := repository.NewSnapshotRepository(db).UpsertSnapshots(context.Background(), []model.PortfolioSnapshot{s}); err != nil {
		t.Fatalf("Failed to create test snapshot: %v", err)
	}
	return s
}

// AlertBuilder provides a fluent interface for creating alert conditions.
//
// Example usage:
//
//	alert := testutil.NewAlert(model.AlertPriceAbove).
//	    ForAsset(btc.ID, "USD").
//	    WithThreshold("45000").
//	    Build(t, db)
type AlertBuilder struct {
	cond model.AlertCondition
}

// NewAlert creates an active AlertBuilder of the given type.
func NewAlert(alertType model.AlertType) *AlertBuilder {
	return &AlertBuilder{cond: model.AlertCondition{
		ID:        MakeID(),
		OwnerID:   MakeID(),
		Scope:     model.AlertScopePortfolio,
		Type:      alertType,
		Threshold: decimal.Zero,
		State:     model.AlertActive,
	}}
}

// ForAsset scopes the condition to one asset priced in quoteCurrency.
func (b *AlertBuilder) ForAsset(assetID, quoteCurrency string) *AlertBuilder {
	b.cond.Scope = model.AlertScopeAsset
	b.cond.AssetID = assetID
	b.cond.QuoteCurrency = quoteCurrency
	return b
}

// ForPortfolio sets the portfolio the condition watches.
func (b *AlertBuilder) ForPortfolio(portfolioID string) *AlertBuilder {
	b.cond.PortfolioID = portfolioID
	return b
}

// WithThreshold sets the threshold.
func (b *AlertBuilder) WithThreshold(threshold string) *AlertBuilder {
	b.cond.Threshold = decimal.RequireFromString(threshold)
	return b
}

// WithLookback sets the lookback window.
func (b *AlertBuilder) WithLookback(d time.Duration) *AlertBuilder {
	b.cond.LookbackWindow = &d
	return b
}

// Paused marks the condition as paused.
func (b *AlertBuilder) Paused() *AlertBuilder {
	b.cond.State = model.AlertPaused
	return b
}

// TriggeredAt sets the last trigger time.
func (b *AlertBuilder) TriggeredAt(at time.Time) *AlertBuilder {
	b.cond.LastTriggeredAt = &at
	return b
}

// Model returns the condition without storing it.
func (b *AlertBuilder) Model() model.AlertCondition {
	return b.cond
}

// Build creates the alert condition in the database and returns it.
func (b *AlertBuilder) Build(t *testing.T, db *sql.DB) model.AlertCondition {
	t.Helper()

	if err := repository.NewAlertRepository(db).InsertAlert(context.Background(), b.cond); err != nil {
		t.Fatalf("Failed to create test alert: %v", err)
	}
	return b.cond
}
