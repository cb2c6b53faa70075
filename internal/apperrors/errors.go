package apperrors

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrPortfolioNotFound indicates that a portfolio with the given ID does not exist.
	ErrPortfolioNotFound = errors.New("portfolio not found")

	// ErrAssetNotFound indicates that an asset with the given ID does not exist.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrAlertNotFound indicates that an alert condition with the given ID does not exist.
	ErrAlertNotFound = errors.New("alert condition not found")

	// ErrExchangeRateNotFound indicates no quote converts a currency into the base currency at a given time.
	ErrExchangeRateNotFound = errors.New("exchange rate for currency/date not found")
)

// Business logic errors represent validation failures or constraint violations.
// These errors indicate that an operation cannot be completed due to business rules.
var (
	// ErrInvalidDateRange indicates that the provided date range is invalid
	// (e.g., start date is after end date).
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")

	// ErrInvalidLookbackWindow indicates an alert window of zero or negative length.
	ErrInvalidLookbackWindow = errors.New("lookback window must be positive")

	// ErrInvalidAlertCondition indicates an alert whose scope, type or target do not fit together.
	ErrInvalidAlertCondition = errors.New("invalid alert condition")

	// ErrInsufficientHistory indicates a window-based alert has no data point to compare against yet.
	ErrInsufficientHistory = errors.New("insufficient history to evaluate")

	// ErrMissingPriceQuote indicates that no quote exists for an asset at the valuation time.
	// Valuation degrades instead of failing; alerts on the asset cannot be evaluated.
	ErrMissingPriceQuote = errors.New("price quote unavailable")
)

// Data integrity errors represent inconsistencies in the ledger.
var (
	// ErrInsufficientQuantity indicates a disposal larger than the quantity held.
	// Short positions are not modelled, so the ledger is inconsistent.
	ErrInsufficientQuantity = errors.New("insufficient quantity for disposal")

	// ErrInvalidTransaction indicates a stored transaction breaking the ledger
	// invariants (quantity > 0, price >= 0, fee >= 0).
	ErrInvalidTransaction = errors.New("invalid ledger transaction")

	// ErrUnknownSide indicates a transaction side outside the known set.
	ErrUnknownSide = errors.New("unknown transaction side")

	// ErrBackdatedTransaction indicates a transaction that sorts before an
	// already-folded checkpoint. The caller must recompute from scratch.
	ErrBackdatedTransaction = errors.New("transaction predates folded checkpoint")
)

// InsufficientQuantityError identifies the transaction that tried to dispose of
// more than was held.
type InsufficientQuantityError struct {
	TransactionID string
	PortfolioID   string
	AssetID       string
	TradeTime     time.Time
	Held          decimal.Decimal
	Requested     decimal.Decimal
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("%s: transaction %s disposes %s of %s but only %s held",
		ErrInsufficientQuantity, e.TransactionID, e.Requested, e.AssetID, e.Held)
}

// Unwrap lets errors.Is match ErrInsufficientQuantity.
func (e *InsufficientQuantityError) Unwrap() error {
	return ErrInsufficientQuantity
}
