package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

// TransactionRepository provides data access methods for the ledger_transaction table.
// The table is append-only: the AUTOINCREMENT sequence column is the store-assigned
// insertion order that breaks ties between transactions with the same trade time.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// LoadTransactions retrieves the transactions of a portfolio traded at or before asOf,
// ordered by (trade_time, sequence).
//
// Parameters:
//   - portfolioID: the portfolio to load
//   - asOf: inclusive upper bound on trade_time
//
// Returns an empty slice when the portfolio has no transactions.
func (s *TransactionRepository) LoadTransactions(ctx context.Context, portfolioID string, asOf time.Time) ([]model.Transaction, error) {
	query := `
		SELECT sequence, id, portfolio_id, asset_id, side, quantity, price, price_currency,
		       fee, fee_currency, trade_time, note
		FROM ledger_transaction
		WHERE portfolio_id = ?
		AND trade_time <= ?
		ORDER BY trade_time ASC, sequence ASC
	`

	rows, err := s.db.QueryContext(ctx, query, portfolioID, FormatTime(asOf))
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger_transaction table: %w", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}

	for rows.Next() {
		var tradeTimeStr string
		var t model.Transaction

		err := rows.Scan(
			&t.Sequence,
			&t.ID,
			&t.PortfolioID,
			&t.AssetID,
			&t.Side,
			&t.Quantity,
			&t.Price,
			&t.PriceCurrency,
			&t.Fee,
			&t.FeeCurrency,
			&tradeTimeStr,
			&t.Note,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger_transaction table results: %w", err)
		}

		t.TradeTime, err = ParseTime(tradeTimeStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse trade_time of %s: %w", t.ID, err)
		}

		transactions = append(transactions, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger_transaction table: %w", err)
	}

	return transactions, nil
}

// AppendTransaction stores tx and returns it with its assigned sequence number.
// Any Sequence set by the caller is ignored.
func (s *TransactionRepository) AppendTransaction(ctx context.Context, tx model.Transaction) (model.Transaction, error) {
	query := `
		INSERT INTO ledger_transaction
			(id, portfolio_id, asset_id, side, quantity, price, price_currency, fee, fee_currency, trade_time, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		tx.ID,
		tx.PortfolioID,
		tx.AssetID,
		tx.Side,
		tx.Quantity,
		tx.Price,
		tx.PriceCurrency,
		tx.Fee,
		tx.FeeCurrency,
		FormatTime(tx.TradeTime),
		tx.Note,
	)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("failed to insert transaction: %w", err)
	}

	tx.Sequence, err = res.LastInsertId()
	if err != nil {
		return model.Transaction{}, fmt.Errorf("failed to read transaction sequence: %w", err)
	}
	return tx, nil
}

// LedgerStore combines the repositories the ledger reader needs.
type LedgerStore struct {
	*PortfolioRepository
	*AssetRepository
	*TransactionRepository
}

// NewLedgerStore creates a LedgerStore over db.
func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{
		PortfolioRepository:   NewPortfolioRepository(db),
		AssetRepository:       NewAssetRepository(db),
		TransactionRepository: NewTransactionRepository(db),
	}
}
