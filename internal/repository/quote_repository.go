package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

// QuoteRepository provides data access methods for the price_quote table.
// Quotes are written by the ingestion side; the engine only reads them.
type QuoteRepository struct {
	db *sql.DB
}

// NewQuoteRepository creates a new QuoteRepository with the provided database connection.
func NewQuoteRepository(db *sql.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

// GetQuotes retrieves every quote for the given assets in quoteCurrency with a
// timestamp at or before until, ordered by asset, timestamp and source.
// If assetIDs is empty, returns an empty slice.
func (r *QuoteRepository) GetQuotes(ctx context.Context, assetIDs []string, quoteCurrency string, until time.Time) ([]model.PriceQuote, error) {
	if len(assetIDs) == 0 {
		return []model.PriceQuote{}, nil
	}

	//#nosec G202 -- Safe: placeholders are generated programmatically, not from user input
	query := `
		SELECT asset_id, quote_currency, price, timestamp, source
		FROM price_quote
		WHERE asset_id IN (` + placeholders(len(assetIDs)) + `)
		AND quote_currency = ?
		AND timestamp <= ?
		ORDER BY asset_id ASC, timestamp ASC, source ASC
	`

	args := make([]any, 0, len(assetIDs)+2)
	for _, id := range assetIDs {
		args = append(args, id)
	}
	args = append(args, quoteCurrency, FormatTime(until))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query price_quote table: %w", err)
	}
	defer rows.Close()

	quotes := []model.PriceQuote{}
	for rows.Next() {
		var q model.PriceQuote
		var timestampStr string

		if err := rows.Scan(&q.AssetID, &q.QuoteCurrency, &q.Price, &timestampStr, &q.Source); err != nil {
			return nil, fmt.Errorf("failed to scan price_quote table results: %w", err)
		}
		q.Timestamp, err = ParseTime(timestampStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse quote timestamp: %w", err)
		}
		quotes = append(quotes, q)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price_quote table: %w", err)
	}

	return quotes, nil
}

// InsertQuote stores a quote, replacing an identical (asset, currency, timestamp, source) row.
func (r *QuoteRepository) InsertQuote(ctx context.Context, q model.PriceQuote) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO price_quote (asset_id, quote_currency, price, timestamp, source)
		VALUES (?, ?, ?, ?, ?)
	`, q.AssetID, q.QuoteCurrency, q.Price, FormatTime(q.Timestamp), q.Source)
	if err != nil {
		return fmt.Errorf("failed to insert quote: %w", err)
	}
	return nil
}
