package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

// SnapshotRepository provides data access methods for the portfolio_snapshot table.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new repository instance.
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// GetSnapshots retrieves pre-calculated end-of-day valuations of a portfolio.
//
// The snapshot table contains daily valuations that have been pre-calculated and
// stored, so the performance series does not need to recompute them on each request.
//
// Parameters:
//   - portfolioID: Portfolio to retrieve snapshots for
//   - startDate: First date to include in results (inclusive)
//   - endDate: Last date to include in results (inclusive)
//
// Returns the snapshots ordered by date, or an empty slice when none exist.
func (r *SnapshotRepository) GetSnapshots(ctx context.Context, portfolioID string, startDate, endDate time.Time) ([]model.PortfolioSnapshot, error) {
	query := `
		SELECT id, portfolio_id, date, total_value, realized_pnl, unrealized_pnl,
		       ledger_sequence, calculated_at, quotes_digest
		FROM portfolio_snapshot
		WHERE portfolio_id = ?
		AND date >= ?
		AND date <= ?
		ORDER BY date ASC
	`

	rows, err := r.db.QueryContext(ctx, query,
		portfolioID,
		startDate.UTC().Format(dateLayout),
		endDate.UTC().Format(dateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio_snapshot: %w", err)
	}
	defer rows.Close()

	snapshots := []model.PortfolioSnapshot{}
	for rows.Next() {
		var record model.PortfolioSnapshot
		var dateStr, calculatedAtStr string

		err := rows.Scan(
			&record.ID,
			&record.PortfolioID,
			&dateStr,
			&record.TotalValue,
			&record.RealizedPnl,
			&record.UnrealizedPnl,
			&record.LedgerSequence,
			&calculatedAtStr,
			&record.QuotesDigest,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		record.Date, err = ParseTime(dateStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}

		record.CalculatedAt, err = ParseTime(calculatedAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse calculated_at: %w", err)
		}

		snapshots = append(snapshots, record)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return snapshots, nil
}

// UpsertSnapshots writes snapshots in one transaction, replacing any existing
// row for the same (portfolio_id, date).
func (r *SnapshotRepository) UpsertSnapshots(ctx context.Context, snapshots []model.PortfolioSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO portfolio_snapshot
			(id, portfolio_id, date, total_value, realized_pnl, unrealized_pnl, ledger_sequence, calculated_at, quotes_digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (portfolio_id, date) DO UPDATE SET
			total_value     = excluded.total_value,
			realized_pnl    = excluded.realized_pnl,
			unrealized_pnl  = excluded.unrealized_pnl,
			ledger_sequence = excluded.ledger_sequence,
			calculated_at   = excluded.calculated_at,
			quotes_digest   = excluded.quotes_digest
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot upsert: %w", err)
	}
	defer stmt.Close()

	for _, s := range snapshots {
		_, err := stmt.ExecContext(ctx,
			s.ID,
			s.PortfolioID,
			s.Date.UTC().Format(dateLayout),
			s.TotalValue,
			s.RealizedPnl,
			s.UnrealizedPnl,
			s.LedgerSequence,
			FormatTime(s.CalculatedAt),
			s.QuotesDigest,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert snapshot %s/%s: %w", s.PortfolioID, s.Date.Format(dateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshots: %w", err)
	}
	return nil
}
