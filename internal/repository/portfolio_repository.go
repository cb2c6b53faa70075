package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

// PortfolioRepository provides data access methods for the portfolio table.
type PortfolioRepository struct {
	db *sql.DB
}

// NewPortfolioRepository creates a new PortfolioRepository with the provided database connection.
func NewPortfolioRepository(db *sql.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

// GetPortfolios retrieves portfolios from the database based on filter criteria.
// Archived portfolios are left out unless the filter includes them.
// Returns an empty slice if no portfolios match the filter criteria.
func (s *PortfolioRepository) GetPortfolios(ctx context.Context, filter model.PortfolioFilter) ([]model.Portfolio, error) {
	query := `
          SELECT id, owner_id, name, base_currency, is_archived, created_at
          FROM portfolio
          WHERE 1=1
      `
	var args []any

	if !filter.IncludeArchived {
		query += " AND is_archived = ?"
		args = append(args, 0)
	}

	if filter.OwnerID != "" {
		query += " AND owner_id = ?"
		args = append(args, filter.OwnerID)
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios table: %w", err)
	}
	defer rows.Close()

	portfolios := []model.Portfolio{}

	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio table results: %w", err)
		}
		portfolios = append(portfolios, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios table: %w", err)
	}

	return portfolios, nil
}

// GetPortfolioOnID retrieves a single portfolio. Returns apperrors.ErrPortfolioNotFound
// when no row matches.
func (s *PortfolioRepository) GetPortfolioOnID(ctx context.Context, portfolioID string) (model.Portfolio, error) {
	query := `
          SELECT id, owner_id, name, base_currency, is_archived, created_at
          FROM portfolio
          WHERE id = ?
      `

	p, err := scanPortfolio(s.db.QueryRowContext(ctx, query, portfolioID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Portfolio{}, fmt.Errorf("%w: %s", apperrors.ErrPortfolioNotFound, portfolioID)
	}
	if err != nil {
		return model.Portfolio{}, fmt.Errorf("failed to query portfolio: %w", err)
	}

	return p, nil
}

// InsertPortfolio stores a new portfolio.
func (s *PortfolioRepository) InsertPortfolio(ctx context.Context, p model.Portfolio) error {
	query := `
		INSERT INTO portfolio (id, owner_id, name, base_currency, is_archived, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, p.ID, p.OwnerID, p.Name, p.BaseCurrency, p.IsArchived, FormatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert portfolio: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPortfolio(row rowScanner) (model.Portfolio, error) {
	var p model.Portfolio
	var createdAtStr string

	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Name,
		&p.BaseCurrency,
		&p.IsArchived,
		&createdAtStr,
	)
	if err != nil {
		return model.Portfolio{}, err
	}

	p.CreatedAt, err = ParseTime(createdAtStr)
	if err != nil {
		return model.Portfolio{}, err
	}
	return p, nil
}
