package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

// AssetRepository provides data access methods for the asset table.
type AssetRepository struct {
	db *sql.DB
}

// NewAssetRepository creates a new AssetRepository with the provided database connection.
func NewAssetRepository(db *sql.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// GetAssets returns every asset keyed by ID.
func (r *AssetRepository) GetAssets(ctx context.Context) (map[string]model.Asset, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, symbol, name, class, precision FROM asset`)
	if err != nil {
		return nil, fmt.Errorf("failed to query asset table: %w", err)
	}
	defer rows.Close()

	assets := make(map[string]model.Asset)
	for rows.Next() {
		var a model.Asset
		if err := rows.Scan(&a.ID, &a.Symbol, &a.Name, &a.Class, &a.Precision); err != nil {
			return nil, fmt.Errorf("failed to scan asset table results: %w", err)
		}
		assets[a.ID] = a
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating asset table: %w", err)
	}

	return assets, nil
}

// AssetExists reports whether an asset with the given ID is registered.
func (r *AssetRepository) AssetExists(ctx context.Context, assetID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM asset WHERE id = ?`, assetID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query asset: %w", err)
	}
	return n > 0, nil
}

// InsertAsset stores a new asset.
func (r *AssetRepository) InsertAsset(ctx context.Context, a model.Asset) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO asset (id, symbol, name, class, precision) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Symbol, a.Name, a.Class, a.Precision,
	)
	if err != nil {
		return fmt.Errorf("failed to insert asset: %w", err)
	}
	return nil
}
