package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/database"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/version"
)

// SystemService handles system-related operations
type SystemService struct {
	db *sql.DB
}

// NewSystemService creates a new SystemService
func NewSystemService(db *sql.DB) *SystemService {
	return &SystemService{
		db: db,
	}
}

// CheckHealth checks the health of the system
func (s *SystemService) CheckHealth(ctx context.Context) error {
	return database.HealthCheck(ctx, s.db)
}

// CheckVersion reports the application version and the schema version recorded
// by the migration tool. MigrationNeeded is set when migrations are pending.
func (s *SystemService) CheckVersion(ctx context.Context) (model.VersionInfo, error) {
	info := model.VersionInfo{
		AppVersion: version.Version,
		Features: map[string]bool{
			"snapshots":           true,
			"alert_sweep":         true,
			"currency_conversion": true,
		},
	}

	current, err := database.SchemaVersion(ctx, s.db)
	if err != nil {
		return info, fmt.Errorf("failed to read schema version: %w", err)
	}
	latest, err := database.LatestSchemaVersion()
	if err != nil {
		return info, err
	}

	info.DbVersion = fmt.Sprintf("%d", current)
	if current < latest {
		info.MigrationNeeded = true
		msg := fmt.Sprintf("database is at version %d, latest is %d; run pvectl migrate", current, latest)
		info.MigrationMessage = &msg
	}
	return info, nil
}
