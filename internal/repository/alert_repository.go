package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

// AlertRepository provides data access methods for the alert_condition table.
type AlertRepository struct {
	db *sql.DB
}

// NewAlertRepository creates a new AlertRepository with the provided database connection.
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// maxLookbackSeconds is the longest stored window a time.Duration can hold.
const maxLookbackSeconds = math.MaxInt64 / int64(time.Second)

const alertColumns = `id, owner_id, scope, portfolio_id, asset_id, quote_currency, type, threshold,
		       lookback_seconds, state, last_triggered_at`

// GetAlertOnID retrieves one alert condition. Returns apperrors.ErrAlertNotFound
// when no row matches.
func (r *AlertRepository) GetAlertOnID(ctx context.Context, alertID string) (model.AlertCondition, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alert_condition WHERE id = ?`, alertID)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AlertCondition{}, fmt.Errorf("%w: %s", apperrors.ErrAlertNotFound, alertID)
	}
	if err != nil {
		return model.AlertCondition{}, fmt.Errorf("failed to query alert_condition: %w", err)
	}
	return a, nil
}

// GetActiveAlerts retrieves every condition in the ACTIVE state.
func (r *AlertRepository) GetActiveAlerts(ctx context.Context) ([]model.AlertCondition, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+alertColumns+` FROM alert_condition WHERE state = ? ORDER BY id ASC`,
		model.AlertActive,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert_condition table: %w", err)
	}
	defer rows.Close()

	alerts := []model.AlertCondition{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert_condition table results: %w", err)
		}
		alerts = append(alerts, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert_condition table: %w", err)
	}

	return alerts, nil
}

// InsertAlert stores a new alert condition.
func (r *AlertRepository) InsertAlert(ctx context.Context, a model.AlertCondition) error {
	var lookback sql.NullInt64
	if a.LookbackWindow != nil {
		lookback = sql.NullInt64{Int64: int64(a.LookbackWindow.Seconds()), Valid: true}
	}
	var lastTriggered sql.NullString
	if a.LastTriggeredAt != nil {
		lastTriggered = sql.NullString{String: FormatTime(*a.LastTriggeredAt), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alert_condition (`+alertColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID,
		a.OwnerID,
		a.Scope,
		nullString(a.PortfolioID),
		nullString(a.AssetID),
		a.QuoteCurrency,
		a.Type,
		a.Threshold,
		lookback,
		a.State,
		lastTriggered,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert condition: %w", err)
	}
	return nil
}

// MarkTriggered records the time a condition last triggered.
func (r *AlertRepository) MarkTriggered(ctx context.Context, alertID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE alert_condition SET last_triggered_at = ? WHERE id = ?`,
		FormatTime(at), alertID,
	)
	if err != nil {
		return fmt.Errorf("failed to update alert condition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrAlertNotFound, alertID)
	}
	return nil
}

func scanAlert(row rowScanner) (model.AlertCondition, error) {
	var a model.AlertCondition
	var portfolioID, assetID, lastTriggered sql.NullString
	var lookback sql.NullInt64

	err := row.Scan(
		&a.ID,
		&a.OwnerID,
		&a.Scope,
		&portfolioID,
		&assetID,
		&a.QuoteCurrency,
		&a.Type,
		&a.Threshold,
		&lookback,
		&a.State,
		&lastTriggered,
	)
	if err != nil {
		return model.AlertCondition{}, err
	}

	a.PortfolioID = portfolioID.String
	a.AssetID = assetID.String
	if lookback.Valid {
		if lookback.Int64 <= 0 || lookback.Int64 > maxLookbackSeconds {
			return model.AlertCondition{}, fmt.Errorf("%w: alert %s has lookback_seconds %d",
				apperrors.ErrInvalidLookbackWindow, a.ID, lookback.Int64)
		}
		window := time.Duration(lookback.Int64) * time.Second
		a.LookbackWindow = &window
	}
	if lastTriggered.Valid {
		t, err := ParseTime(lastTriggered.String)
		if err != nil {
			return model.AlertCondition{}, fmt.Errorf("failed to parse last_triggered_at: %w", err)
		}
		a.LastTriggeredAt = &t
	}
	return a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
