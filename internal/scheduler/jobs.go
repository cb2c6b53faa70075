package scheduler

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/service"
)

// SnapshotJob materializes the previous day's snapshots of every portfolio.
type SnapshotJob struct {
	snapshots *service.SnapshotService
}

// NewSnapshotJob creates a SnapshotJob.
func NewSnapshotJob(snapshots *service.SnapshotService) *SnapshotJob {
	return &SnapshotJob{snapshots: snapshots}
}

func (j *SnapshotJob) Name() string { return "snapshot_materialization" }

func (j *SnapshotJob) Run(ctx context.Context) error {
	return j.snapshots.MaterializeYesterday(ctx)
}

// AlertSweepJob evaluates all active alert conditions and records triggers.
type AlertSweepJob struct {
	alerts *service.AlertService
	log    zerolog.Logger
}

// NewAlertSweepJob creates an AlertSweepJob.
func NewAlertSweepJob(alerts *service.AlertService, log zerolog.Logger) *AlertSweepJob {
	return &AlertSweepJob{alerts: alerts, log: log.With().Str("job", "alert_sweep").Logger()}
}

func (j *AlertSweepJob) Name() string { return "alert_sweep" }

func (j *AlertSweepJob) Run(ctx context.Context) error {
	res, err := j.alerts.Sweep(ctx)
	if err != nil {
		return err
	}
	j.log.Info().
		Int("evaluated", res.Evaluated).
		Int("triggered", res.Triggered).
		Int("cooling_off", res.CoolingOff).
		Int("deferred", res.Deferred).
		Int("failed", res.Failed).
		Msg("alert sweep finished")
	return nil
}
