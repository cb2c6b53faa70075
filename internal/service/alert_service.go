package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

// AlertService gathers the inputs for alert conditions, runs the evaluator and,
// during sweeps, records triggers. The evaluator itself stays side-effect free.
type AlertService struct {
	alerts    AlertStore
	quotes    QuoteSource
	summary   *SummaryService
	evaluator *AlertEvaluator
	cooldown  time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewAlertService creates a new AlertService. A triggered condition is not
// recorded again until cooldown has passed since its last trigger.
func NewAlertService(
	alerts AlertStore,
	quotes QuoteSource,
	summary *SummaryService,
	evaluator *AlertEvaluator,
	cooldown time.Duration,
	log zerolog.Logger,
) *AlertService {
	return &AlertService{
		alerts:    alerts,
		quotes:    quotes,
		summary:   summary,
		evaluator: evaluator,
		cooldown:  cooldown,
		now:       time.Now,
		log:       log.With().Str("service", "alert").Logger(),
	}
}

// WithClock replaces the evaluation clock.
func (s *AlertService) WithClock(now func() time.Time) *AlertService {
	s.now = now
	return s
}

// Evaluate runs cond against the current state without storing anything.
// It is used for dry runs of conditions that are not persisted yet.
func (s *AlertService) Evaluate(ctx context.Context, cond model.AlertCondition) (model.AlertEvaluation, error) {
	if cond.State == "" {
		cond.State = model.AlertActive
	}
	if err := s.evaluator.Validate(cond); err != nil {
		return model.AlertEvaluation{}, err
	}

	now := s.now().UTC()
	in, err := s.inputs(ctx, cond, now)
	if err != nil {
		return model.AlertEvaluation{}, err
	}
	return s.evaluator.Evaluate(cond, in)
}

// EvaluateStored evaluates a persisted condition without recording the outcome.
func (s *AlertService) EvaluateStored(ctx context.Context, alertID string) (model.AlertEvaluation, error) {
	cond, err := s.alerts.GetAlertOnID(ctx, alertID)
	if err != nil {
		return model.AlertEvaluation{}, err
	}
	return s.Evaluate(ctx, cond)
}

// SweepResult counts the outcomes of one sweep.
type SweepResult struct {
	Evaluated  int
	Triggered  int
	CoolingOff int
	Deferred   int // insufficient history or missing quote
	Failed     int
}

// Sweep evaluates every active condition and records LastTriggeredAt for the
// ones that hold and are outside their cooldown. Conditions that cannot be
// evaluated yet are deferred, not failed.
func (s *AlertService) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	conditions, err := s.alerts.GetActiveAlerts(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to load active alerts: %w", err)
	}

	for _, cond := range conditions {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		now := s.now().UTC()
		if cond.LastTriggeredAt != nil && now.Sub(*cond.LastTriggeredAt) < s.cooldown {
			result.CoolingOff++
			continue
		}

		eval, err := s.Evaluate(ctx, cond)
		switch {
		case errors.Is(err, apperrors.ErrInsufficientHistory), errors.Is(err, apperrors.ErrMissingPriceQuote):
			result.Deferred++
			s.log.Debug().Err(err).Str("alert_id", cond.ID).Msg("alert cannot be evaluated yet")
			continue
		case err != nil:
			result.Failed++
			s.log.Error().Err(err).Str("alert_id", cond.ID).Msg("alert evaluation failed")
			continue
		}

		result.Evaluated++
		if !eval.Triggered {
			continue
		}

		if err := s.alerts.MarkTriggered(ctx, cond.ID, eval.EvaluatedAt); err != nil {
			return result, fmt.Errorf("failed to record trigger of alert %s: %w", cond.ID, err)
		}
		result.Triggered++
		s.log.Info().
			Str("alert_id", cond.ID).
			Str("type", string(cond.Type)).
			Str("measured", eval.MeasuredValue.String()).
			Str("threshold", eval.Threshold.String()).
			Msg("alert triggered")
	}

	return result, nil
}

// inputs loads what cond's type needs and nothing more.
func (s *AlertService) inputs(ctx context.Context, cond model.AlertCondition, now time.Time) (AlertInputs, error) {
	in := AlertInputs{Now: now}

	switch cond.Type {
	case model.AlertPriceAbove, model.AlertPriceBelow, model.AlertPercentChange:
		quotes, err := s.quotes.GetQuotes(ctx, []string{cond.AssetID}, cond.QuoteCurrency, now)
		if err != nil {
			return in, fmt.Errorf("failed to load quotes: %w", err)
		}
		in.Quotes = NewQuoteBook(quotes)

	case model.AlertTargetPnl:
		_, valuation, err := s.summary.Valuate(ctx, cond.PortfolioID, now)
		if err != nil {
			return in, err
		}
		in.Valuation = &valuation

	case model.AlertPortfolioDrawdown:
		window, err := s.evaluator.Window(cond)
		if err != nil {
			return in, err
		}
		_, valuation, err := s.summary.Valuate(ctx, cond.PortfolioID, now)
		if err != nil {
			return in, err
		}
		in.Valuation = &valuation

		series, _, err := s.summary.GetPerformance(ctx, cond.PortfolioID, now.Add(-window), now)
		if err != nil {
			return in, err
		}
		in.Series = series
	}

	return in, nil
}
