package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

// AlertDefaults holds the lookback windows used when a condition leaves its
// window unset.
type AlertDefaults struct {
	PercentWindow  time.Duration
	DrawdownWindow time.Duration
}

// DefaultAlertDefaults returns the built-in windows: one hour for percent change,
// thirty days for drawdown.
func DefaultAlertDefaults() AlertDefaults {
	return AlertDefaults{
		PercentWindow:  60 * time.Minute,
		DrawdownWindow: 30 * 24 * time.Hour,
	}
}

// AlertInputs is the market and portfolio state a condition is evaluated against.
// Valuation is required for TARGET_PNL and PORTFOLIO_DRAWDOWN, Series for
// PORTFOLIO_DRAWDOWN, Quotes for the price-based types.
type AlertInputs struct {
	Now       time.Time
	Quotes    QuoteLookup
	Valuation *Valuation
	Series    []model.PerformancePoint
}

// AlertEvaluator decides whether alert conditions currently hold. It never
// modifies a condition and never writes anywhere, so it is safe for dry runs.
type AlertEvaluator struct {
	defaults AlertDefaults
}

// NewAlertEvaluator creates an AlertEvaluator. Zero default windows fall back
// to DefaultAlertDefaults.
func NewAlertEvaluator(defaults AlertDefaults) *AlertEvaluator {
	builtin := DefaultAlertDefaults()
	if defaults.PercentWindow <= 0 {
		defaults.PercentWindow = builtin.PercentWindow
	}
	if defaults.DrawdownWindow <= 0 {
		defaults.DrawdownWindow = builtin.DrawdownWindow
	}
	return &AlertEvaluator{defaults: defaults}
}

// Validate checks that the scope, type and target of a condition fit together
// and that an explicit lookback window is positive.
func (e *AlertEvaluator) Validate(cond model.AlertCondition) error {
	switch cond.Type {
	case model.AlertPriceAbove, model.AlertPriceBelow, model.AlertPercentChange:
		if cond.Scope != model.AlertScopeAsset || cond.AssetID == "" || cond.QuoteCurrency == "" {
			return fmt.Errorf("%w: %s needs asset scope with asset and quote currency", apperrors.ErrInvalidAlertCondition, cond.Type)
		}
	case model.AlertPortfolioDrawdown:
		if cond.Scope != model.AlertScopePortfolio || cond.PortfolioID == "" {
			return fmt.Errorf("%w: %s needs portfolio scope", apperrors.ErrInvalidAlertCondition, cond.Type)
		}
		if cond.Threshold.IsNegative() {
			return fmt.Errorf("%w: drawdown threshold must not be negative", apperrors.ErrInvalidAlertCondition)
		}
	case model.AlertTargetPnl:
		if cond.PortfolioID == "" {
			return fmt.Errorf("%w: %s needs a portfolio", apperrors.ErrInvalidAlertCondition, cond.Type)
		}
		if cond.Scope == model.AlertScopeAsset && cond.AssetID == "" {
			return fmt.Errorf("%w: asset-scoped %s needs an asset", apperrors.ErrInvalidAlertCondition, cond.Type)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", apperrors.ErrInvalidAlertCondition, cond.Type)
	}

	if cond.State != model.AlertActive && cond.State != model.AlertPaused {
		return fmt.Errorf("%w: unknown state %q", apperrors.ErrInvalidAlertCondition, cond.State)
	}
	if cond.LookbackWindow != nil && *cond.LookbackWindow <= 0 {
		return fmt.Errorf("%w: got %s", apperrors.ErrInvalidLookbackWindow, *cond.LookbackWindow)
	}
	return nil
}

// Window returns the effective lookback window of a window-based condition,
// applying the defaults when none is set.
func (e *AlertEvaluator) Window(cond model.AlertCondition) (time.Duration, error) {
	if cond.LookbackWindow != nil {
		if *cond.LookbackWindow <= 0 {
			return 0, fmt.Errorf("%w: got %s", apperrors.ErrInvalidLookbackWindow, *cond.LookbackWindow)
		}
		return *cond.LookbackWindow, nil
	}
	if cond.Type == model.AlertPortfolioDrawdown {
		return e.defaults.DrawdownWindow, nil
	}
	return e.defaults.PercentWindow, nil
}

// Evaluate reports whether cond holds at in.Now.
//
// Comparison rules:
//   - PRICE_ABOVE: latest price >= threshold
//   - PRICE_BELOW: latest price <= threshold
//   - PERCENT_CHANGE: |(latest - past) / past * 100| >= |threshold|, past being the
//     quote at or before now - window
//   - PORTFOLIO_DRAWDOWN: (peak - current) / peak * 100 > threshold, peak being the
//     highest value in the window or the current value
//   - TARGET_PNL: realized + unrealized >= threshold, or <= for a negative threshold
//
// A paused condition is reported as Skipped. Window-based types with no data
// point in reach fail with apperrors.ErrInsufficientHistory rather than
// reporting a false negative.
func (e *AlertEvaluator) Evaluate(cond model.AlertCondition, in AlertInputs) (model.AlertEvaluation, error) {
	result := model.AlertEvaluation{
		ConditionID: cond.ID,
		Type:        cond.Type,
		Threshold:   cond.Threshold,
		EvaluatedAt: in.Now,
	}

	if cond.State == model.AlertPaused {
		result.Skipped = true
		return result, nil
	}
	if err := e.Validate(cond); err != nil {
		return result, err
	}

	var (
		measured  decimal.Decimal
		triggered bool
		err       error
	)
	switch cond.Type {
	case model.AlertPriceAbove:
		measured, err = e.latestPrice(cond, in)
		triggered = measured.GreaterThanOrEqual(cond.Threshold)
	case model.AlertPriceBelow:
		measured, err = e.latestPrice(cond, in)
		triggered = measured.LessThanOrEqual(cond.Threshold)
	case model.AlertPercentChange:
		measured, err = e.percentChange(cond, in)
		triggered = measured.Abs().GreaterThanOrEqual(cond.Threshold.Abs())
	case model.AlertPortfolioDrawdown:
		measured, err = e.drawdown(cond, in)
		triggered = measured.GreaterThan(cond.Threshold)
	case model.AlertTargetPnl:
		measured, err = e.totalPnl(cond, in)
		if cond.Threshold.IsNegative() {
			triggered = measured.LessThanOrEqual(cond.Threshold)
		} else {
			triggered = measured.GreaterThanOrEqual(cond.Threshold)
		}
	}
	if err != nil {
		return result, err
	}

	result.MeasuredValue = measured
	result.Triggered = triggered
	return result, nil
}

func (e *AlertEvaluator) latestPrice(cond model.AlertCondition, in AlertInputs) (decimal.Decimal, error) {
	if in.Quotes != nil {
		if q, ok := in.Quotes.LatestQuote(cond.AssetID, cond.QuoteCurrency, in.Now); ok {
			return q.Price, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %s/%s at %s", apperrors.ErrMissingPriceQuote, cond.AssetID, cond.QuoteCurrency, in.Now.Format(time.RFC3339))
}

func (e *AlertEvaluator) percentChange(cond model.AlertCondition, in AlertInputs) (decimal.Decimal, error) {
	window, err := e.Window(cond)
	if err != nil {
		return decimal.Zero, err
	}

	latest, err := e.latestPrice(cond, in)
	if err != nil {
		return decimal.Zero, err
	}

	from := in.Now.Add(-window)
	past, ok := in.Quotes.LatestQuote(cond.AssetID, cond.QuoteCurrency, from)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no %s/%s quote at or before %s",
			apperrors.ErrInsufficientHistory, cond.AssetID, cond.QuoteCurrency, from.Format(time.RFC3339))
	}
	if past.Price.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: reference price at %s is zero",
			apperrors.ErrInsufficientHistory, past.Timestamp.Format(time.RFC3339))
	}

	return percentOf(latest.Sub(past.Price), past.Price), nil
}

func (e *AlertEvaluator) drawdown(cond model.AlertCondition, in AlertInputs) (decimal.Decimal, error) {
	window, err := e.Window(cond)
	if err != nil {
		return decimal.Zero, err
	}
	if in.Valuation == nil {
		return decimal.Zero, fmt.Errorf("%w: no current valuation", apperrors.ErrInsufficientHistory)
	}

	from := dateKey(in.Now.Add(-window))
	to := dateKey(in.Now)
	current := in.Valuation.TotalValue
	peak := current
	seen := 0
	for _, p := range in.Series {
		if p.Date < from || p.Date > to {
			continue
		}
		seen++
		if p.Value.GreaterThan(peak) {
			peak = p.Value
		}
	}
	if seen == 0 {
		return decimal.Zero, fmt.Errorf("%w: no performance points since %s", apperrors.ErrInsufficientHistory, from)
	}
	if !peak.IsPositive() {
		return decimal.Zero, nil
	}

	return percentOf(peak.Sub(current), peak), nil
}

func (e *AlertEvaluator) totalPnl(cond model.AlertCondition, in AlertInputs) (decimal.Decimal, error) {
	if in.Valuation == nil {
		return decimal.Zero, fmt.Errorf("%w: portfolio %s has no valuation", apperrors.ErrPortfolioNotFound, cond.PortfolioID)
	}
	if cond.Scope != model.AlertScopeAsset {
		return in.Valuation.TotalPnl(), nil
	}

	for _, p := range in.Valuation.Positions {
		if p.AssetID != cond.AssetID {
			continue
		}
		if p.Open && !p.PriceAvailable {
			return decimal.Zero, fmt.Errorf("%w: %s", apperrors.ErrMissingPriceQuote, p.AssetID)
		}
		return p.RealizedPnl.Add(p.UnrealizedPnl.Decimal), nil
	}
	return decimal.Zero, fmt.Errorf("%w: %s has no position in portfolio %s", apperrors.ErrAssetNotFound, cond.AssetID, cond.PortfolioID)
}
