package validation

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/api/request"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"date", "2024-01-10", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), false},
		{"rfc3339 with offset", "2024-01-10T14:00:00+02:00", time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC), false},
		{"surrounding spaces", " 2024-01-10 ", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), false},
		{"garbage", "yesterday", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTime(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTime(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseTime(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateDateRange(t *testing.T) {
	a := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := a.AddDate(0, 0, 1)

	if err := ValidateDateRange(a, b); err != nil {
		t.Errorf("ordered range: unexpected error %v", err)
	}
	if err := ValidateDateRange(a, time.Time{}); err != nil {
		t.Errorf("open range: unexpected error %v", err)
	}
	if err := ValidateDateRange(b, a); !errors.Is(err, apperrors.ErrInvalidDateRange) {
		t.Errorf("inverted range: got %v, want ErrInvalidDateRange", err)
	}
}

func TestValidateCurrency(t *testing.T) {
	for _, code := range []string{"USD", "eur", "JPY"} {
		if err := ValidateCurrency(code); err != nil {
			t.Errorf("ValidateCurrency(%q) = %v", code, err)
		}
	}
	for _, code := range []string{"", "ABCD", "XXQ"} {
		if err := ValidateCurrency(code); err == nil {
			t.Errorf("ValidateCurrency(%q) expected error", code)
		}
	}
}

func TestValidateEvaluateAlert(t *testing.T) {
	lookback := int64(30)
	zero := int64(0)

	t.Run("normalizes a valid request", func(t *testing.T) {
		cond, err := ValidateEvaluateAlert(request.EvaluateAlertRequest{
			Scope:           "asset",
			AssetID:         " btc ",
			QuoteCurrency:   "usd",
			Type:            "price_above",
			Threshold:       json.Number("40000.5"),
			LookbackMinutes: &lookback,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cond.Scope != model.AlertScopeAsset || cond.Type != model.AlertPriceAbove {
			t.Errorf("scope/type = %s/%s", cond.Scope, cond.Type)
		}
		if cond.AssetID != "btc" || cond.QuoteCurrency != "USD" {
			t.Errorf("asset/currency = %q/%q", cond.AssetID, cond.QuoteCurrency)
		}
		if cond.State != model.AlertActive {
			t.Errorf("state = %s, want ACTIVE", cond.State)
		}
		if cond.Threshold.String() != "40000.5" {
			t.Errorf("threshold = %s", cond.Threshold)
		}
		if cond.LookbackWindow == nil || *cond.LookbackWindow != 30*time.Minute {
			t.Errorf("lookback = %v", cond.LookbackWindow)
		}
	})

	t.Run("collects every field error", func(t *testing.T) {
		_, err := ValidateEvaluateAlert(request.EvaluateAlertRequest{
			Scope:           "GLOBAL",
			PortfolioID:     "not-a-uuid",
			QuoteCurrency:   "XXQ",
			Type:            "MOON",
			Threshold:       json.Number("abc"),
			LookbackMinutes: &zero,
			State:           "SLEEPING",
		})
		var verr *Error
		if !errors.As(err, &verr) {
			t.Fatalf("expected *Error, got %v", err)
		}
		for _, field := range []string{"scope", "portfolioId", "quoteCurrency", "type", "threshold", "lookbackMinutes", "state"} {
			if _, ok := verr.Fields[field]; !ok {
				t.Errorf("missing error for %s", field)
			}
		}
	})

	t.Run("rejects a lookback too long for a duration", func(t *testing.T) {
		for _, minutes := range []int64{math.MaxInt64/int64(time.Minute) + 1, 300_000_000, math.MaxInt64} {
			_, err := ValidateEvaluateAlert(request.EvaluateAlertRequest{
				Scope:           "PORTFOLIO",
				PortfolioID:     "2f6a1b9e-8c3d-4e5f-a6b7-c8d9e0f1a2b3",
				Type:            "PORTFOLIO_DRAWDOWN",
				Threshold:       json.Number("10"),
				LookbackMinutes: &minutes,
			})
			var verr *Error
			if !errors.As(err, &verr) || verr.Fields["lookbackMinutes"] == "" {
				t.Errorf("minutes %d: expected lookbackMinutes error, got %v", minutes, err)
			}
		}

		longest := int64(math.MaxInt64 / int64(time.Minute))
		cond, err := ValidateEvaluateAlert(request.EvaluateAlertRequest{
			Scope:           "PORTFOLIO",
			PortfolioID:     "2f6a1b9e-8c3d-4e5f-a6b7-c8d9e0f1a2b3",
			Type:            "PORTFOLIO_DRAWDOWN",
			Threshold:       json.Number("10"),
			LookbackMinutes: &longest,
		})
		if err != nil {
			t.Fatalf("longest window rejected: %v", err)
		}
		if *cond.LookbackWindow <= 0 {
			t.Errorf("lookback overflowed to %v", *cond.LookbackWindow)
		}
	})

	t.Run("threshold is required", func(t *testing.T) {
		_, err := ValidateEvaluateAlert(request.EvaluateAlertRequest{Scope: "PORTFOLIO", Type: "TARGET_PNL"})
		var verr *Error
		if !errors.As(err, &verr) || verr.Fields["threshold"] == "" {
			t.Errorf("expected threshold error, got %v", err)
		}
	})
}
