package service

import (
	"gonum.org/v1/gonum/stat"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

// SeriesStats summarises a performance series. Returns are fractions, not
// percentages. These are reporting figures and use float64.
type SeriesStats struct {
	Days            int     `json:"days"`
	MeanDailyReturn float64 `json:"meanDailyReturn"`
	Volatility      float64 `json:"volatility"`
	MaxDrawdown     float64 `json:"maxDrawdown"`
}

// ComputeSeriesStats calculates day-over-day return statistics. Days whose
// previous value is zero have no defined return and are skipped.
func ComputeSeriesStats(points []model.PerformancePoint) SeriesStats {
	stats := SeriesStats{Days: len(points)}
	if len(points) < 2 {
		return stats
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value.InexactFloat64()
	}

	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] != 0 {
			returns = append(returns, (values[i]-values[i-1])/values[i-1])
		}
	}
	if len(returns) > 0 {
		stats.MeanDailyReturn = stat.Mean(returns, nil)
	}
	if len(returns) > 1 {
		stats.Volatility = stat.StdDev(returns, nil)
	}

	peak := values[0]
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			stats.MaxDrawdown = max(stats.MaxDrawdown, (peak-v)/peak)
		}
	}

	return stats
}
