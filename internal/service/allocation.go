package service

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

// AllocationCalculator derives the share of total value held per asset class.
type AllocationCalculator struct{}

// NewAllocationCalculator creates an AllocationCalculator.
func NewAllocationCalculator() *AllocationCalculator {
	return &AllocationCalculator{}
}

// Calculate groups priced open positions by asset class and returns each
// class's value and percentage of the total, largest first. Unpriced positions
// are ignored. When the total is zero the result is an empty, non-nil slice.
//
// Percentages are rounded half-even at PercentScale; the rounding residue is
// added to the largest class so the entries always sum to exactly 100.
func (c *AllocationCalculator) Calculate(positions []model.ValuedPosition) []model.AllocationEntry {
	byClass := make(map[model.AssetClass]decimal.Decimal)
	total := decimal.Zero
	for _, p := range positions {
		if !p.Open || !p.MarketValue.Valid {
			continue
		}
		class := p.Class
		if class == "" {
			class = model.AssetClassOther
		}
		byClass[class] = byClass[class].Add(p.MarketValue.Decimal)
		total = total.Add(p.MarketValue.Decimal)
	}

	result := []model.AllocationEntry{}
	if !total.IsPositive() {
		return result
	}

	for class, value := range byClass {
		result = append(result, model.AllocationEntry{
			Class:   class,
			Value:   value,
			Percent: percentOf(value, total),
		})
	}
	slices.SortFunc(result, func(a, b model.AllocationEntry) int {
		if c := b.Value.Cmp(a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Class, b.Class)
	})

	sum := decimal.Zero
	for _, e := range result {
		sum = sum.Add(e.Percent)
	}
	result[0].Percent = result[0].Percent.Add(hundred.Sub(sum))

	return result
}
