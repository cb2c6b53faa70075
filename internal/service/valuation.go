package service

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

// ValuationRequest is the input of a single valuation run.
type ValuationRequest struct {
	PortfolioID  string
	BaseCurrency string
	AsOf         time.Time
	Positions    []model.Position
	Assets       map[string]model.Asset
	Quotes       QuoteLookup
}

// Valuation is a portfolio priced at one instant. Positions keeps the input
// order; positions without a quote are present but excluded from every total.
type Valuation struct {
	PortfolioID        string
	BaseCurrency       string
	AsOf               time.Time
	Positions          []model.ValuedPosition
	TotalValue         decimal.Decimal
	TotalCost          decimal.Decimal
	TotalUnrealizedPnl decimal.Decimal
	TotalRealizedPnl   decimal.Decimal
	MissingQuotes      []string
}

// TotalPnl is realized plus unrealized P&L.
func (v Valuation) TotalPnl() decimal.Decimal {
	return v.TotalRealizedPnl.Add(v.TotalUnrealizedPnl)
}

// OpenPositions returns the valued positions that still hold a quantity.
func (v Valuation) OpenPositions() []model.ValuedPosition {
	out := make([]model.ValuedPosition, 0, len(v.Positions))
	for _, p := range v.Positions {
		if p.Open {
			out = append(out, p)
		}
	}
	return out
}

// ValuationEngine prices positions against the latest quote at or before the
// valuation time. It is stateless.
type ValuationEngine struct{}

// NewValuationEngine creates a ValuationEngine.
func NewValuationEngine() *ValuationEngine {
	return &ValuationEngine{}
}

// Value combines positions with quotes.
//
// For every open position:
//
//	marketValue   = quantity * price
//	unrealizedPnl = marketValue - quantity*avgCost
//	pnlPercent    = unrealizedPnl / (quantity*avgCost) * 100, 0 when the cost is 0
//	weight        = marketValue / totalValue * 100
//
// A position without a quote keeps its price-dependent fields null, is flagged
// PriceAvailable=false and its asset ID is listed in MissingQuotes. Closed
// positions contribute realized P&L only. An asset priced in the base currency
// itself (a fiat balance) is worth 1 per unit without needing a quote.
func (e *ValuationEngine) Value(req ValuationRequest) Valuation {
	out := Valuation{
		PortfolioID:        req.PortfolioID,
		BaseCurrency:       req.BaseCurrency,
		AsOf:               req.AsOf,
		Positions:          make([]model.ValuedPosition, 0, len(req.Positions)),
		TotalValue:         decimal.Zero,
		TotalCost:          decimal.Zero,
		TotalUnrealizedPnl: decimal.Zero,
		TotalRealizedPnl:   decimal.Zero,
	}

	for _, pos := range req.Positions {
		asset := req.Assets[pos.AssetID]
		vp := model.ValuedPosition{
			AssetID:     pos.AssetID,
			Symbol:      asset.Symbol,
			Class:       asset.Class,
			Quantity:    pos.Quantity,
			AvgPrice:    pos.AvgCost,
			CostBasis:   pos.CostBasis(),
			RealizedPnl: pos.RealizedPnl,
			Fees:        pos.Fees,
			Open:        pos.IsOpen(),
		}
		if vp.Symbol == "" {
			vp.Symbol = pos.AssetID
		}
		out.TotalRealizedPnl = out.TotalRealizedPnl.Add(pos.RealizedPnl)

		if !vp.Open {
			out.Positions = append(out.Positions, vp)
			continue
		}

		price, quoteTime, ok := e.priceFor(req, asset, pos.AssetID)
		if !ok {
			out.MissingQuotes = append(out.MissingQuotes, pos.AssetID)
			out.Positions = append(out.Positions, vp)
			continue
		}

		marketValue := pos.Quantity.Mul(price)
		unrealized := marketValue.Sub(vp.CostBasis)

		vp.PriceAvailable = true
		vp.CurrentPrice = decimal.NewNullDecimal(price)
		vp.MarketValue = decimal.NewNullDecimal(marketValue)
		vp.UnrealizedPnl = decimal.NewNullDecimal(unrealized)
		vp.PnlPercent = decimal.NewNullDecimal(percentOf(unrealized, vp.CostBasis))
		if !quoteTime.IsZero() {
			vp.QuoteTime = &quoteTime
		}

		out.TotalValue = out.TotalValue.Add(marketValue)
		out.TotalCost = out.TotalCost.Add(vp.CostBasis)
		out.TotalUnrealizedPnl = out.TotalUnrealizedPnl.Add(unrealized)
		out.Positions = append(out.Positions, vp)
	}

	for i := range out.Positions {
		p := &out.Positions[i]
		if p.MarketValue.Valid {
			p.Weight = decimal.NewNullDecimal(percentOf(p.MarketValue.Decimal, out.TotalValue))
		}
	}

	return out
}

func (e *ValuationEngine) priceFor(req ValuationRequest, asset model.Asset, assetID string) (decimal.Decimal, time.Time, bool) {
	if asset.Class == model.AssetClassFiat && strings.EqualFold(asset.Symbol, req.BaseCurrency) {
		return decimal.NewFromInt(1), time.Time{}, true
	}
	if req.Quotes == nil {
		return decimal.Zero, time.Time{}, false
	}
	q, ok := req.Quotes.LatestQuote(assetID, req.BaseCurrency, req.AsOf)
	if !ok {
		return decimal.Zero, time.Time{}, false
	}
	return q.Price, q.Timestamp, true
}
