package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote is one already-fetched market price for an asset in a quote currency.
type PriceQuote struct {
	AssetID       string          `json:"assetId"`
	QuoteCurrency string          `json:"quoteCurrency"`
	Price         decimal.Decimal `json:"price"`
	Timestamp     time.Time       `json:"timestamp"`
	Source        string          `json:"source"`
}

// QuotePair identifies a price series.
type QuotePair struct {
	AssetID       string
	QuoteCurrency string
}
