package service

import (
	"crypto/sha256"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

// QuoteLookup finds the most recent quote at or before a time for an
// (asset, quote currency) pair.
type QuoteLookup interface {
	LatestQuote(assetID, quoteCurrency string, asOf time.Time) (model.PriceQuote, bool)
}

// QuoteBook is an immutable in-memory index of price quotes. Each pair's series
// is sorted by (Timestamp, Source) so lookups are binary searches and quotes from
// several sources with an identical timestamp resolve the same way every time:
// the source that sorts last wins.
type QuoteBook struct {
	series map[model.QuotePair][]model.PriceQuote
}

// NewQuoteBook indexes quotes. The input slice is not retained.
func NewQuoteBook(quotes []model.PriceQuote) *QuoteBook {
	series := make(map[model.QuotePair][]model.PriceQuote)
	for _, q := range quotes {
		pair := model.QuotePair{AssetID: q.AssetID, QuoteCurrency: q.QuoteCurrency}
		series[pair] = append(series[pair], q)
	}
	for pair := range series {
		slices.SortStableFunc(series[pair], func(a, b model.PriceQuote) int {
			if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
				return c
			}
			return strings.Compare(a.Source, b.Source)
		})
	}
	return &QuoteBook{series: series}
}

// LatestQuote implements QuoteLookup.
func (b *QuoteBook) LatestQuote(assetID, quoteCurrency string, asOf time.Time) (model.PriceQuote, bool) {
	if b == nil {
		return model.PriceQuote{}, false
	}
	quotes := b.series[model.QuotePair{AssetID: assetID, QuoteCurrency: quoteCurrency}]
	n := sort.Search(len(quotes), func(i int) bool {
		return quotes[i].Timestamp.After(asOf)
	})
	if n == 0 {
		return model.PriceQuote{}, false
	}
	return quotes[n-1], true
}

// Fingerprint digests every quote at or before asOf, pair by pair in a fixed
// order. Two books agree on it exactly when they would price anything at or
// before asOf the same way.
func (b *QuoteBook) Fingerprint(asOf time.Time) [sha256.Size]byte {
	h := sha256.New()
	if b != nil {
		pairs := slices.SortedFunc(maps.Keys(b.series), func(x, y model.QuotePair) int {
			if c := strings.Compare(x.AssetID, y.AssetID); c != 0 {
				return c
			}
			return strings.Compare(x.QuoteCurrency, y.QuoteCurrency)
		})
		for _, pair := range pairs {
			for _, q := range b.series[pair] {
				if q.Timestamp.After(asOf) {
					break
				}
				fmt.Fprintf(h, "%s\x00%s\x00%d\x00%s\x00%s\n",
					q.AssetID, q.QuoteCurrency, q.Timestamp.UnixNano(), q.Source, q.Price.String())
			}
		}
	}
	var sum [sha256.Size]byte
	h.Sum(sum[:0])
	return sum
}

// Len returns the number of indexed quotes.
func (b *QuoteBook) Len() int {
	if b == nil {
		return 0
	}
	n := 0
	for _, quotes := range b.series {
		n += len(quotes)
	}
	return n
}
