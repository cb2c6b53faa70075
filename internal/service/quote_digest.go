package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
	"time"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/ledger"
)

// quoteInputsDigest digests every quote that folding prefix and valuing it at
// cutoff reads: the exchange rate of each foreign-currency amount at its trade
// time, and the latest price of each traded asset at cutoff. A snapshot stores
// it so a quote inserted after materialization can be detected.
func quoteInputsDigest(quotes QuoteLookup, prefix *ledger.Sequence, base string, cutoff time.Time) string {
	h := sha256.New()

	for tx := range prefix.All() {
		feeCurrency := tx.FeeCurrency
		if feeCurrency == "" {
			feeCurrency = tx.PriceCurrency
		}
		if !tx.Price.IsZero() {
			writeQuoteInput(h, quotes, tx.PriceCurrency, base, tx.TradeTime)
		}
		if !tx.Fee.IsZero() {
			writeQuoteInput(h, quotes, feeCurrency, base, tx.TradeTime)
		}
	}

	for _, assetID := range prefix.Assets() {
		writeQuoteInput(h, quotes, assetID, base, cutoff)
	}

	return hex.EncodeToString(h.Sum(nil))
}

func writeQuoteInput(h hash.Hash, quotes QuoteLookup, id, base string, at time.Time) {
	if id == "" || strings.EqualFold(id, base) {
		return
	}
	if quotes == nil {
		fmt.Fprintf(h, "%s/%s@%d:none\n", id, base, at.UnixNano())
		return
	}
	q, ok := quotes.LatestQuote(id, base, at)
	if !ok {
		fmt.Fprintf(h, "%s/%s@%d:none\n", id, base, at.UnixNano())
		return
	}
	fmt.Fprintf(h, "%s/%s@%d:%d\x00%s\x00%s\n", id, base, at.UnixNano(), q.Timestamp.UnixNano(), q.Source, q.Price.String())
}
