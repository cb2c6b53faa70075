package ledger

import (
	"crypto/sha256"
	"fmt"
	"iter"
	"slices"
	"sort"
	"time"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

// Sequence is an immutable, ledger-ordered run of transactions. It may be
// iterated any number of times and shared between consumers.
type Sequence struct {
	txs []model.Transaction
}

// NewSequence copies txs and sorts the copy by (TradeTime, Sequence).
func NewSequence(txs []model.Transaction) *Sequence {
	sorted := slices.Clone(txs)
	slices.SortStableFunc(sorted, compare)
	return &Sequence{txs: sorted}
}

func compare(a, b model.Transaction) int {
	if c := a.TradeTime.Compare(b.TradeTime); c != 0 {
		return c
	}
	switch {
	case a.Sequence < b.Sequence:
		return -1
	case a.Sequence > b.Sequence:
		return 1
	}
	return 0
}

// All yields the transactions in ledger order.
func (s *Sequence) All() iter.Seq[model.Transaction] {
	return func(yield func(model.Transaction) bool) {
		if s == nil {
			return
		}
		for _, tx := range s.txs {
			if !yield(tx) {
				return
			}
		}
	}
}

// Len returns the number of transactions.
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.txs)
}

// First returns the earliest transaction.
func (s *Sequence) First() (model.Transaction, bool) {
	if s.Len() == 0 {
		return model.Transaction{}, false
	}
	return s.txs[0], true
}

// Last returns the latest transaction in ledger order.
func (s *Sequence) Last() (model.Transaction, bool) {
	if s.Len() == 0 {
		return model.Transaction{}, false
	}
	return s.txs[len(s.txs)-1], true
}

// Fingerprint digests the identity of every transaction in the run, in ledger
// order. Transactions are immutable, so equal fingerprints mean equal runs.
func (s *Sequence) Fingerprint() [sha256.Size]byte {
	h := sha256.New()
	for tx := range s.All() {
		fmt.Fprintf(h, "%d\x00%s\n", tx.Sequence, tx.ID)
	}
	var sum [sha256.Size]byte
	h.Sum(sum[:0])
	return sum
}

// LastSequence returns the highest store sequence number in the run. A backdated
// insert has a high sequence but an early trade time, so this is not simply the
// sequence of the last element.
func (s *Sequence) LastSequence() int64 {
	var highest int64
	for tx := range s.All() {
		highest = max(highest, tx.Sequence)
	}
	return highest
}

// Assets returns the distinct asset IDs in the run, sorted.
func (s *Sequence) Assets() []string {
	seen := make(map[string]struct{})
	for tx := range s.All() {
		seen[tx.AssetID] = struct{}{}
	}
	assets := make([]string, 0, len(seen))
	for id := range seen {
		assets = append(assets, id)
	}
	sort.Strings(assets)
	return assets
}

// Until returns the prefix with TradeTime <= t. The returned sequence shares
// storage with s, which is safe because neither is ever mutated.
func (s *Sequence) Until(t time.Time) *Sequence {
	if s.Len() == 0 {
		return &Sequence{}
	}
	n := sort.Search(len(s.txs), func(i int) bool {
		return s.txs[i].TradeTime.After(t)
	})
	return &Sequence{txs: s.txs[:n:n]}
}

// After returns the suffix of transactions sorting strictly after the cursor.
func (s *Sequence) After(c model.Cursor) *Sequence {
	if s.Len() == 0 {
		return &Sequence{}
	}
	n := sort.Search(len(s.txs), func(i int) bool {
		return !c.Precedes(s.txs[i])
	})
	return &Sequence{txs: s.txs[n:]}
}

// Slice returns a copy of the transactions.
func (s *Sequence) Slice() []model.Transaction {
	if s == nil {
		return nil
	}
	return slices.Clone(s.txs)
}
