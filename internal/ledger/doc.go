// Package ledger presents the immutable transaction ledger of a portfolio as an
// ordered, restartable sequence. It has no accounting logic of its own: it only
// orders by (trade time, sequence number) and filters by asset and as-of time.
package ledger
