/*
Package stats counts what a funding run did and reports it.

The Tracker is written by the dispatch engine and read concurrently by the
progress reporter and the summary.
*/
package stats

import (
	"sync"
	"time"

	"github.com/iov-one/fundtool/amount"
)

// Snapshot is a consistent copy of the run statistics.
type Snapshot struct {
	// Transfers is the number of requests sent, each recipient counts once.
	Transfers int
	// Transactions is the number of transactions sent.
	Transactions int
	// Total is the sum of all amounts sent.
	Total amount.Amount
	// Skipped is the number of requests skipped because the balance was
	// too low.
	Skipped       int
	SkippedAmount amount.Amount
	// Failed is the number of transactions that were refused or that
	// failed after being accepted.
	Failed int
	// Pending is the number of transactions waiting for completion.
	Pending int
	// Remaining is the number of requests not processed yet.
	Remaining int
	Started   time.Time
}

// Tracker collects statistics. It is safe for concurrent use.
type Tracker struct {
	mu sync.Mutex
	s  Snapshot
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{s: Snapshot{Started: time.Now()}}
}

// Sent records a transaction carrying given number of transfers. The total
// saturates instead of overflowing.
func (t *Tracker) Sent(transfers int, total amount.Amount) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.Transfers += transfers
	t.s.Transactions++
	t.s.Total = saturatingAdd(t.s.Total, total)
}

// Skip records requests that were not sent.
func (t *Tracker) Skip(transfers int, total amount.Amount) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.Skipped += transfers
	t.s.SkippedAmount = saturatingAdd(t.s.SkippedAmount, total)
}

// Fail records a failed transaction.
func (t *Tracker) Fail() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.Failed++
}

// Progress updates the queue sizes.
func (t *Tracker) Progress(pending, remaining int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.Pending = pending
	t.s.Remaining = remaining
}

// Snapshot returns the current statistics.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s
}

func saturatingAdd(a, b amount.Amount) amount.Amount {
	sum, err := a.Add(b)
	if err != nil {
		return amount.Max()
	}
	return sum
}
