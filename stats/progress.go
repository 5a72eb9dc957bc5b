package stats

import (
	"context"
	"time"

	"github.com/iov-one/fundtool/amount"
	"github.com/tendermint/tendermint/libs/log"
)

// ReportProgress logs the tracker state every interval until the context is
// cancelled. It always returns nil so it can run in an errgroup next to the
// engine.
func ReportProgress(ctx context.Context, t *Tracker, interval time.Duration, logger log.Logger) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			LogProgress(logger, t.Snapshot())
		}
	}
}

// LogProgress writes a single progress line.
func LogProgress(logger log.Logger, s Snapshot) {
	logger.Info("progress",
		"transactions", s.Transactions,
		"transfers", s.Transfers,
		"total", s.Total.Human(4),
		"pending", s.Pending,
		"remaining", s.Remaining,
		"skipped", s.Skipped,
		"failed", s.Failed,
		"elapsed", time.Since(s.Started).Truncate(time.Second),
	)
}

// etherLabel formats an amount for the summary, for example
// "1500000000000000000 wei (1.5 ETH)".
func etherLabel(a amount.Amount) string {
	return a.String() + " wei (" + a.InUnit(amount.Ether) + " ETH)"
}
