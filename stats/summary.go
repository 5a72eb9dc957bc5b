package stats

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
)

// Summary is the final report of a funding run.
type Summary struct {
	Wallet common.Address
	// Distributor is set when transfers were batched.
	Distributor *common.Address
	Snapshot
}

// WriteSummary writes the summary as "key: value" lines.
func WriteSummary(w io.Writer, s Summary) error {
	lines := [][2]string{
		{"wallet", s.Wallet.Hex()},
		{"total", etherLabel(s.Total)},
		{"transactions", fmt.Sprint(s.Transactions)},
	}
	if s.Distributor != nil {
		lines = append(lines,
			[2]string{"transfers", fmt.Sprint(s.Transfers)},
			[2]string{"distributor", s.Distributor.Hex()},
		)
	}
	lines = append(lines,
		[2]string{"skipped", fmt.Sprint(s.Skipped)},
		[2]string{"failed", fmt.Sprint(s.Failed)},
	)
	if !s.SkippedAmount.IsZero() {
		lines = append(lines, [2]string{"skipped total", etherLabel(s.SkippedAmount)})
	}

	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%s: %s\n", l[0], l[1]); err != nil {
			return err
		}
	}
	return nil
}
