package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/iov-one/fundtool"
	"github.com/iov-one/fundtool/amount"
	"github.com/iov-one/fundtool/batch"
	"github.com/iov-one/fundtool/errors"
	"github.com/iov-one/fundtool/funding"
)

func cmdPlan(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Print the transactions that funding would create, without connecting to any
node. Each line describes a single transaction: the number of transfers, the
distributor call encoding and the transferred total.
`)
		fl.PrintDefaults()
	}
	var (
		fundingsFl = fl.String("fundings", env("FUNDER_FUNDINGS", ""),
			"Path to the funding list file.")
		fundingsExecFl = fl.String("fundings-exec", env("FUNDER_FUNDINGS_EXEC", ""),
			"Executable, with optional arguments, printing the fundings.")
		useDistributorFl = fl.Bool("use-distributor", envBool("FUNDER_USE_DISTRIBUTOR", false),
			"Plan for a distribution contract.")
		batchSizeFl = fl.Int("distributor-batch-size", envInt("FUNDER_DISTRIBUTOR_BATCH_SIZE", 20),
			"The max size of transaction batches to send via the distributor contract.")
		compactFl = fl.Bool("distributor-compact", envBool("FUNDER_DISTRIBUTOR_COMPACT", true),
			"The distributor contract supports compact encodings.")
		quietFl = fl.Bool("quiet", false, "Print only the totals.")
	)
	fl.Parse(args)

	logger, err := fundtool.NewLogger(output, "error")
	if err != nil {
		return err
	}
	src, err := fundingSource(*fundingsFl, *fundingsExecFl, logger)
	if err != nil {
		return err
	}
	reqs, err := src.Requests(context.Background())
	if err != nil {
		return err
	}
	if len(reqs) == 0 {
		return errors.Wrap(errors.ErrEmpty, "funding list")
	}

	size := 1
	if *useDistributorFl {
		size = *batchSizeFl
	}
	caps := batch.AllCapabilities()
	if !*compactFl {
		caps = batch.Capabilities{}
	}
	return writePlan(output, reqs, size, *useDistributorFl, caps, *quietFl)
}

// writePlan prints one line per transaction followed by the totals.
func writePlan(w io.Writer, reqs []funding.Request, size int, batched bool, caps batch.Capabilities, quiet bool) error {
	var (
		total   amount.Amount
		invalid int
		pos     int
	)
	for i := 1; pos < len(reqs); i++ {
		b := batch.Plan(reqs[pos:], size)
		pos += len(b)

		sum, err := b.Total()
		if err != nil {
			invalid++
			if !quiet {
				fmt.Fprintf(w, "%4d  transfers=%d  skipped: %s\n", i, len(b), err)
			}
			continue
		}
		if t, err := total.Add(sum); err == nil {
			total = t
		} else {
			total = amount.Max()
		}
		if quiet {
			continue
		}
		if !batched {
			fmt.Fprintf(w, "%4d  to=%s  value=%s\n", i, b[0].Recipient.Hex(), sum.InUnit(amount.Ether))
			continue
		}
		call, err := batch.Prepare(b, caps)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%4d  transfers=%d  encoding=%s  calldata=%d  value=%s\n",
			i, len(b), call.Encoding, len(call.Data), sum.InUnit(amount.Ether))
	}

	txs := batch.Count(len(reqs), size)
	fmt.Fprintf(w, "transfers: %d\n", len(reqs))
	fmt.Fprintf(w, "transactions: %d\n", txs)
	if invalid > 0 {
		fmt.Fprintf(w, "skipped transactions: %d\n", invalid)
	}
	fmt.Fprintf(w, "total: %s wei (%s ETH)\n", total, total.InUnit(amount.Ether))
	return nil
}
