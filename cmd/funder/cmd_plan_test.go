package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/iov-one/fundtool/amount"
	"github.com/iov-one/fundtool/batch"
	"github.com/iov-one/fundtool/errors"
	"github.com/iov-one/fundtool/fundtest"
	"github.com/iov-one/fundtool/fundtest/assert"
)

func TestPlan(t *testing.T) {
	dir := t.TempDir()
	fundings := writeFundings(t, dir, 45, "2eth")

	cases := map[string]struct {
		args      []string
		wantLines []string
	}{
		"direct transfers": {
			args: []string{"-fundings", fundings},
			wantLines: []string{
				"   1  to=" + fundtest.SeqAddress(1).Hex() + "  value=2",
				"transfers: 45",
				"transactions: 45",
				"total: 90000000000000000000 wei (90 ETH)",
			},
		},
		"distributor batches": {
			args: []string{"-fundings", fundings, "-use-distributor", "-distributor-batch-size", "20"},
			wantLines: []string{
				"   1  transfers=20  encoding=equal-split",
				"   3  transfers=5  encoding=equal-split",
				"transfers: 45",
				"transactions: 3",
			},
		},
		"generic encoding only": {
			args: []string{"-fundings", fundings, "-use-distributor", "-distributor-compact=false"},
			wantLines: []string{
				"   1  transfers=20  encoding=generic",
				"transactions: 3",
			},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			var out bytes.Buffer
			assert.Nil(t, cmdPlan(nil, &out, tc.args))
			for _, want := range tc.wantLines {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output does not contain %q:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestPlanEmptyList(t *testing.T) {
	var out bytes.Buffer
	err := cmdPlan(nil, &out, []string{"-fundings", writeEmpty(t, t.TempDir())})
	assert.IsErr(t, errors.ErrEmpty, err)
}

func TestWritePlanOverflow(t *testing.T) {
	reqs := fundtest.Requests(3, amount.Max())

	var out bytes.Buffer
	assert.Nil(t, writePlan(&out, reqs, 2, true, batch.AllCapabilities(), false))

	got := out.String()
	if !strings.Contains(got, "skipped transactions: 1\n") {
		t.Fatalf("overflowing batch not reported:\n%s", got)
	}
	if !strings.Contains(got, "transactions: 2\n") {
		t.Fatalf("unexpected transaction count:\n%s", got)
	}
}
