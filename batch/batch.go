package batch

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/iov-one/fundtool/amount"
	"github.com/iov-one/fundtool/funding"
)

// Batch is an ordered group of transfer requests that is dispatched as a
// single transaction. It is a view of the planned request slice and must
// not be modified.
type Batch []funding.Request

// Plan returns the longest prefix of given requests that is not longer than
// maxBatchSize. A maxBatchSize lower than 1 is treated as 1, which is the
// direct (non batched) mode.
func Plan(reqs []funding.Request, maxBatchSize int) Batch {
	if maxBatchSize < 1 {
		maxBatchSize = 1
	}
	if len(reqs) < maxBatchSize {
		maxBatchSize = len(reqs)
	}
	return Batch(reqs[:maxBatchSize])
}

// Count returns the number of batches the planner creates for n requests.
func Count(n, maxBatchSize int) int {
	if maxBatchSize < 1 {
		maxBatchSize = 1
	}
	return (n + maxBatchSize - 1) / maxBatchSize
}

// Total returns the sum of all amounts of the batch.
func (b Batch) Total() (amount.Amount, error) {
	return funding.Total(b)
}

// Amounts returns the amounts of all requests, in order.
func (b Batch) Amounts() []amount.Amount {
	out := make([]amount.Amount, len(b))
	for i, r := range b {
		out[i] = r.Amount
	}
	return out
}

// Recipients returns the recipients of all requests, in order.
func (b Batch) Recipients() []common.Address {
	out := make([]common.Address, len(b))
	for i, r := range b {
		out[i] = r.Recipient
	}
	return out
}
