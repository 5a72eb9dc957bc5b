/*
Package channel submits signed transactions to the network.

Submission is a two phase operation. Submit returns once the transaction id
is known, that is when the node accepted the payload, or in offline mode
when the payload was written down. The returned Submission resolves later,
when the transaction is included in a block or is known to have failed.
*/
package channel

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iov-one/fundtool/amount"
	"github.com/iov-one/fundtool/builder"
)

// Channel delivers signed transactions.
type Channel interface {
	// Submit returns after the id phase resolved. An error means the
	// transaction was not accepted.
	Submit(ctx context.Context, tx *builder.Signed) (*Submission, error)
	// Online returns true if the chain state can be queried through this
	// channel. Only an online channel implements State.
	Online() bool
}

// State gives access to the chain state.
type State interface {
	ChainID(ctx context.Context) (*big.Int, error)
	// NonceAt returns the next nonce of given account, including the
	// transactions waiting in the node's pool.
	NonceAt(ctx context.Context, account common.Address) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address) (amount.Amount, error)
	CodeAt(ctx context.Context, account common.Address) ([]byte, error)
}

// StateOf returns the state access of given channel, if supported.
func StateOf(c Channel) (State, bool) {
	if !c.Online() {
		return nil, false
	}
	s, ok := c.(State)
	return s, ok
}

// Receipt is the outcome of an included transaction.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	// Success is false for a transaction that was included but reverted.
	Success bool
	// ContractAddress is set for a contract creation.
	ContractAddress common.Address
}
