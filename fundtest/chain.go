package fundtest

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iov-one/fundtool/amount"
	"github.com/iov-one/fundtool/builder"
	"github.com/iov-one/fundtool/channel"
	"github.com/iov-one/fundtool/errors"
)

// Chain is an in memory channel.Channel and channel.State implementation.
// It records every submitted transaction.
//
// By default submissions resolve immediately. When Manual is set, they stay
// unresolved until Settle is called, which allows to inspect the number of
// transactions in flight.
type Chain struct {
	mu sync.Mutex

	online   bool
	chainID  *big.Int
	nonces   map[common.Address]uint64
	balances map[common.Address]amount.Amount
	codes    map[common.Address][]byte

	// Manual disables the immediate resolution of submissions.
	Manual bool
	// Refuse, when set, is called in the id phase of every submission. A
	// non nil error refuses the transaction.
	Refuse func(*builder.Signed) error

	submitted      []*builder.Signed
	unresolved     []*channel.Submission
	maxUnresolved  int
	stateQueries   int
	failQueries    int
	refusedCounter int
}

var (
	_ channel.Channel = (*Chain)(nil)
	_ channel.State   = (*Chain)(nil)
)

// NewChain returns an empty chain with given id.
func NewChain(chainID int64, online bool) *Chain {
	return &Chain{
		online:   online,
		chainID:  big.NewInt(chainID),
		nonces:   make(map[common.Address]uint64),
		balances: make(map[common.Address]amount.Amount),
		codes:    make(map[common.Address][]byte),
	}
}

// SetNonce sets the next nonce of given account.
func (c *Chain) SetNonce(a common.Address, n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nonces[a] = n
}

// SetBalance sets the balance of given account.
func (c *Chain) SetBalance(a common.Address, b amount.Amount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[a] = b
}

// SetCode sets the code of given account.
func (c *Chain) SetCode(a common.Address, code []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[a] = code
}

// Online implements channel.Channel interface.
func (c *Chain) Online() bool {
	return c.online
}

// Submit implements channel.Channel interface.
func (c *Chain) Submit(ctx context.Context, tx *builder.Signed) (*channel.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.submitted = append(c.submitted, tx)
	if c.Refuse != nil {
		if err := c.Refuse(tx); err != nil {
			c.refusedCounter++
			return nil, err
		}
	}

	sub := channel.NewSubmission(tx.Hash, tx.Nonce)
	if !c.Manual {
		sub.Resolve(&channel.Receipt{TxHash: tx.Hash, Success: true})
		return sub, nil
	}
	c.unresolved = append(c.unresolved, sub)
	if len(c.unresolved) > c.maxUnresolved {
		c.maxUnresolved = len(c.unresolved)
	}
	return sub, nil
}

// Settle resolves up to n oldest unresolved submissions and returns the
// number of resolved ones. A non nil err rejects them instead.
func (c *Chain) Settle(n int, err error) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n > len(c.unresolved) {
		n = len(c.unresolved)
	}
	for _, sub := range c.unresolved[:n] {
		if err != nil {
			sub.Reject(err)
		} else {
			sub.Resolve(&channel.Receipt{TxHash: sub.ID(), Success: true})
		}
	}
	c.unresolved = c.unresolved[n:]
	return n
}

// Unresolved returns the number of submissions waiting for Settle.
func (c *Chain) Unresolved() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.unresolved)
}

// MaxUnresolved returns the highest number of unresolved submissions
// observed at any time.
func (c *Chain) MaxUnresolved() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxUnresolved
}

// Submitted returns all transactions passed to Submit, including refused
// ones, in submission order.
func (c *Chain) Submitted() []*builder.Signed {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*builder.Signed(nil), c.submitted...)
}

// Nonces returns the nonces of all submitted transactions.
func (c *Chain) Nonces() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	nonces := make([]uint64, len(c.submitted))
	for i, tx := range c.submitted {
		nonces[i] = tx.Nonce
	}
	return nonces
}

// Refused returns the number of transactions refused in the id phase.
func (c *Chain) Refused() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refusedCounter
}

// StateQueries returns the number of state queries made.
func (c *Chain) StateQueries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateQueries
}

// FailQueries makes the next n state queries fail with ErrNetwork.
func (c *Chain) FailQueries(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failQueries = n
}

func (c *Chain) query() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateQueries++
	if c.failQueries > 0 {
		c.failQueries--
		return errors.Wrap(errors.ErrNetwork, "node unavailable")
	}
	return nil
}

// ChainID implements channel.State interface.
func (c *Chain) ChainID(ctx context.Context) (*big.Int, error) {
	if err := c.query(); err != nil {
		return nil, err
	}
	return new(big.Int).Set(c.chainID), nil
}

// NonceAt implements channel.State interface.
func (c *Chain) NonceAt(ctx context.Context, a common.Address) (uint64, error) {
	if err := c.query(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonces[a], nil
}

// BalanceAt implements channel.State interface.
func (c *Chain) BalanceAt(ctx context.Context, a common.Address) (amount.Amount, error) {
	if err := c.query(); err != nil {
		return amount.Amount{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[a], nil
}

// CodeAt implements channel.State interface.
func (c *Chain) CodeAt(ctx context.Context, a common.Address) ([]byte, error) {
	if err := c.query(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[a], nil
}
