package channel

import (
	"context"
	"math/big"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/iov-one/fundtool/amount"
	"github.com/iov-one/fundtool/builder"
	"github.com/iov-one/fundtool/errors"
	"github.com/tendermint/tendermint/libs/log"
)

// Client is the subset of the go-ethereum RPC client used by Broadcast.
type Client interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

var _ Client = (*ethclient.Client)(nil)

// BroadcastConfig configures the receipt watch of submitted transactions.
type BroadcastConfig struct {
	// PollInterval is how often a receipt is requested.
	PollInterval time.Duration
	// Timeout rejects a submission without a receipt after that long. Zero
	// means no timeout.
	Timeout time.Duration
}

// DefaultBroadcastConfig returns the configuration used when nothing is
// customized.
func DefaultBroadcastConfig() BroadcastConfig {
	return BroadcastConfig{
		PollInterval: 2 * time.Second,
	}
}

// Validate returns an error if the configuration cannot be used.
func (c BroadcastConfig) Validate() error {
	if c.PollInterval <= 0 {
		return errors.Wrap(errors.ErrInput, "poll interval must be greater than zero")
	}
	if c.Timeout < 0 {
		return errors.Wrap(errors.ErrInput, "timeout must not be negative")
	}
	return nil
}

// Broadcast submits transactions to a node through the JSON-RPC API.
type Broadcast struct {
	client Client
	conf   BroadcastConfig
	logger log.Logger

	// ctx controls the lifetime of receipt watchers.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closer func()
}

var (
	_ Channel = (*Broadcast)(nil)
	_ State   = (*Broadcast)(nil)
)

// Dial connects to the node at given URL.
func Dial(ctx context.Context, url string, conf BroadcastConfig, logger log.Logger) (*Broadcast, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNetwork, "dial %s: %s", url, err)
	}
	b := NewBroadcast(client, conf, logger)
	b.closer = client.Close
	return b, nil
}

// NewBroadcast returns a channel using given client.
func NewBroadcast(client Client, conf BroadcastConfig, logger log.Logger) *Broadcast {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if conf.PollInterval <= 0 {
		conf.PollInterval = DefaultBroadcastConfig().PollInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Broadcast{
		client: client,
		conf:   conf,
		logger: logger.With("module", "broadcast"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Online implements Channel interface.
func (b *Broadcast) Online() bool {
	return true
}

// Submit implements Channel interface. It sends the raw transaction and
// starts watching for its receipt.
func (b *Broadcast) Submit(ctx context.Context, signed *builder.Signed) (*Submission, error) {
	var tx types.Transaction
	if err := tx.UnmarshalBinary(signed.Raw); err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "decode transaction: %s", err)
	}
	if err := b.client.SendTransaction(ctx, &tx); err != nil {
		return nil, sendError(err)
	}

	sub := NewSubmission(tx.Hash(), signed.Nonce)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.watch(sub)
	}()
	return sub, nil
}

// sendError classifies a SendTransaction failure. An error returned by the
// node means the payload was refused, anything else is a transport problem
// and the payload may or may not have reached the node.
func sendError(err error) error {
	if _, ok := err.(rpc.Error); ok {
		return errors.Wrapf(errors.ErrRejected, "send transaction: %s", err)
	}
	return errors.Wrapf(errors.ErrNetwork, "send transaction: %s", err)
}

func (b *Broadcast) watch(sub *Submission) {
	ctx := b.ctx
	if b.conf.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.conf.Timeout)
		defer cancel()
	}

	ticker := time.NewTicker(b.conf.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if b.ctx.Err() != nil {
				sub.Reject(errors.Wrap(errors.ErrNetwork, "channel closed"))
			} else {
				sub.Reject(errors.Wrapf(errors.ErrTimeout, "no receipt after %s", b.conf.Timeout))
			}
			return
		case <-ticker.C:
		}

		r, err := b.client.TransactionReceipt(ctx, sub.ID())
		switch {
		case err == ethereum.NotFound:
			continue
		case err != nil:
			b.logger.Debug("receipt request failed", "tx", sub.ID().Hex(), "err", err)
			continue
		}

		receipt := toReceipt(r)
		if !receipt.Success {
			sub.Reject(errors.Wrapf(errors.ErrRejected, "transaction reverted in block %d", receipt.BlockNumber))
			return
		}
		sub.Resolve(receipt)
		return
	}
}

func toReceipt(r *types.Receipt) *Receipt {
	receipt := &Receipt{
		TxHash:          r.TxHash,
		GasUsed:         r.GasUsed,
		Success:         r.Status == types.ReceiptStatusSuccessful,
		ContractAddress: r.ContractAddress,
	}
	if r.BlockNumber != nil {
		receipt.BlockNumber = r.BlockNumber.Uint64()
	}
	return receipt
}

// Close stops all receipt watchers, rejecting unresolved submissions, and
// releases the connection.
func (b *Broadcast) Close() error {
	b.cancel()
	b.wg.Wait()
	if b.closer != nil {
		b.closer()
	}
	return nil
}

// ChainID implements State interface.
func (b *Broadcast) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := b.client.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNetwork, "chain id: %s", err)
	}
	return id, nil
}

// NonceAt implements State interface.
func (b *Broadcast) NonceAt(ctx context.Context, account common.Address) (uint64, error) {
	n, err := b.client.PendingNonceAt(ctx, account)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrNetwork, "nonce of %s: %s", account.Hex(), err)
	}
	return n, nil
}

// BalanceAt implements State interface.
func (b *Broadcast) BalanceAt(ctx context.Context, account common.Address) (amount.Amount, error) {
	raw, err := b.client.BalanceAt(ctx, account, nil)
	if err != nil {
		return amount.Amount{}, errors.Wrapf(errors.ErrNetwork, "balance of %s: %s", account.Hex(), err)
	}
	balance, err := amount.FromBig(raw)
	if err != nil {
		return amount.Amount{}, errors.Wrapf(err, "balance of %s", account.Hex())
	}
	return balance, nil
}

// CodeAt implements State interface.
func (b *Broadcast) CodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	code, err := b.client.CodeAt(ctx, account, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNetwork, "code of %s: %s", account.Hex(), err)
	}
	return code, nil
}
