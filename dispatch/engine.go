/*
Package dispatch implements the funding engine.

The engine turns a list of transfer requests into a stream of signed,
nonce ordered transactions. Requests are taken in order, folded into
distributor calls when batching is enabled, and submitted through a
channel. No more than MaxPending transactions are in flight at any time and
in online mode the amount sent never knowingly exceeds the account balance.

A single goroutine owns the engine state. Run restarts the funding loop
after any failure, continuing from the in memory position, nonce and
pending set.
*/
package dispatch

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iov-one/fundtool/amount"
	"github.com/iov-one/fundtool/batch"
	"github.com/iov-one/fundtool/builder"
	"github.com/iov-one/fundtool/channel"
	"github.com/iov-one/fundtool/distributor"
	"github.com/iov-one/fundtool/errors"
	"github.com/iov-one/fundtool/funding"
	"github.com/iov-one/fundtool/retry"
	"github.com/iov-one/fundtool/stats"
	"github.com/tendermint/tendermint/libs/log"
)

// Account is the funding account state.
type Account struct {
	Address common.Address
	Signer  builder.Signer
	ChainID *big.Int
	// Nonce is the nonce of the next transaction.
	Nonce uint64
	// Balance is the balance left for funding. It is nil when the balance
	// is not known, in offline mode.
	Balance *amount.Amount
}

// Engine dispatches funding requests.
type Engine struct {
	conf    Config
	channel channel.Channel
	signer  builder.Signer
	tracker *stats.Tracker
	sink    stats.Sink
	logger  log.Logger

	account  *Account
	builder  *builder.Builder
	endpoint *distributor.Endpoint

	requests []funding.Request
	// pos is the index of the first request not yet sent or skipped.
	pos     int
	pending *pendingSet
}

// New returns an engine sending transactions signed by signer through ch.
// A nil sink disables event publishing.
func New(conf Config, ch channel.Channel, signer builder.Signer, sink stats.Sink, logger log.Logger) (*Engine, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, errors.Wrap(errors.ErrInput, "channel is required")
	}
	if signer == nil {
		return nil, errors.Wrap(errors.ErrInput, "signer is required")
	}
	if sink == nil {
		sink = stats.NopSink{}
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Engine{
		conf:    conf,
		channel: ch,
		signer:  signer,
		tracker: stats.NewTracker(),
		sink:    sink,
		logger:  logger.With("module", "dispatch"),
		pending: newPendingSet(),
	}, nil
}

// Load reads the requests of given source and queues them after the
// already loaded ones.
func (e *Engine) Load(ctx context.Context, src funding.Source) error {
	reqs, err := src.Requests(ctx)
	if err != nil {
		return errors.Wrap(err, "load fundings")
	}
	if len(reqs) == 0 {
		return errors.Wrap(errors.ErrEmpty, "no fundings")
	}
	e.requests = append(e.requests, reqs...)
	e.tracker.Progress(e.pending.Len(), len(e.requests)-e.pos)
	return nil
}

// Tracker returns the run statistics.
func (e *Engine) Tracker() *stats.Tracker {
	return e.tracker
}

// Account returns a copy of the funding account state. It returns false
// before a session is established.
func (e *Engine) Account() (Account, bool) {
	if e.account == nil {
		return Account{}, false
	}
	return *e.account, true
}

// Summary returns the final report of the run.
func (e *Engine) Summary() stats.Summary {
	s := stats.Summary{
		Wallet:   e.signer.Address(),
		Snapshot: e.tracker.Snapshot(),
	}
	if e.endpoint != nil {
		addr := e.endpoint.Address
		s.Distributor = &addr
	}
	return s
}

// Connect establishes the session: chain id, starting nonce and balance.
// In online mode it retries until the node answers or the context is
// cancelled. When batching is enabled the distributor is set up as well.
func (e *Engine) Connect(ctx context.Context) error {
	if e.account == nil {
		if err := e.openSession(ctx); err != nil {
			return err
		}
	}
	if e.conf.Distributor != nil && e.endpoint == nil {
		return e.setupDistributor(ctx)
	}
	return nil
}

func (e *Engine) openSession(ctx context.Context) error {
	acc := &Account{
		Address: e.signer.Address(),
		Signer:  e.signer,
	}
	if state, ok := channel.StateOf(e.channel); ok {
		if err := e.querySession(ctx, state, acc); err != nil {
			return err
		}
	} else {
		if e.conf.ChainID == nil || e.conf.Nonce == nil {
			return errors.Wrap(errors.ErrInput, "offline mode requires chain id and nonce")
		}
		acc.ChainID = new(big.Int).Set(e.conf.ChainID)
		acc.Nonce = *e.conf.Nonce
		e.logger.Info("offline mode, balance not verified")
	}

	e.builder = builder.New(e.conf.Builder, e.signer, acc.ChainID)
	e.account = acc

	logBalance := "unknown"
	if acc.Balance != nil {
		logBalance = acc.Balance.Human(6)
	}
	e.logger.Info("wallet", "address", acc.Address.Hex(), "chain", acc.ChainID, "nonce", acc.Nonce, "balance", logBalance)
	return nil
}

func (e *Engine) querySession(ctx context.Context, state channel.State, acc *Account) error {
	p := retry.Constant(e.conf.ConnectRetryDelay)
	p.OnRetry = func(attempt int, wait time.Duration, err error) {
		e.logger.Error("cannot connect", "attempt", attempt, "retry", wait, "err", err)
	}
	return retry.Do(ctx, p, func(ctx context.Context) error {
		chainID, err := state.ChainID(ctx)
		if err != nil {
			return err
		}
		if e.conf.ChainID != nil && e.conf.ChainID.Cmp(chainID) != 0 {
			e.logger.Error("configured chain id differs from the node", "configured", e.conf.ChainID, "node", chainID)
		}
		nonce, err := state.NonceAt(ctx, acc.Address)
		if err != nil {
			return err
		}
		if e.conf.Nonce != nil {
			nonce = *e.conf.Nonce
		}
		balance, err := state.BalanceAt(ctx, acc.Address)
		if err != nil {
			return err
		}
		acc.ChainID = chainID
		acc.Nonce = nonce
		acc.Balance = &balance
		return nil
	})
}

func (e *Engine) setupDistributor(ctx context.Context) error {
	d := &distributor.Deployer{
		Builder:      e.builder,
		Channel:      e.channel,
		Store:        e.conf.Distributor.Store,
		Artifact:     e.conf.Distributor.Artifact,
		Capabilities: e.conf.Distributor.Capabilities,
		Logger:       e.logger,
	}

	p := retry.Constant(e.conf.ConnectRetryDelay)
	p.Classify = retry.FatalOn(errors.ErrInput, errors.ErrState, errors.ErrSigning, errors.ErrRejected)
	p.OnRetry = func(attempt int, wait time.Duration, err error) {
		e.logger.Error("cannot set up distributor", "attempt", attempt, "retry", wait, "err", err)
	}
	return retry.Do(ctx, p, func(ctx context.Context) error {
		ep, deployment, err := d.Ensure(ctx, e.account.Nonce)
		if err != nil {
			return err
		}
		if deployment != nil {
			e.pending.Add(&Pending{
				Nonce:      deployment.Nonce,
				ID:         deployment.Submission.ID(),
				Submission: deployment.Submission,
			})
			e.account.Nonce++
		}
		e.endpoint = ep
		e.logger.Info("enabled distributor contract", "address", ep.Address.Hex())
		return nil
	})
}

// Run dispatches all loaded requests and waits until every sent
// transaction completes. A failure of the funding loop is logged and the
// loop restarts after RestartDelay. Configuration and signing errors end
// the run.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Connect(ctx); err != nil {
		return err
	}

	for {
		err := e.loop(ctx)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.ErrSigning.Is(err) || errors.ErrInput.Is(err) {
			return err
		}
		e.logger.Error("funding loop failed", "err", err, "restart", e.conf.RestartDelay)
		if err := retry.Sleep(ctx, e.conf.RestartDelay); err != nil {
			return err
		}
	}

	if err := e.settle(ctx); err != nil {
		return err
	}
	e.logger.Info("fundings complete")
	return nil
}

func (e *Engine) loop(ctx context.Context) (err error) {
	defer errors.Recover(&err)

	for e.pos < len(e.requests) {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.drain(ctx)
		if e.pending.Len() >= e.conf.MaxPending {
			if err := e.waitSlot(ctx); err != nil {
				return err
			}
			continue
		}
		if err := e.dispatchNext(ctx); err != nil {
			return err
		}
	}
	return nil
}

// dispatchNext sends or skips the next batch of requests. The position
// advances only when the batch was submitted, refused or deliberately
// skipped.
func (e *Engine) dispatchNext(ctx context.Context) error {
	size := 1
	if e.endpoint != nil {
		size = e.conf.Distributor.BatchSize
	}
	b := batch.Plan(e.requests[e.pos:], size)

	total, err := b.Total()
	if err != nil {
		e.logger.Error("batch total overflows, skipping", "transfers", len(b), "err", err)
		e.skip(ctx, b, amount.Max())
		return nil
	}
	for _, r := range b {
		e.logger.Debug("process funding", "recipient", r.Recipient.Hex(), "amount", r.Amount.Human(6))
	}

	acc := e.account
	if acc.Balance != nil && total.Compare(*acc.Balance) > 0 {
		e.logger.Info("amount exceeds wallet balance, skipping",
			"transfers", len(b), "amount", total.Human(6), "balance", acc.Balance.Human(6))
		e.skip(ctx, b, total)
		return nil
	}

	nonce := acc.Nonce
	unsigned, err := e.build(b, total, nonce)
	if err != nil {
		return err
	}
	e.logger.Debug("transaction", "nonce", nonce, "state", Building)
	signed, err := e.builder.Sign(unsigned)
	if err != nil {
		return err
	}

	e.logger.Debug("transaction", "nonce", nonce, "state", Submitted, "tx", signed.Hash.Hex())
	sub, err := e.channel.Submit(ctx, signed)
	if err != nil {
		if !errors.ErrRejected.Is(err) {
			// The payload may not have reached the node. Keep the nonce
			// and the position, the batch is sent again after a restart.
			return err
		}
		// The nonce is not reused. The node refused the payload, the
		// requests are not retried.
		e.logger.Error("transaction refused", "nonce", nonce, "tx", signed.Hash.Hex(), "state", Failed, "err", err)
		acc.Nonce++
		e.pos += len(b)
		e.tracker.Fail()
		e.emitTx(ctx, nonce, signed.Hash, Failed, len(b), total, err)
		e.progress()
		return nil
	}

	e.pending.Add(&Pending{
		Nonce:      nonce,
		ID:         sub.ID(),
		Transfers:  len(b),
		Total:      total,
		Raw:        signed.Raw,
		Submission: sub,
	})
	acc.Nonce++
	if acc.Balance != nil {
		left, err := acc.Balance.Subtract(total)
		if err != nil {
			left = amount.Amount{}
		}
		acc.Balance = &left
	}
	e.pos += len(b)
	e.tracker.Sent(len(b), total)
	e.logger.Info("transaction sent", "nonce", nonce, "tx", sub.ID().Hex(), "transfers", len(b), "amount", total.Human(6))
	e.emitTx(ctx, nonce, sub.ID(), Accepted, len(b), total, nil)
	e.progress()
	return nil
}

func (e *Engine) build(b batch.Batch, total amount.Amount, nonce uint64) (builder.Unsigned, error) {
	if e.endpoint == nil {
		to := b[0].Recipient
		return e.builder.Build(&to, b[0].Amount, nonce, nil), nil
	}
	call, err := batch.Prepare(b, e.endpoint.Capabilities)
	if err != nil {
		return builder.Unsigned{}, err
	}
	e.logger.Debug("distributor call", "encoding", call.Encoding, "transfers", len(b))
	return e.builder.BuildBatch(e.endpoint.Address, call.Value, nonce, call.Data, len(b)), nil
}

func (e *Engine) skip(ctx context.Context, b batch.Batch, total amount.Amount) {
	e.pos += len(b)
	e.tracker.Skip(len(b), total)
	balance := ""
	if e.account.Balance != nil {
		balance = e.account.Balance.String()
	}
	e.emit(ctx, stats.EventSkip, stats.SkipEvent{
		Transfers: len(b),
		Amount:    total.String(),
		Balance:   balance,
	})
	e.progress()
}

// drain removes completed transactions from the pending set.
func (e *Engine) drain(ctx context.Context) {
	for _, p := range e.pending.TakeResolved() {
		if err := p.Submission.Err(); err != nil {
			e.logger.Error("transaction failed", "nonce", p.Nonce, "tx", p.ID.Hex(), "state", Failed, "err", err)
			e.tracker.Fail()
			e.emitTx(ctx, p.Nonce, p.ID, Failed, p.Transfers, p.Total, err)
			continue
		}
		e.logger.Debug("transaction", "nonce", p.Nonce, "tx", p.ID.Hex(), "state", Settled)
		e.emitTx(ctx, p.Nonce, p.ID, Settled, p.Transfers, p.Total, nil)
	}
	e.progress()
}

// waitSlot blocks until the oldest pending transaction completes or
// PollInterval elapses.
func (e *Engine) waitSlot(ctx context.Context) error {
	var done <-chan struct{}
	if p := e.pending.Oldest(); p != nil {
		done = p.Submission.Done()
	}
	timer := time.NewTimer(e.conf.PollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	case <-timer.C:
	}
	return nil
}

// settle waits until the pending set is empty.
func (e *Engine) settle(ctx context.Context) error {
	for {
		e.drain(ctx)
		if e.pending.Len() == 0 {
			return nil
		}
		if err := e.waitSlot(ctx); err != nil {
			return err
		}
	}
}

func (e *Engine) progress() {
	e.tracker.Progress(e.pending.Len(), len(e.requests)-e.pos)
}

func (e *Engine) emitTx(ctx context.Context, nonce uint64, id common.Hash, s State, transfers int, total amount.Amount, err error) {
	ev := stats.TxEvent{
		Nonce:     nonce,
		Hash:      id.Hex(),
		State:     s.String(),
		Transfers: transfers,
		Amount:    total.String(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	e.emit(ctx, stats.EventTx, ev)
}

func (e *Engine) emit(ctx context.Context, typ string, v interface{}) {
	if err := e.sink.Emit(ctx, typ, v); err != nil {
		e.logger.Error("cannot publish event", "type", typ, "err", err)
	}
}
