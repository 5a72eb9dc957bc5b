package dispatch_test

import (
	"bufio"
	"context"
	"encoding/hex"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/iov-one/fundtool/amount"
	"github.com/iov-one/fundtool/batch"
	"github.com/iov-one/fundtool/builder"
	"github.com/iov-one/fundtool/channel"
	"github.com/iov-one/fundtool/contracts"
	"github.com/iov-one/fundtool/dispatch"
	"github.com/iov-one/fundtool/distributor"
	"github.com/iov-one/fundtool/errors"
	"github.com/iov-one/fundtool/funding"
	"github.com/iov-one/fundtool/fundtest"
	"github.com/iov-one/fundtool/fundtest/assert"
	"github.com/iov-one/fundtool/stats"
	"github.com/stretchr/testify/mock"
)

var artifact = &contracts.Artifact{
	Bytecode: []byte{0x60, 0x80, 0x60, 0x40, 0x52, 0x01},
	Deployed: []byte{0x60, 0x80, 0x60, 0x40, 0x52, 0x02},
}

func fastConfig() dispatch.Config {
	conf := dispatch.DefaultConfig()
	conf.PollInterval = time.Millisecond
	conf.RestartDelay = time.Millisecond
	conf.ConnectRetryDelay = time.Millisecond
	return conf
}

func eth(n uint64) amount.Amount {
	return amount.NewAmountIn(n, amount.Ether)
}

// onlineChain returns a chain where the funding account holds given
// balance and its next nonce is 10.
func onlineChain(t *testing.T, signer builder.Signer, balance amount.Amount) *fundtest.Chain {
	t.Helper()
	chain := fundtest.NewChain(1337, true)
	chain.SetNonce(signer.Address(), 10)
	chain.SetBalance(signer.Address(), balance)
	return chain
}

func runEngine(t *testing.T, conf dispatch.Config, ch channel.Channel, signer builder.Signer, reqs []funding.Request) (*dispatch.Engine, error) {
	t.Helper()
	e, err := dispatch.New(conf, ch, signer, nil, nil)
	assert.Nil(t, err)
	assert.Nil(t, e.Load(context.Background(), funding.List(reqs)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e, e.Run(ctx)
}

func seq(from, n uint64) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = from + uint64(i)
	}
	return out
}

func TestDirectTransfers(t *testing.T) {
	signer := fundtest.SeqSigner(t, 1)
	chain := onlineChain(t, signer, eth(100))

	e, err := runEngine(t, fastConfig(), chain, signer, fundtest.Requests(5, eth(1)))
	assert.Nil(t, err)

	assert.Equal(t, seq(10, 5), chain.Nonces())
	for i, tx := range chain.Submitted() {
		assert.Equal(t, fundtest.SeqAddress(uint64(i)), *tx.To)
		assert.Equal(t, eth(1), tx.Value)
	}

	acc, ok := e.Account()
	assert.Equal(t, true, ok)
	assert.Equal(t, uint64(15), acc.Nonce)
	assert.Equal(t, eth(95), *acc.Balance)

	s := e.Summary()
	assert.Equal(t, signer.Address(), s.Wallet)
	assert.Equal(t, 5, s.Transactions)
	assert.Equal(t, 5, s.Transfers)
	assert.Equal(t, eth(5), s.Total)
	assert.Equal(t, 0, s.Pending)
	assert.Equal(t, 0, s.Remaining)
	if s.Distributor != nil {
		t.Fatalf("unexpected distributor %s", s.Distributor.Hex())
	}
}

func distributorConfig(t *testing.T, chain *fundtest.Chain, deployed bool) (*dispatch.DistributorConfig, common.Address) {
	t.Helper()
	store := distributor.NewStateStore(filepath.Join(t.TempDir(), "distributor-state.json"))
	addr := fundtest.SeqAddress(1000)
	if deployed {
		assert.Nil(t, store.Save(distributor.State{ContractAddr: addr.Hex()}))
		chain.SetCode(addr, artifact.Deployed)
	}
	return &dispatch.DistributorConfig{
		BatchSize:    20,
		Store:        store,
		Artifact:     artifact,
		Capabilities: batch.AllCapabilities(),
	}, addr
}

func TestBatchedTransactionCount(t *testing.T) {
	cases := map[string]struct {
		Requests int
		WantTxs  int
	}{
		"single request":    {Requests: 1, WantTxs: 1},
		"partial batch":     {Requests: 19, WantTxs: 1},
		"exactly one batch": {Requests: 20, WantTxs: 1},
		"one over":          {Requests: 21, WantTxs: 2},
		"many":              {Requests: 45, WantTxs: 3},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			signer := fundtest.SeqSigner(t, 1)
			chain := onlineChain(t, signer, eth(1000))
			conf := fastConfig()
			var contract common.Address
			conf.Distributor, contract = distributorConfig(t, chain, true)

			e, err := runEngine(t, conf, chain, signer, fundtest.Requests(tc.Requests, amount.NewAmountIn(5, amount.Gwei)))
			assert.Nil(t, err)

			assert.Equal(t, tc.WantTxs, len(chain.Submitted()))
			assert.Equal(t, seq(10, uint64(tc.WantTxs)), chain.Nonces())
			for _, tx := range chain.Submitted() {
				assert.Equal(t, contract, *tx.To)
			}

			s := e.Summary()
			assert.Equal(t, tc.WantTxs, s.Transactions)
			assert.Equal(t, tc.Requests, s.Transfers)
			assert.Equal(t, contract, *s.Distributor)
		})
	}
}

func TestBatchingDeploysDistributor(t *testing.T) {
	signer := fundtest.SeqSigner(t, 1)
	chain := onlineChain(t, signer, eth(1000))
	conf := fastConfig()
	conf.Distributor, _ = distributorConfig(t, chain, false)

	e, err := runEngine(t, conf, chain, signer, fundtest.Requests(30, eth(1)))
	assert.Nil(t, err)

	submitted := chain.Submitted()
	assert.Equal(t, 3, len(submitted))
	assert.Equal(t, seq(10, 3), chain.Nonces())
	if submitted[0].To != nil {
		t.Fatalf("contract creation expected, got %s", submitted[0].To.Hex())
	}

	contract := crypto.CreateAddress(signer.Address(), 10)
	assert.Equal(t, contract, *submitted[1].To)
	assert.Equal(t, eth(20), submitted[1].Value)
	assert.Equal(t, eth(10), submitted[2].Value)
	assert.Equal(t, contract, *e.Summary().Distributor)

	st, err := conf.Distributor.Store.Load()
	assert.Nil(t, err)
	assert.Equal(t, contract.Hex(), st.ContractAddr)
}

func TestPendingCapIsNeverExceeded(t *testing.T) {
	signer := fundtest.SeqSigner(t, 1)
	chain := onlineChain(t, signer, eth(100))
	chain.Manual = true

	conf := fastConfig()
	conf.MaxPending = 2

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			time.Sleep(2 * time.Millisecond)
			chain.Settle(1, nil)
		}
	}()

	e, err := runEngine(t, conf, chain, signer, fundtest.Requests(7, eth(1)))
	cancel()
	wg.Wait()
	assert.Nil(t, err)

	assert.Equal(t, seq(10, 7), chain.Nonces())
	if max := chain.MaxUnresolved(); max > 2 || max < 1 {
		t.Fatalf("want at most 2 transactions in flight, got %d", max)
	}
	assert.Equal(t, 7, e.Summary().Transactions)
}

func TestOfflineWritesTransactions(t *testing.T) {
	signer := fundtest.SeqSigner(t, 1)
	path := filepath.Join(t.TempDir(), "txs.txt")
	offline, err := channel.NewOffline(path)
	assert.Nil(t, err)

	conf := fastConfig()
	conf.ChainID = big.NewInt(1337)
	nonce := uint64(3)
	conf.Nonce = &nonce

	e, err := runEngine(t, conf, offline, signer, fundtest.Requests(3, eth(1000)))
	assert.Nil(t, err)
	assert.Nil(t, offline.Close())

	fd, err := os.Open(path)
	assert.Nil(t, err)
	defer fd.Close()

	var nonces []uint64
	scanner := bufio.NewScanner(fd)
	for scanner.Scan() {
		raw, err := hex.DecodeString(scanner.Text())
		assert.Nil(t, err)
		var tx types.Transaction
		assert.Nil(t, tx.UnmarshalBinary(raw))
		nonces = append(nonces, tx.Nonce())
	}
	assert.Equal(t, seq(3, 3), nonces)

	acc, _ := e.Account()
	if acc.Balance != nil {
		t.Fatalf("offline balance must be unknown, got %s", acc.Balance)
	}
	assert.Equal(t, 3, e.Summary().Transactions)
}

func TestOfflineRequiresChainIDAndNonce(t *testing.T) {
	signer := fundtest.SeqSigner(t, 1)
	chain := fundtest.NewChain(1, false)

	_, err := runEngine(t, fastConfig(), chain, signer, fundtest.Requests(1, eth(1)))
	assert.IsErr(t, errors.ErrInput, err)
	assert.Equal(t, 0, len(chain.Submitted()))
	assert.Equal(t, 0, chain.StateQueries())
}

func TestBalanceExceedingBatchIsSkipped(t *testing.T) {
	signer := fundtest.SeqSigner(t, 1)
	chain := onlineChain(t, signer, eth(2))

	reqs := []funding.Request{
		{Recipient: fundtest.SeqAddress(1), Amount: eth(1)},
		{Recipient: fundtest.SeqAddress(2), Amount: eth(5)},
		{Recipient: fundtest.SeqAddress(3), Amount: eth(1)},
		{Recipient: fundtest.SeqAddress(4), Amount: eth(1)},
	}
	e, err := runEngine(t, fastConfig(), chain, signer, reqs)
	assert.Nil(t, err)

	submitted := chain.Submitted()
	assert.Equal(t, 2, len(submitted))
	assert.Equal(t, fundtest.SeqAddress(1), *submitted[0].To)
	assert.Equal(t, fundtest.SeqAddress(3), *submitted[1].To)

	s := e.Summary()
	assert.Equal(t, 2, s.Skipped)
	assert.Equal(t, eth(6), s.SkippedAmount)
	acc, _ := e.Account()
	assert.Equal(t, amount.Amount{}, *acc.Balance)
}

func TestRefusedTransactionBurnsNonce(t *testing.T) {
	signer := fundtest.SeqSigner(t, 1)
	chain := onlineChain(t, signer, eth(100))
	chain.Refuse = func(tx *builder.Signed) error {
		if tx.Nonce == 11 {
			return errors.Wrap(errors.ErrRejected, "underpriced")
		}
		return nil
	}

	e, err := runEngine(t, fastConfig(), chain, signer, fundtest.Requests(3, eth(1)))
	assert.Nil(t, err)

	assert.Equal(t, []uint64{10, 11, 12}, chain.Nonces())
	assert.Equal(t, 1, chain.Refused())
	s := e.Summary()
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 2, s.Transactions)
	acc, _ := e.Account()
	assert.Equal(t, uint64(13), acc.Nonce)
	assert.Equal(t, eth(98), *acc.Balance)
}

func TestLoopRestartKeepsPosition(t *testing.T) {
	cases := map[string]func(){
		"network failure": func() {},
		"panic":           func() { panic("boom") },
	}

	for testName, fail := range cases {
		t.Run(testName, func(t *testing.T) {
			signer := fundtest.SeqSigner(t, 1)
			chain := onlineChain(t, signer, eth(100))
			var failed bool
			chain.Refuse = func(tx *builder.Signed) error {
				if tx.Nonce == 11 && !failed {
					failed = true
					fail()
					return errors.Wrap(errors.ErrNetwork, "connection reset")
				}
				return nil
			}

			e, err := runEngine(t, fastConfig(), chain, signer, fundtest.Requests(3, eth(1)))
			assert.Nil(t, err)

			assert.Equal(t, []uint64{10, 11, 11, 12}, chain.Nonces())
			submitted := chain.Submitted()
			assert.Equal(t, fundtest.SeqAddress(1), *submitted[2].To)
			s := e.Summary()
			assert.Equal(t, 0, s.Failed)
			assert.Equal(t, 3, s.Transactions)
		})
	}
}

type signerMock struct {
	mock.Mock
}

func (m *signerMock) Address() common.Address {
	return m.Called().Get(0).(common.Address)
}

func (m *signerMock) Sign(u builder.Unsigned) (*builder.Signed, error) {
	args := m.Called(u)
	s, _ := args.Get(0).(*builder.Signed)
	return s, args.Error(1)
}

func TestSigningFailureEndsRun(t *testing.T) {
	addr := fundtest.SeqAddress(50)
	signer := &signerMock{}
	signer.On("Address").Return(addr)
	signer.On("Sign", mock.Anything).Return(nil, errors.Wrap(errors.ErrSigning, "locked key")).Once()

	chain := onlineChain(t, signer, eth(100))
	_, err := runEngine(t, fastConfig(), chain, signer, fundtest.Requests(3, eth(1)))
	assert.IsErr(t, errors.ErrSigning, err)
	assert.Equal(t, 0, len(chain.Submitted()))
	signer.AssertExpectations(t)
}

func TestConnectRetries(t *testing.T) {
	signer := fundtest.SeqSigner(t, 1)
	chain := onlineChain(t, signer, eth(100))
	chain.FailQueries(4)

	_, err := runEngine(t, fastConfig(), chain, signer, fundtest.Requests(1, eth(1)))
	assert.Nil(t, err)
	assert.Equal(t, []uint64{10}, chain.Nonces())
	if n := chain.StateQueries(); n < 7 {
		t.Fatalf("want at least 7 state queries, got %d", n)
	}
}

func TestCompletionFailuresAreCounted(t *testing.T) {
	signer := fundtest.SeqSigner(t, 1)
	chain := onlineChain(t, signer, eth(100))
	chain.Manual = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for ctx.Err() == nil {
			time.Sleep(time.Millisecond)
			chain.Settle(1, errors.Wrap(errors.ErrRejected, "reverted"))
		}
	}()

	e, err := runEngine(t, fastConfig(), chain, signer, fundtest.Requests(4, eth(1)))
	assert.Nil(t, err)

	s := e.Summary()
	assert.Equal(t, 4, s.Failed)
	assert.Equal(t, 4, s.Transactions)
	acc, _ := e.Account()
	assert.Equal(t, eth(96), *acc.Balance)
}

func TestRunCancelled(t *testing.T) {
	signer := fundtest.SeqSigner(t, 1)
	chain := onlineChain(t, signer, eth(100))
	chain.Manual = true

	e, err := dispatch.New(fastConfig(), chain, signer, nil, nil)
	assert.Nil(t, err)
	assert.Nil(t, e.Load(context.Background(), funding.List(fundtest.Requests(2, eth(1)))))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Equal(t, context.DeadlineExceeded, e.Run(ctx))
	assert.Equal(t, 2, chain.Unresolved())
}

func TestLoadEmptySource(t *testing.T) {
	signer := fundtest.SeqSigner(t, 1)
	e, err := dispatch.New(fastConfig(), fundtest.NewChain(1, true), signer, nil, nil)
	assert.Nil(t, err)
	assert.IsErr(t, errors.ErrEmpty, e.Load(context.Background(), funding.List(nil)))
}

type recordingSink struct {
	mu     sync.Mutex
	events []stats.TxEvent
}

func (s *recordingSink) Emit(ctx context.Context, typ string, v interface{}) error {
	if ev, ok := v.(stats.TxEvent); ok {
		s.mu.Lock()
		s.events = append(s.events, ev)
		s.mu.Unlock()
	}
	return nil
}

func (s *recordingSink) Close() error { return nil }

func TestEventsFollowTransactionLifecycle(t *testing.T) {
	signer := fundtest.SeqSigner(t, 1)
	chain := onlineChain(t, signer, eth(100))
	sink := &recordingSink{}

	e, err := dispatch.New(fastConfig(), chain, signer, sink, nil)
	assert.Nil(t, err)
	assert.Nil(t, e.Load(context.Background(), funding.List(fundtest.Requests(1, eth(1)))))
	assert.Nil(t, e.Run(context.Background()))

	assert.Equal(t, 2, len(sink.events))
	assert.Equal(t, dispatch.Accepted.String(), sink.events[0].State)
	assert.Equal(t, dispatch.Settled.String(), sink.events[1].State)
	assert.Equal(t, uint64(10), sink.events[1].Nonce)
	assert.Equal(t, eth(1).String(), sink.events[1].Amount)
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]struct {
		Mutate  func(*dispatch.Config)
		WantErr *errors.Error
	}{
		"default": {
			Mutate: func(*dispatch.Config) {},
		},
		"no pending slot": {
			Mutate:  func(c *dispatch.Config) { c.MaxPending = 0 },
			WantErr: errors.ErrInput,
		},
		"zero batch": {
			Mutate: func(c *dispatch.Config) {
				c.Distributor = dispatch.DefaultDistributorConfig()
				c.Distributor.BatchSize = 0
			},
			WantErr: errors.ErrInput,
		},
		"invalid fees": {
			Mutate: func(c *dispatch.Config) {
				c.Builder.MaxPriorityFeePerGas = amount.NewAmountIn(100, amount.Gwei)
			},
			WantErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			conf := dispatch.DefaultConfig()
			tc.Mutate(&conf)
			err := conf.Validate()
			if tc.WantErr == nil {
				assert.Nil(t, err)
				return
			}
			assert.IsErr(t, tc.WantErr, err)
		})
	}
}
