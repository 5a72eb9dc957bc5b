/*
Package distributor provides the batching contract endpoint.

A distributor is deployed once and reused by later runs. Its address is
kept in a state file. When the chain can be queried, the code found at the
stored address is compared with the expected runtime code before reuse.
*/
package distributor

import (
	"bytes"
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/iov-one/fundtool/amount"
	"github.com/iov-one/fundtool/batch"
	"github.com/iov-one/fundtool/builder"
	"github.com/iov-one/fundtool/channel"
	"github.com/iov-one/fundtool/contracts"
	"github.com/iov-one/fundtool/errors"
	"github.com/tendermint/tendermint/libs/log"
	"golang.org/x/crypto/sha3"
)

// Endpoint is a usable distributor contract.
type Endpoint struct {
	Address      common.Address
	Capabilities batch.Capabilities
}

// Deployer finds or creates the distributor contract.
type Deployer struct {
	Builder  *builder.Builder
	Channel  channel.Channel
	Store    *StateStore
	Artifact *contracts.Artifact
	// Capabilities of the contract. Use batch.Capabilities{} for a
	// contract supporting only the generic encoding.
	Capabilities batch.Capabilities
	Logger       log.Logger
}

// Deployment is the contract creation transaction sent by Ensure.
type Deployment struct {
	Submission *channel.Submission
	Nonce      uint64
}

// Ensure returns the distributor endpoint. A stored contract is reused
// when its code matches the artifact or when the chain cannot be queried.
// Otherwise the contract is deployed using given nonce and the returned
// deployment is not nil. The caller must then consider the nonce consumed.
func (d *Deployer) Ensure(ctx context.Context, nonce uint64) (*Endpoint, *Deployment, error) {
	logger := d.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	logger = logger.With("module", "distributor")

	st, err := d.Store.Load()
	if err != nil {
		return nil, nil, err
	}
	addr, ok, err := st.Address()
	if err != nil {
		return nil, nil, err
	}
	if ok {
		reuse, err := d.verify(ctx, addr)
		if err != nil {
			return nil, nil, err
		}
		if reuse {
			logger.Info("reusing distributor", "address", addr.Hex())
			return &Endpoint{Address: addr, Capabilities: d.Capabilities}, nil, nil
		}
		logger.Info("stored distributor code mismatch, redeploying", "address", addr.Hex())
	}

	if d.Artifact == nil || len(d.Artifact.Bytecode) == 0 {
		return nil, nil, errors.Wrap(errors.ErrInput, "distributor artifact is required to deploy")
	}
	signed, err := d.Builder.Sign(d.Builder.Build(nil, amount.Amount{}, nonce, d.Artifact.Bytecode))
	if err != nil {
		return nil, nil, err
	}
	sub, err := d.Channel.Submit(ctx, signed)
	if err != nil {
		return nil, nil, errors.Wrap(err, "deploy distributor")
	}

	addr = crypto.CreateAddress(d.Builder.Sender(), nonce)
	logger.Info("deploying distributor", "tx", sub.ID().Hex(), "address", addr.Hex(), "nonce", nonce)

	if err := d.Store.Save(State{ContractAddr: addr.Hex()}); err != nil {
		return nil, nil, err
	}
	ep := &Endpoint{Address: addr, Capabilities: d.Capabilities}
	return ep, &Deployment{Submission: sub, Nonce: nonce}, nil
}

// verify returns true if the contract at given address can be reused.
func (d *Deployer) verify(ctx context.Context, addr common.Address) (bool, error) {
	state, ok := channel.StateOf(d.Channel)
	if !ok {
		return true, nil
	}
	if d.Artifact == nil {
		return false, errors.Wrap(errors.ErrInput, "distributor artifact is required to verify the stored contract")
	}
	code, err := state.CodeAt(ctx, addr)
	if err != nil {
		return false, err
	}
	return bytes.Equal(CodeHash(code), CodeHash(d.Artifact.Deployed)), nil
}

// CodeHash returns the keccak256 hash of given code.
func CodeHash(code []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(code)
	return h.Sum(nil)
}
