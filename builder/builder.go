/*
Package builder creates the transactions of a funding run.

A Builder turns a destination, a value, a nonce and optional call data into
an Unsigned EIP-1559 transaction descriptor with the configured gas and fee
ceilings. Signing is delegated to a Signer.
*/
package builder

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iov-one/fundtool/amount"
	"github.com/iov-one/fundtool/errors"
)

// Config holds gas and fee ceilings used for every built transaction.
type Config struct {
	// TransferGas is the gas ceiling of a plain value transfer.
	TransferGas uint64
	// BatchGas is the gas ceiling of a distributor call.
	BatchGas uint64
	// BatchGasPerTransfer, when not zero, replaces BatchGas with
	// BatchGasBase + n*BatchGasPerTransfer for a call of n transfers.
	BatchGasPerTransfer uint64
	BatchGasBase        uint64
	// DeployGas is the gas ceiling of a contract creation.
	DeployGas uint64
	// MaxFeePerGas is the base fee plus priority fee ceiling.
	MaxFeePerGas amount.Amount
	// MaxPriorityFeePerGas is the priority fee ceiling.
	MaxPriorityFeePerGas amount.Amount
}

// DefaultConfig returns the configuration used when nothing is customized.
func DefaultConfig() Config {
	return Config{
		TransferGas:          50000,
		BatchGas:             500000,
		BatchGasBase:         50000,
		DeployGas:            500000,
		MaxFeePerGas:         amount.NewAmountIn(20, amount.Gwei),
		MaxPriorityFeePerGas: amount.NewAmount(1200000000),
	}
}

// Validate returns an error if the configuration cannot be used.
func (c Config) Validate() error {
	if c.TransferGas == 0 || c.BatchGas == 0 || c.DeployGas == 0 {
		return errors.Wrap(errors.ErrInput, "gas ceiling must be greater than zero")
	}
	if c.MaxFeePerGas.IsZero() {
		return errors.Wrap(errors.ErrInput, "max fee per gas must be greater than zero")
	}
	if c.MaxPriorityFeePerGas.Compare(c.MaxFeePerGas) > 0 {
		return errors.Wrapf(errors.ErrInput, "max priority fee %s exceeds max fee %s",
			c.MaxPriorityFeePerGas.InUnit(amount.Gwei), c.MaxFeePerGas.InUnit(amount.Gwei))
	}
	return nil
}

// Unsigned is a transaction descriptor ready to be signed.
type Unsigned struct {
	ChainID   *big.Int
	Nonce     uint64
	Gas       uint64
	GasTipCap amount.Amount
	GasFeeCap amount.Amount
	From      common.Address
	// To is nil for a contract creation.
	To    *common.Address
	Value amount.Amount
	Data  []byte
}

// Signed is a signed, serialized transaction.
type Signed struct {
	Nonce uint64
	// Hash identifies the transaction. It is derived from the
	// serialized payload.
	Hash  common.Hash
	Raw   []byte
	To    *common.Address
	Value amount.Amount
}

// Signer signs transactions on behalf of a single account.
type Signer interface {
	Address() common.Address
	Sign(Unsigned) (*Signed, error)
}

// Builder creates transactions of a single sender on a single chain.
type Builder struct {
	cfg     Config
	signer  Signer
	chainID *big.Int
}

// New returns a builder for transactions signed by given signer.
func New(cfg Config, signer Signer, chainID *big.Int) *Builder {
	return &Builder{
		cfg:     cfg,
		signer:  signer,
		chainID: new(big.Int).Set(chainID),
	}
}

// Sender returns the address of the account transactions are sent from.
func (b *Builder) Sender() common.Address {
	return b.signer.Address()
}

// Build returns a transaction descriptor. A nil destination creates a
// contract, data is then the contract creation code. A transaction with
// call data to an existing account is a distributor call.
func (b *Builder) Build(to *common.Address, value amount.Amount, nonce uint64, data []byte) Unsigned {
	return b.build(to, value, nonce, data, 0)
}

// BuildBatch returns a distributor call descriptor carrying given number of
// transfers.
func (b *Builder) BuildBatch(to common.Address, value amount.Amount, nonce uint64, data []byte, transfers int) Unsigned {
	return b.build(&to, value, nonce, data, transfers)
}

func (b *Builder) build(to *common.Address, value amount.Amount, nonce uint64, data []byte, transfers int) Unsigned {
	var gas uint64
	switch {
	case to == nil:
		gas = b.cfg.DeployGas
	case len(data) > 0 && transfers > 0 && b.cfg.BatchGasPerTransfer > 0:
		gas = b.cfg.BatchGasBase + b.cfg.BatchGasPerTransfer*uint64(transfers)
	case len(data) > 0:
		gas = b.cfg.BatchGas
	default:
		gas = b.cfg.TransferGas
	}

	var dest *common.Address
	if to != nil {
		addr := *to
		dest = &addr
	}
	return Unsigned{
		ChainID:   new(big.Int).Set(b.chainID),
		Nonce:     nonce,
		Gas:       gas,
		GasTipCap: b.cfg.MaxPriorityFeePerGas,
		GasFeeCap: b.cfg.MaxFeePerGas,
		From:      b.signer.Address(),
		To:        dest,
		Value:     value,
		Data:      data,
	}
}

// Sign signs given descriptor. A signing failure is never transient and the
// returned error is always ErrSigning.
func (b *Builder) Sign(u Unsigned) (*Signed, error) {
	if u.From != b.signer.Address() {
		return nil, errors.Wrapf(errors.ErrSigning, "sender %s does not match signer %s", u.From.Hex(), b.signer.Address().Hex())
	}
	s, err := b.signer.Sign(u)
	if err != nil {
		if errors.ErrSigning.Is(err) {
			return nil, err
		}
		return nil, errors.Wrap(errors.ErrSigning, err.Error())
	}
	return s, nil
}
