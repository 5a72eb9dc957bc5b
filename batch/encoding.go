package batch

import (
	"math/big"

	"github.com/iov-one/fundtool/amount"
	"github.com/iov-one/fundtool/contracts"
	"github.com/iov-one/fundtool/errors"
)

// Encoding is a distributor call data layout.
type Encoding int

const (
	// Generic carries a full precision 256 bit value per recipient.
	Generic Encoding = iota
	// EqualSplit carries only the recipients, the call value is split
	// equally between them.
	EqualSplit
	// WholeUnit carries a 64 bit count of ether per recipient.
	WholeUnit
	// FineUnit carries a 64 bit count of gwei per recipient.
	FineUnit
)

func (e Encoding) String() string {
	switch e {
	case Generic:
		return "generic"
	case EqualSplit:
		return "equal-split"
	case WholeUnit:
		return "whole-unit"
	case FineUnit:
		return "fine-unit"
	}
	return "unknown"
}

// method returns the distributor method implementing the encoding.
func (e Encoding) method() string {
	switch e {
	case EqualSplit:
		return contracts.MethodDistributeEqual
	case WholeUnit:
		return contracts.MethodDistributeEther
	case FineUnit:
		return contracts.MethodDistributeGwei
	}
	return contracts.MethodDistribute
}

// Capabilities declares which compact encodings a distributor endpoint
// supports. The generic encoding is always supported.
type Capabilities struct {
	EqualSplit bool
	WholeUnit  bool
	FineUnit   bool
}

// AllCapabilities returns capabilities of the distributor contract shipped
// with this module.
func AllCapabilities() Capabilities {
	return Capabilities{EqualSplit: true, WholeUnit: true, FineUnit: true}
}

// SelectEncoding returns the most compact encoding able to represent all
// given amounts exactly. Rules are tested in order and the first match wins:
//   1. all amounts are identical: EqualSplit
//   2. all amounts are whole ether counts that fit 64 bits: WholeUnit
//   3. all amounts are whole gwei counts that fit 64 bits: FineUnit
//   4. otherwise: Generic
// Encodings not supported by caps are skipped.
//
// This is a pure function of the amounts.
func SelectEncoding(amounts []amount.Amount, caps Capabilities) Encoding {
	if len(amounts) == 0 {
		return Generic
	}
	if caps.EqualSplit && allEqual(amounts) {
		return EqualSplit
	}
	if caps.WholeUnit && allCompact(amounts, amount.Ether) {
		return WholeUnit
	}
	if caps.FineUnit && allCompact(amounts, amount.Gwei) {
		return FineUnit
	}
	return Generic
}

func allEqual(amounts []amount.Amount) bool {
	for _, a := range amounts[1:] {
		if !a.Equals(amounts[0]) {
			return false
		}
	}
	return true
}

// allCompact returns true if every amount is an exact multiple of given unit
// and the multiple fits in 64 bits.
func allCompact(amounts []amount.Amount, u amount.Unit) bool {
	for _, a := range amounts {
		if _, ok := compact(a, u); !ok {
			return false
		}
	}
	return true
}

func compact(a amount.Amount, u amount.Unit) (uint64, bool) {
	q, exact := a.In(u)
	if !exact {
		return 0, false
	}
	return q.Uint64()
}

// Call is a distributor contract call transferring a batch.
type Call struct {
	Encoding Encoding
	// Data is the ABI encoded call data.
	Data []byte
	// Value is the amount that must be sent with the call, which is the
	// batch total.
	Value amount.Amount
}

// Prepare selects the encoding for given batch and encodes the distributor
// call.
func Prepare(b Batch, caps Capabilities) (*Call, error) {
	if len(b) == 0 {
		return nil, errors.Wrap(errors.ErrEmpty, "batch")
	}
	total, err := b.Total()
	if err != nil {
		return nil, errors.Wrap(err, "batch total")
	}
	enc := SelectEncoding(b.Amounts(), caps)
	data, err := Encode(b, enc)
	if err != nil {
		return nil, err
	}
	return &Call{Encoding: enc, Data: data, Value: total}, nil
}

var distributorABI = contracts.DistributorABI()

// Encode returns the distributor call data of the batch using given
// encoding. The output is deterministic. An error is returned if the batch
// amounts cannot be expressed with the encoding.
func Encode(b Batch, enc Encoding) ([]byte, error) {
	recipients := b.Recipients()

	var args []interface{}
	switch enc {
	case EqualSplit:
		if len(b) == 0 || !allEqual(b.Amounts()) {
			return nil, errors.Wrapf(errors.ErrInvalidAmount, "amounts cannot use %s encoding", enc)
		}
		args = []interface{}{recipients}
	case WholeUnit, FineUnit:
		unit := amount.Ether
		if enc == FineUnit {
			unit = amount.Gwei
		}
		values := make([]uint64, len(b))
		for i, r := range b {
			v, ok := compact(r.Amount, unit)
			if !ok {
				return nil, errors.Wrapf(errors.ErrInvalidAmount, "amount #%d cannot use %s encoding", i, enc)
			}
			values[i] = v
		}
		args = []interface{}{recipients, values}
	case Generic:
		values := make([]*big.Int, len(b))
		for i, r := range b {
			values[i] = r.Amount.Big()
		}
		args = []interface{}{recipients, values}
	default:
		return nil, errors.Wrapf(errors.ErrInput, "unknown encoding %d", enc)
	}

	data, err := distributorABI.Pack(enc.method(), args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "pack %s call: %s", enc.method(), err)
	}
	return data, nil
}
