package fundtest

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iov-one/fundtool/amount"
	"github.com/iov-one/fundtool/funding"
)

// ParseAddress takes an address in a human readable format and returns its
// binary representation. This function is a test helper that is using
// funding.ParseAddress function functionality.
func ParseAddress(t testing.TB, encodedAddress string) common.Address {
	t.Helper()

	addr, err := funding.ParseAddress(encodedAddress)
	if err != nil {
		t.Fatalf("cannot parse %q address: %s", encodedAddress, err)
	}
	return addr
}

// SeqAddress returns a deterministic address for given sequence number.
// Addresses never collide with precompiled contracts.
func SeqAddress(n uint64) common.Address {
	return common.BigToAddress(new(big.Int).SetUint64(n + 0x10000))
}

// ParseAmount returns an amount for given human readable value.
func ParseAmount(t testing.TB, raw string) amount.Amount {
	t.Helper()

	a, err := amount.Parse(raw)
	if err != nil {
		t.Fatalf("cannot parse %q amount: %s", raw, err)
	}
	return a
}

// Requests returns n transfer requests to sequential addresses, each of
// given value.
func Requests(n int, value amount.Amount) []funding.Request {
	reqs := make([]funding.Request, n)
	for i := range reqs {
		reqs[i] = funding.Request{
			Recipient: SeqAddress(uint64(i)),
			Amount:    value,
		}
	}
	return reqs
}
