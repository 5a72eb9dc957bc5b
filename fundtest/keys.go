package fundtest

import (
	"crypto/ecdsa"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/iov-one/fundtool/builder"
)

// NewKey returns a freshly generated private key.
func NewKey() *ecdsa.PrivateKey {
	key, err := crypto.GenerateKey()
	if err != nil {
		panic(fmt.Sprintf("cannot generate key: %s", err))
	}
	return key
}

// NewSigner returns a signer using a freshly generated private key.
func NewSigner() *builder.KeySigner {
	return builder.NewKeySigner(NewKey())
}

// SeqKey returns a deterministic private key for given sequence number. The
// same number always produces the same key.
func SeqKey(t testing.TB, n uint64) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.ToECDSA(crypto.Keccak256([]byte(fmt.Sprintf("fundtest-%d", n))))
	if err != nil {
		t.Fatalf("cannot create key %d: %s", n, err)
	}
	return key
}

// SeqSigner returns a deterministic signer for given sequence number.
func SeqSigner(t testing.TB, n uint64) *builder.KeySigner {
	t.Helper()
	return builder.NewKeySigner(SeqKey(t, n))
}
