package builder

import (
	"crypto/ecdsa"
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/iov-one/fundtool/errors"
)

// KeySigner signs transactions with a secp256k1 private key held in memory.
type KeySigner struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

var _ Signer = (*KeySigner)(nil)

// NewKeySigner returns a signer using given private key.
func NewKeySigner(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{
		key:  key,
		addr: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// ParseKeySigner returns a signer using a hex encoded private key. The 0x
// prefix is optional.
func ParseKeySigner(privHex string) (*KeySigner, error) {
	privHex = strings.TrimPrefix(strings.TrimSpace(privHex), "0x")
	if privHex == "" {
		return nil, errors.Wrap(errors.ErrEmpty, "private key")
	}
	key, err := crypto.HexToECDSA(privHex)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "private key: %s", err)
	}
	return NewKeySigner(key), nil
}

// GenerateKeySigner returns a signer using a freshly generated private key.
func GenerateKeySigner() (*KeySigner, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrSigning, "generate key: %s", err)
	}
	return NewKeySigner(key), nil
}

// Address returns the address of the key.
func (s *KeySigner) Address() common.Address {
	return s.addr
}

// PrivateKeyHex returns the hex encoded private key. Use it only to let the
// user store a generated key.
func (s *KeySigner) PrivateKeyHex() string {
	return hex.EncodeToString(crypto.FromECDSA(s.key))
}

// Sign implements Signer interface. It creates a dynamic fee (EIP-1559)
// transaction.
func (s *KeySigner) Sign(u Unsigned) (*Signed, error) {
	if u.ChainID == nil || u.ChainID.Sign() <= 0 {
		return nil, errors.Wrap(errors.ErrSigning, "chain id is required")
	}
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   u.ChainID,
		Nonce:     u.Nonce,
		GasTipCap: u.GasTipCap.Big(),
		GasFeeCap: u.GasFeeCap.Big(),
		Gas:       u.Gas,
		To:        u.To,
		Value:     u.Value.Big(),
		Data:      u.Data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(u.ChainID), s.key)
	if err != nil {
		return nil, errors.Wrap(errors.ErrSigning, err.Error())
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrSigning, "serialize: %s", err)
	}
	return &Signed{
		Nonce: u.Nonce,
		Hash:  signed.Hash(),
		Raw:   raw,
		To:    u.To,
		Value: u.Value,
	}, nil
}
