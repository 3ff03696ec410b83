package identity

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	libcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrNoIdentity = errors.New("neither a private key nor an address was configured")

// Identity provides the address that replayed calls are sent from.
type Identity interface {
	SignerAddress() libcommon.Address
}

// KeyIdentity derives the signer address from a secp256k1 private key.
type KeyIdentity struct {
	key  *ecdsa.PrivateKey
	addr libcommon.Address
}

var _ Identity = (*KeyIdentity)(nil)

// NewKeyIdentity parses a hex encoded private key, with or without 0x prefix.
func NewKeyIdentity(privateKeyStr string) (*KeyIdentity, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyStr, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &KeyIdentity{
		key:  privateKey,
		addr: crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

func (id *KeyIdentity) SignerAddress() libcommon.Address {
	return id.addr
}

func (id *KeyIdentity) PrivateKey() *ecdsa.PrivateKey {
	return id.key
}

// AddressIdentity is a watch-only identity for plans that are signed elsewhere.
type AddressIdentity libcommon.Address

var _ Identity = AddressIdentity{}

func (id AddressIdentity) SignerAddress() libcommon.Address {
	return libcommon.Address(id)
}

// New returns a KeyIdentity when a private key is given and falls back to a
// bare address otherwise.
func New(privateKey string, address string) (Identity, error) {
	if privateKey != "" {
		return NewKeyIdentity(privateKey)
	}
	if address == "" {
		return nil, ErrNoIdentity
	}
	if !libcommon.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid signer address %q", address)
	}
	return AddressIdentity(libcommon.HexToAddress(address)), nil
}
