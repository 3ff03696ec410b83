package types

import (
	"encoding/json"
	"fmt"

	libcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// Changeset is the post-state observed by a trace, keyed by account.
type Changeset struct {
	DeletedAccounts map[libcommon.Address]struct{}                           `json:"deletedAccounts"`
	BalanceChanges  map[libcommon.Address]*uint256.Int                       `json:"balanceChanges"`
	NonceChanges    map[libcommon.Address]uint64                             `json:"nonceChanges"`
	CodeChanges     map[libcommon.Address][]byte                             `json:"codeChanges"`
	StorageChanges  map[libcommon.Address]map[libcommon.Hash]libcommon.Hash `json:"storageChanges"`
}

func NewChangeset() *Changeset {
	return &Changeset{
		DeletedAccounts: make(map[libcommon.Address]struct{}),
		BalanceChanges:  make(map[libcommon.Address]*uint256.Int),
		NonceChanges:    make(map[libcommon.Address]uint64),
		CodeChanges:     make(map[libcommon.Address][]byte),
		StorageChanges:  make(map[libcommon.Address]map[libcommon.Hash]libcommon.Hash),
	}
}

func (c *Changeset) IsEmpty() bool {
	return len(c.DeletedAccounts) == 0 &&
		len(c.BalanceChanges) == 0 &&
		len(c.NonceChanges) == 0 &&
		len(c.CodeChanges) == 0 &&
		len(c.StorageChanges) == 0
}

// MarshalJSON writes balances, nonces and code in the node's hex encoding.
func (c Changeset) MarshalJSON() ([]byte, error) {
	type Changeset struct {
		DeletedAccounts map[libcommon.Address]struct{}                           `json:"deletedAccounts"`
		BalanceChanges  map[libcommon.Address]*hexutil.Big                       `json:"balanceChanges"`
		NonceChanges    map[libcommon.Address]hexutil.Uint64                     `json:"nonceChanges"`
		CodeChanges     map[libcommon.Address]hexutil.Bytes                      `json:"codeChanges"`
		StorageChanges  map[libcommon.Address]map[libcommon.Hash]libcommon.Hash `json:"storageChanges"`
	}
	enc := Changeset{
		DeletedAccounts: c.DeletedAccounts,
		BalanceChanges:  make(map[libcommon.Address]*hexutil.Big, len(c.BalanceChanges)),
		NonceChanges:    make(map[libcommon.Address]hexutil.Uint64, len(c.NonceChanges)),
		CodeChanges:     make(map[libcommon.Address]hexutil.Bytes, len(c.CodeChanges)),
		StorageChanges:  c.StorageChanges,
	}
	for addr, balance := range c.BalanceChanges {
		if balance != nil {
			enc.BalanceChanges[addr] = (*hexutil.Big)(balance.ToBig())
		}
	}
	for addr, nonce := range c.NonceChanges {
		enc.NonceChanges[addr] = hexutil.Uint64(nonce)
	}
	for addr, code := range c.CodeChanges {
		enc.CodeChanges[addr] = code
	}
	return json.Marshal(&enc)
}

func (c *Changeset) UnmarshalJSON(input []byte) error {
	type Changeset struct {
		DeletedAccounts map[libcommon.Address]struct{}                           `json:"deletedAccounts"`
		BalanceChanges  map[libcommon.Address]*hexutil.Big                       `json:"balanceChanges"`
		NonceChanges    map[libcommon.Address]hexutil.Uint64                     `json:"nonceChanges"`
		CodeChanges     map[libcommon.Address]hexutil.Bytes                      `json:"codeChanges"`
		StorageChanges  map[libcommon.Address]map[libcommon.Hash]libcommon.Hash `json:"storageChanges"`
	}
	var dec Changeset
	if err := json.Unmarshal(input, &dec); err != nil {
		return err
	}
	*c = *NewChangeset()
	if dec.DeletedAccounts != nil {
		c.DeletedAccounts = dec.DeletedAccounts
	}
	if dec.StorageChanges != nil {
		c.StorageChanges = dec.StorageChanges
	}
	for addr, balance := range dec.BalanceChanges {
		if balance == nil {
			continue
		}
		value, overflow := uint256.FromBig(balance.ToInt())
		if overflow {
			return fmt.Errorf("balance of %s overflows 256 bits", addr)
		}
		c.BalanceChanges[addr] = value
	}
	for addr, nonce := range dec.NonceChanges {
		c.NonceChanges[addr] = uint64(nonce)
	}
	for addr, code := range dec.CodeChanges {
		c.CodeChanges[addr] = code
	}
	return nil
}
