package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	libcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

type DiffKind uint8

const (
	DiffSame DiffKind = iota
	DiffBorn
	DiffDied
	DiffChanged
)

func (k DiffKind) String() string {
	switch k {
	case DiffSame:
		return "same"
	case DiffBorn:
		return "born"
	case DiffDied:
		return "died"
	case DiffChanged:
		return "changed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Diff is a single field of a trace stateDiff. On the wire it is one of
// "=", {"+": v}, {"-": v} or {"*": {"from": a, "to": b}}.
type Diff[T any] struct {
	Kind DiffKind
	From T
	To   T
}

type changedType[T any] struct {
	From *T `json:"from"`
	To   *T `json:"to"`
}

// Changed builds a diff that moved from `from` to `to`.
func Changed[T any](from, to T) Diff[T] {
	return Diff[T]{Kind: DiffChanged, From: from, To: to}
}

func (d Diff[T]) IsChanged() bool {
	return d.Kind == DiffChanged
}

func (d *Diff[T]) UnmarshalJSON(data []byte) error {
	input := bytes.TrimSpace(data)
	if bytes.Equal(input, []byte(`"="`)) || bytes.Equal(input, []byte("null")) {
		*d = Diff[T]{Kind: DiffSame}
		return nil
	}

	var dec struct {
		Born    *T              `json:"+"`
		Died    *T              `json:"-,"`
		Changed *changedType[T] `json:"*"`
	}
	if err := json.Unmarshal(input, &dec); err != nil {
		return fmt.Errorf("invalid state diff value: %w", err)
	}

	switch {
	case dec.Changed != nil:
		if dec.Changed.From == nil || dec.Changed.To == nil {
			return errors.New("invalid state diff value: changed entry missing from/to")
		}
		*d = Diff[T]{Kind: DiffChanged, From: *dec.Changed.From, To: *dec.Changed.To}
	case dec.Born != nil:
		*d = Diff[T]{Kind: DiffBorn, To: *dec.Born}
	case dec.Died != nil:
		*d = Diff[T]{Kind: DiffDied, From: *dec.Died}
	default:
		return fmt.Errorf("invalid state diff value: %s", string(input))
	}
	return nil
}

func (d Diff[T]) MarshalJSON() ([]byte, error) {
	from, to := diffValue(&d.From), diffValue(&d.To)
	switch d.Kind {
	case DiffSame:
		return []byte(`"="`), nil
	case DiffBorn:
		return json.Marshal(map[string]any{"+": to})
	case DiffDied:
		return json.Marshal(map[string]any{"-": from})
	case DiffChanged:
		return json.Marshal(map[string]any{"*": map[string]any{"from": from, "to": to}})
	default:
		return nil, fmt.Errorf("invalid diff kind: %d", d.Kind)
	}
}

// diffValue encodes balances as hex quantities, as the node does.
func diffValue[T any](v *T) any {
	if balance, ok := any(v).(*uint256.Int); ok {
		return (*hexutil.Big)(balance.ToBig())
	}
	return v
}

// AccountDiff is the per-account entry of a trace stateDiff.
type AccountDiff struct {
	Balance Diff[uint256.Int]                       `json:"balance"`
	Nonce   Diff[hexutil.Uint64]                    `json:"nonce"`
	Code    Diff[hexutil.Bytes]                     `json:"code"`
	Storage map[libcommon.Hash]Diff[libcommon.Hash] `json:"storage,omitempty"`
}

type StateDiff map[libcommon.Address]*AccountDiff

// Get returns the diff recorded for addr, if any.
func (sd StateDiff) Get(addr libcommon.Address) (*AccountDiff, bool) {
	if sd == nil {
		return nil, false
	}
	diff, ok := sd[addr]
	return diff, ok && diff != nil
}

// Changeset folds the post-execution values of the diff into a changeset.
func (sd StateDiff) Changeset() *Changeset {
	changeset := NewChangeset()
	for addr, diff := range sd {
		if diff == nil {
			continue
		}
		if diff.Balance.Kind == DiffDied {
			changeset.DeletedAccounts[addr] = struct{}{}
			continue
		}
		if diff.Balance.Kind == DiffBorn || diff.Balance.Kind == DiffChanged {
			changeset.BalanceChanges[addr] = new(uint256.Int).Set(&diff.Balance.To)
		}
		if diff.Nonce.Kind == DiffBorn || diff.Nonce.Kind == DiffChanged {
			changeset.NonceChanges[addr] = uint64(diff.Nonce.To)
		}
		if diff.Code.Kind == DiffBorn || diff.Code.Kind == DiffChanged {
			changeset.CodeChanges[addr] = libcommon.CopyBytes(diff.Code.To)
		}
		for key, slot := range diff.Storage {
			if slot.Kind == DiffSame {
				continue
			}
			if _, ok := changeset.StorageChanges[addr]; !ok {
				changeset.StorageChanges[addr] = make(map[libcommon.Hash]libcommon.Hash)
			}
			changeset.StorageChanges[addr][key] = slot.To
		}
	}
	return changeset
}
