package simulate

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	libcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sieniven/xlayer-replay/types"
)

// Substituter retargets self-references to `from` inside call data to `to`.
type Substituter interface {
	Substitute(data []byte, from, to libcommon.Address) []byte
}

type SubstituterFunc func(data []byte, from, to libcommon.Address) []byte

func (f SubstituterFunc) Substitute(data []byte, from, to libcommon.Address) []byte {
	return f(data, from, to)
}

// HexSubstituter replaces every occurrence of the lowercase hex encoding of
// `from` in the hex encoding of the payload. It is not ABI aware: matches are
// nibble aligned rather than byte or word aligned, unrelated bytes that happen
// to equal the address are replaced too, and packed or offset encodings are
// missed.
type HexSubstituter struct{}

func (HexSubstituter) Substitute(data []byte, from, to libcommon.Address) []byte {
	if len(data) == 0 || from == to {
		return libcommon.CopyBytes(data)
	}

	encoded := hex.EncodeToString(data)
	replaced := strings.ReplaceAll(encoded, hex.EncodeToString(from.Bytes()), hex.EncodeToString(to.Bytes()))
	if replaced == encoded {
		return libcommon.CopyBytes(data)
	}

	// Replacement keeps the length, so the result is always valid hex.
	out, err := hex.DecodeString(replaced)
	if err != nil {
		return libcommon.CopyBytes(data)
	}
	return out
}

// Outcome is the result of rewriting a single trace entry: either a call, or
// the reason the entry was skipped.
type Outcome struct {
	Call   *types.ReplayableCall
	Reason string
}

func (o Outcome) Translated() bool {
	return o.Call != nil
}

// Rewriter turns trace entries into calls sent by the signer, with the
// original caller's address remapped to the substitute address.
type Rewriter struct {
	signer      libcommon.Address
	substitute  libcommon.Address
	substituter Substituter
}

// NewRewriter creates a rewriter replaying as signer. Self-references are
// remapped to contract when set, otherwise to the signer itself.
func NewRewriter(signer libcommon.Address, contract *libcommon.Address, substituter Substituter) *Rewriter {
	substitute := signer
	if contract != nil {
		substitute = *contract
	}
	if substituter == nil {
		substituter = HexSubstituter{}
	}
	return &Rewriter{
		signer:      signer,
		substitute:  substitute,
		substituter: substituter,
	}
}

func (rw *Rewriter) Signer() libcommon.Address {
	return rw.signer
}

func (rw *Rewriter) Substitute() libcommon.Address {
	return rw.substitute
}

func (rw *Rewriter) Rewrite(entry *types.TraceEntry) Outcome {
	action := &entry.Action
	switch entry.Type {
	case types.CALL_TYP:
		if action.To == nil {
			return Outcome{Reason: "call without callee"}
		}
		to := *action.To
		return Outcome{Call: &types.ReplayableCall{
			From:  rw.signer,
			To:    &to,
			Data:  rw.substituter.Substitute(action.Input, action.From, rw.substitute),
			Value: copyValue(action.Value),
		}}
	case types.CREATE_TYP:
		return Outcome{Call: &types.ReplayableCall{
			From:  rw.signer,
			Data:  rw.substituter.Substitute(action.Init, action.From, rw.substitute),
			Value: copyValue(action.Value),
		}}
	default:
		return Outcome{Reason: fmt.Sprintf("unsupported trace type %q", entry.Type)}
	}
}

func copyValue(v *hexutil.Big) *hexutil.Big {
	value := new(big.Int)
	if v != nil {
		value.Set(v.ToInt())
	}
	return (*hexutil.Big)(value)
}
