package types

import (
	libcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Trace entry types as reported by the parity-style trace module.
const (
	CALL_TYP    = "call"
	CREATE_TYP  = "create"
	SUICIDE_TYP = "suicide"
	REWARD_TYP  = "reward"
)

// Call types carried in the action of a call entry.
const (
	CALLCODE_TYP     = "callcode"
	DELEGATECALL_TYP = "delegatecall"
	STATICCALL_TYP   = "staticcall"
)

type TraceKind string

const (
	TraceKindTrace     TraceKind = "trace"
	TraceKindStateDiff TraceKind = "stateDiff"
	TraceKindVmTrace   TraceKind = "vmTrace"
)

// TraceAction is the superset of the call, create, suicide and reward actions.
type TraceAction struct {
	CallType      string             `json:"callType,omitempty"`
	From          libcommon.Address  `json:"from"`
	To            *libcommon.Address `json:"to,omitempty"`
	Value         *hexutil.Big       `json:"value,omitempty"`
	Gas           hexutil.Uint64     `json:"gas"`
	Input         hexutil.Bytes      `json:"input,omitempty"`
	Init          hexutil.Bytes      `json:"init,omitempty"`
	Address       *libcommon.Address `json:"address,omitempty"`
	RefundAddress *libcommon.Address `json:"refundAddress,omitempty"`
	Balance       *hexutil.Big       `json:"balance,omitempty"`
}

type TraceResult struct {
	GasUsed hexutil.Uint64     `json:"gasUsed"`
	Output  hexutil.Bytes      `json:"output,omitempty"`
	Code    hexutil.Bytes      `json:"code,omitempty"`
	Address *libcommon.Address `json:"address,omitempty"`
}

// TraceEntry is one node of the call tree. TraceAddress is the path of child
// indices from the root; the root itself has an empty path.
type TraceEntry struct {
	Type         string       `json:"type"`
	Action       TraceAction  `json:"action"`
	Result       *TraceResult `json:"result,omitempty"`
	Error        string       `json:"error,omitempty"`
	Subtraces    uint64       `json:"subtraces"`
	TraceAddress []uint64     `json:"traceAddress"`
}

func (e *TraceEntry) IsRoot() bool {
	return len(e.TraceAddress) == 0
}

// Depth returns the frame depth of the entry. The root call has depth 1.
func (e *TraceEntry) Depth() uint64 {
	return uint64(len(e.TraceAddress)) + 1
}

// BlockTrace is the result of a trace_call request. Trace and StateDiff are
// nil when the corresponding trace kind was not requested or not returned.
type BlockTrace struct {
	Output    hexutil.Bytes `json:"output"`
	Trace     []TraceEntry  `json:"trace"`
	StateDiff StateDiff     `json:"stateDiff"`
}
