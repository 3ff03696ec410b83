package types

import (
	libcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ReplayableCall is a transaction request rebuilt from a trace entry. Gas,
// GasPrice and Nonce are left for the submitter to fill in. A nil To means
// contract creation.
type ReplayableCall struct {
	From     libcommon.Address  `json:"from"`
	To       *libcommon.Address `json:"to,omitempty"`
	Data     hexutil.Bytes      `json:"data"`
	Value    *hexutil.Big       `json:"value,omitempty"`
	Gas      *hexutil.Uint64    `json:"gas,omitempty"`
	GasPrice *hexutil.Big       `json:"gasPrice,omitempty"`
	Nonce    *hexutil.Uint64    `json:"nonce,omitempty"`
}

func (c *ReplayableCall) IsCreate() bool {
	return c.To == nil
}

// SkippedEntry records a trace entry that could not be turned into a call.
type SkippedEntry struct {
	TraceAddress []uint64 `json:"traceAddress"`
	Type         string   `json:"type"`
	Reason       string   `json:"reason"`
}

type Batch struct {
	Calls   []ReplayableCall `json:"calls"`
	Skipped []SkippedEntry   `json:"skipped,omitempty"`
}

// Complete reports whether every entry considered for the batch was rewritten.
func (b *Batch) Complete() bool {
	return len(b.Skipped) == 0
}

// CallPlan is an ordered list of batches: batch 0 holds the root call alone,
// batch 1 (if present) the first-level subcalls.
type CallPlan []Batch

// Len returns the total number of calls across all batches.
func (p CallPlan) Len() int {
	n := 0
	for i := range p {
		n += len(p[i].Calls)
	}
	return n
}

func (p CallPlan) SkippedCount() int {
	n := 0
	for i := range p {
		n += len(p[i].Skipped)
	}
	return n
}

func (p CallPlan) Complete() bool {
	for i := range p {
		if !p[i].Complete() {
			return false
		}
	}
	return true
}
