package replayapi

import (
	libcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sieniven/xlayer-replay/simulate"
	"github.com/sieniven/xlayer-replay/types"
)

type SimulationResult struct {
	Hash      libcommon.Hash    `json:"hash"`
	Sender    libcommon.Address `json:"sender"`
	Block     rpc.BlockNumber   `json:"block"`
	Profit    *hexutil.Big      `json:"profit"`
	Plan      types.CallPlan    `json:"plan"`
	Calls     hexutil.Uint      `json:"calls"`
	Skipped   hexutil.Uint      `json:"skipped"`
	Complete  bool              `json:"complete"`
	Changeset *types.Changeset  `json:"changeset,omitempty"`
}

func newSimulationResult(res *simulate.Result) *SimulationResult {
	if res == nil {
		return nil
	}
	return &SimulationResult{
		Hash:      res.Tx.Hash,
		Sender:    res.Tx.From,
		Block:     res.Block,
		Profit:    (*hexutil.Big)(res.Profit.ToBig()),
		Plan:      res.Plan,
		Calls:     hexutil.Uint(res.Plan.Len()),
		Skipped:   hexutil.Uint(res.Plan.SkippedCount()),
		Complete:  res.Plan.Complete(),
		Changeset: res.Changeset,
	}
}

type ConfigResult struct {
	Signer          libcommon.Address `json:"signer"`
	Substitute      libcommon.Address `json:"substitute"`
	Rewind          bool              `json:"rewind"`
	MaxSkippedRatio float64           `json:"maxSkippedRatio"`
}
