package types

import (
	"encoding/json"
	"errors"

	libcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sieniven/xlayer-replay/simulate"
	replayTypes "github.com/sieniven/xlayer-replay/types"
)

// PlanMessage is the replay plan published for a profitable transaction.
type PlanMessage struct {
	Hash      libcommon.Hash         `json:"hash"`
	Sender    libcommon.Address      `json:"sender"`
	Block     rpc.BlockNumber        `json:"block"`
	Profit    *hexutil.Big           `json:"profit"`
	Plan      replayTypes.CallPlan   `json:"plan"`
	Calls     int                    `json:"calls"`
	Skipped   int                    `json:"skipped"`
	Complete  bool                   `json:"complete"`
	Changeset *replayTypes.Changeset `json:"changeset"`
}

func ToPlanMessage(res *simulate.Result) (PlanMessage, error) {
	if res == nil || res.Tx == nil || res.Profit == nil {
		return PlanMessage{}, errors.New("incomplete simulation result")
	}
	return PlanMessage{
		Hash:      res.Tx.Hash,
		Sender:    res.Tx.From,
		Block:     res.Block,
		Profit:    (*hexutil.Big)(res.Profit.ToBig()),
		Plan:      res.Plan,
		Calls:     res.Plan.Len(),
		Skipped:   res.Plan.SkippedCount(),
		Complete:  res.Plan.Complete(),
		Changeset: res.Changeset,
	}, nil
}

func (msg PlanMessage) MarshalJSON() ([]byte, error) {
	type PlanMessage struct {
		Hash      libcommon.Hash         `json:"hash"`
		Sender    libcommon.Address      `json:"sender"`
		Block     rpc.BlockNumber        `json:"block"`
		Profit    *hexutil.Big           `json:"profit"`
		Plan      replayTypes.CallPlan   `json:"plan"`
		Calls     int                    `json:"calls"`
		Skipped   int                    `json:"skipped"`
		Complete  bool                   `json:"complete"`
		Changeset *replayTypes.Changeset `json:"changeset"`
	}

	var enc PlanMessage
	enc.Hash = msg.Hash
	enc.Sender = msg.Sender
	enc.Block = msg.Block
	enc.Profit = msg.Profit
	enc.Plan = msg.Plan
	enc.Calls = msg.Calls
	enc.Skipped = msg.Skipped
	enc.Complete = msg.Complete
	enc.Changeset = msg.Changeset

	return json.Marshal(&enc)
}
