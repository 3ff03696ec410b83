package types

import (
	libcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Transaction is the subset of the RPC representation of a transaction
// needed to trace and replay it.
type Transaction struct {
	Hash                 libcommon.Hash     `json:"hash"`
	From                 libcommon.Address  `json:"from"`
	To                   *libcommon.Address `json:"to"`
	Nonce                hexutil.Uint64     `json:"nonce"`
	BlockNumber          *hexutil.Uint64    `json:"blockNumber"`
	Gas                  hexutil.Uint64     `json:"gas"`
	GasPrice             *hexutil.Big       `json:"gasPrice,omitempty"`
	MaxFeePerGas         *hexutil.Big       `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big       `json:"maxPriorityFeePerGas,omitempty"`
	Value                *hexutil.Big       `json:"value"`
	Input                hexutil.Bytes      `json:"input"`
}

func (tx *Transaction) IsMined() bool {
	return tx.BlockNumber != nil
}

// CallArgs returns the transaction as a call object for trace_call.
func (tx *Transaction) CallArgs() map[string]any {
	args := map[string]any{
		"from":  tx.From,
		"gas":   tx.Gas,
		"nonce": tx.Nonce,
		"data":  tx.Input,
	}
	if tx.To != nil {
		args["to"] = tx.To
	}
	if tx.Value != nil {
		args["value"] = tx.Value
	}
	if tx.MaxFeePerGas != nil {
		args["maxFeePerGas"] = tx.MaxFeePerGas
		if tx.MaxPriorityFeePerGas != nil {
			args["maxPriorityFeePerGas"] = tx.MaxPriorityFeePerGas
		}
	} else if tx.GasPrice != nil {
		args["gasPrice"] = tx.GasPrice
	}
	return args
}
