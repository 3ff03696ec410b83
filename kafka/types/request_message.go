package types

import (
	"encoding/json"

	libcommon "github.com/ethereum/go-ethereum/common"
)

// SimulationRequestMessage asks the listener to simulate a transaction.
type SimulationRequestMessage struct {
	Hash   libcommon.Hash `json:"hash"`
	Rewind bool           `json:"rewind"`
}

func (msg SimulationRequestMessage) MarshalJSON() ([]byte, error) {
	type SimulationRequestMessage struct {
		Hash   libcommon.Hash `json:"hash"`
		Rewind bool           `json:"rewind"`
	}

	var enc SimulationRequestMessage
	enc.Hash = msg.Hash
	enc.Rewind = msg.Rewind

	return json.Marshal(&enc)
}
