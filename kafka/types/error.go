package types

import (
	"encoding/json"

	libcommon "github.com/ethereum/go-ethereum/common"
)

// ErrorMessage reports a simulation that failed with a transport or trace error.
type ErrorMessage struct {
	Hash  libcommon.Hash `json:"hash"`
	Error string         `json:"error"`
}

func (msg ErrorMessage) MarshalJSON() ([]byte, error) {
	type ErrorMessage struct {
		Hash  libcommon.Hash `json:"hash"`
		Error string         `json:"error"`
	}

	var enc ErrorMessage
	enc.Hash = msg.Hash
	enc.Error = msg.Error

	return json.Marshal(&enc)
}
