package simulate

import libcommon "github.com/ethereum/go-ethereum/common"

type SimulateConfig struct {
	// ContractOverride replaces the signer as the substitute address written
	// into rewritten call data.
	ContractOverride *libcommon.Address `toml:",omitempty"`
	// MaxSkippedRatio rejects plans where the share of skipped entries among
	// the root and its direct children exceeds the ratio. 0 disables the check.
	MaxSkippedRatio float64 `toml:",omitempty"`
}
