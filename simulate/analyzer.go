package simulate

import (
	"github.com/holiman/uint256"
	"github.com/sieniven/xlayer-replay/types"
)

// DiffAnalysis is the classification of a single account diff.
type DiffAnalysis struct {
	Increased bool
	Magnitude *uint256.Int
	// InvalidNonce means the recorded pre-nonce does not match the expected one,
	// i.e. the traced tx was already included, replaced or reordered. Such
	// traces also tend to carry spurious balance deltas.
	InvalidNonce bool
}

// AnalyzeAccountDiff classifies the balance movement of an account and checks
// its pre-execution nonce against expectedNonce. A nil expectedNonce never
// flags the nonce as invalid.
func AnalyzeAccountDiff(diff *types.AccountDiff, expectedNonce *uint64) DiffAnalysis {
	res := DiffAnalysis{Magnitude: new(uint256.Int)}
	if diff == nil {
		return res
	}

	if diff.Balance.IsChanged() {
		from, to := &diff.Balance.From, &diff.Balance.To
		res.Increased = to.Gt(from)
		if res.Increased {
			res.Magnitude.Sub(to, from)
		} else {
			res.Magnitude.Sub(from, to)
		}
	}

	if diff.Nonce.IsChanged() && expectedNonce != nil {
		res.InvalidNonce = uint64(diff.Nonce.From) != *expectedNonce
	}
	return res
}
