package simulate

import (
	"github.com/holiman/uint256"
	"github.com/sieniven/xlayer-replay/types"
)

// ProfitDetector decides whether a traced transaction is worth replaying.
// A nil result means no profit was found.
type ProfitDetector interface {
	DetectProfit(tx *types.Transaction, stateDiff types.StateDiff) *uint256.Int
}

// NativeProfit detects native-token balance gains of the sender or receiver.
type NativeProfit struct{}

var _ ProfitDetector = NativeProfit{}

func (NativeProfit) DetectProfit(tx *types.Transaction, stateDiff types.StateDiff) *uint256.Int {
	return DetectProfit(tx, stateDiff)
}

// DetectProfit returns the native-token profit of tx, preferring the sender.
// The receiver only counts when its gain is strictly larger than the sender's
// figure, so plain value transfers are not reported as profit.
func DetectProfit(tx *types.Transaction, stateDiff types.StateDiff) *uint256.Int {
	if tx == nil {
		return nil
	}
	senderDiff, ok := stateDiff.Get(tx.From)
	if !ok {
		return nil
	}

	nonce := uint64(tx.Nonce)
	sender := AnalyzeAccountDiff(senderDiff, &nonce)
	if sender.Increased && !sender.InvalidNonce {
		return sender.Magnitude
	}

	if tx.To == nil {
		return nil
	}
	receiverDiff, ok := stateDiff.Get(*tx.To)
	if !ok {
		return nil
	}
	receiver := AnalyzeAccountDiff(receiverDiff, nil)
	if receiver.Increased && !receiver.InvalidNonce && receiver.Magnitude.Gt(sender.Magnitude) {
		return receiver.Magnitude
	}
	return nil
}
