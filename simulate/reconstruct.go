package simulate

import (
	"fmt"

	"github.com/sieniven/xlayer-replay/types"
)

// Reconstruct rebuilds a two-level call plan from a flat trace: batch 0 holds
// the root call alone (empty when the root cannot be rewritten) and batch 1
// every rewritable direct child of the root, in child order. Deeper calls are
// not expanded since replaying the root re-executes them.
//
// Children that cannot be rewritten are skipped and recorded on the batch
// they would have joined. When no child could be rewritten batch 1 is not
// emitted and its skips are recorded on batch 0 instead.
func Reconstruct(entries []types.TraceEntry, rw *Rewriter) (types.CallPlan, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	idx := newTraceIndex(entries)
	root, ok := idx.lookup(nil)
	if !ok {
		return nil, fmt.Errorf("%w: root entry missing from %d entries", ErrMalformedTrace, len(entries))
	}

	plan := make(types.CallPlan, 0, 2)
	rootBatch := types.Batch{Calls: make([]types.ReplayableCall, 0, 1)}
	addOutcome(&rootBatch, root, rw.Rewrite(root))

	var children types.Batch
	for i := uint64(1); i <= root.Subtraces; i++ {
		path := []uint64{i - 1}
		child, ok := idx.lookup(path)
		if !ok {
			return nil, fmt.Errorf("%w: subtrace %v of %d declared missing", ErrMalformedTrace, path, root.Subtraces)
		}
		addOutcome(&children, child, rw.Rewrite(child))
	}

	if len(children.Calls) == 0 {
		rootBatch.Skipped = append(rootBatch.Skipped, children.Skipped...)
		return append(plan, rootBatch), nil
	}
	return append(plan, rootBatch, children), nil
}

func addOutcome(batch *types.Batch, entry *types.TraceEntry, outcome Outcome) {
	if outcome.Translated() {
		batch.Calls = append(batch.Calls, *outcome.Call)
		return
	}
	batch.Skipped = append(batch.Skipped, types.SkippedEntry{
		TraceAddress: append([]uint64{}, entry.TraceAddress...),
		Type:         entry.Type,
		Reason:       outcome.Reason,
	})
}
