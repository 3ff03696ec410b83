package simulate

import (
	"slices"

	"github.com/sieniven/xlayer-replay/types"
)

const traceKeyRadix = 17

// TraceKey maps a trace address to an integer key. The path is read from the
// end and each index contributes (index+1) * 17^i, so the root maps to 0 and
// the i-th direct child of the root ([i-1]) maps to i. Keys are unique for
// paths up to 15 deep whose indices are below 16; past that they may collide.
func TraceKey(path []uint64) uint64 {
	var key uint64
	weight := uint64(1)
	for i := len(path) - 1; i >= 0; i-- {
		key += (path[i] + 1) * weight
		weight *= traceKeyRadix
	}
	return key
}

// traceIndex is a key lookup over a flat list of trace entries, built for the
// duration of one reconstruction. Buckets hold indices into entries and
// lookups compare the full path, so colliding keys still resolve exactly.
type traceIndex struct {
	entries []types.TraceEntry
	buckets map[uint64][]int
}

func newTraceIndex(entries []types.TraceEntry) *traceIndex {
	idx := &traceIndex{
		entries: entries,
		buckets: make(map[uint64][]int, len(entries)),
	}
	for i := range entries {
		key := TraceKey(entries[i].TraceAddress)
		idx.buckets[key] = append(idx.buckets[key], i)
	}
	return idx
}

func (idx *traceIndex) lookup(path []uint64) (*types.TraceEntry, bool) {
	for _, i := range idx.buckets[TraceKey(path)] {
		if slices.Equal(idx.entries[i].TraceAddress, path) {
			return &idx.entries[i], true
		}
	}
	return nil, false
}
