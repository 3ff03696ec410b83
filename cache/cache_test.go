package cache

import (
	"math/big"
	"testing"

	libcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/sieniven/xlayer-replay/simulate"
	"github.com/sieniven/xlayer-replay/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTx(seed byte, block *uint64) *types.Transaction {
	tx := &types.Transaction{
		Hash: libcommon.BytesToHash([]byte{seed}),
		From: libcommon.BytesToAddress([]byte{seed}),
	}
	if block != nil {
		number := hexutil.Uint64(*block)
		tx.BlockNumber = &number
	}
	return tx
}

func blockPtr(n uint64) *uint64 {
	return &n
}

func TestTxCache(t *testing.T) {
	cache, err := NewTxCache(2)
	require.NoError(t, err)

	assert.False(t, cache.Add(testTx(1, nil)), "pending transactions are not cached")
	assert.False(t, cache.Add(nil))
	assert.Equal(t, 0, cache.Size())

	assert.True(t, cache.Add(testTx(2, blockPtr(10))))
	assert.True(t, cache.Add(testTx(3, blockPtr(11))))
	tx, ok := cache.Get(libcommon.BytesToHash([]byte{2}))
	require.True(t, ok)
	assert.Equal(t, hexutil.Uint64(10), *tx.BlockNumber)

	// Evicts the least recently used entry.
	assert.True(t, cache.Add(testTx(4, blockPtr(12))))
	assert.Equal(t, 2, cache.Size())
	_, ok = cache.Get(libcommon.BytesToHash([]byte{3}))
	assert.False(t, ok)

	cache.Flush(10)
	assert.Equal(t, 1, cache.Size())
	_, ok = cache.Get(libcommon.BytesToHash([]byte{4}))
	assert.True(t, ok)

	cache.Clear()
	assert.Equal(t, 0, cache.Size())
}

func TestNewTxCacheDefaultSize(t *testing.T) {
	cache, err := NewTxCache(0)
	require.NoError(t, err)
	for i := uint64(0); i < 300; i++ {
		number := hexutil.Uint64(i)
		cache.Add(&types.Transaction{Hash: libcommon.BigToHash(new(big.Int).SetUint64(i + 1)), BlockNumber: &number})
	}
	assert.Equal(t, 300, cache.Size())
}

func TestPlanCache(t *testing.T) {
	cache, err := NewPlanCache(8)
	require.NoError(t, err)

	hash := libcommon.HexToHash("0x01")
	result := &simulate.Result{Profit: uint256.NewInt(50)}
	cache.Add(PlanKey{Hash: hash, Rewind: true}, result)
	cache.Add(PlanKey{Hash: hash}, nil)

	got, ok := cache.Get(PlanKey{Hash: hash, Rewind: true})
	require.True(t, ok)
	assert.Equal(t, uint64(50), got.Profit.Uint64())

	got, ok = cache.Get(PlanKey{Hash: hash})
	require.True(t, ok)
	assert.Nil(t, got)

	_, ok = cache.Get(PlanKey{Hash: libcommon.HexToHash("0x02")})
	assert.False(t, ok)
	assert.Equal(t, 2, cache.Size())

	cache.Clear()
	assert.Equal(t, 0, cache.Size())
}
