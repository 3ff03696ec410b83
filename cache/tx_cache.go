package cache

import (
	"sync"

	libcommon "github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sieniven/xlayer-replay/types"
)

const DefaultTxCacheSize = 4096

// -------------- Tx Cache --------------
// TxCache holds mined transactions only; pending ones may still be replaced.
type TxCache struct {
	mu    sync.RWMutex
	cache *lru.Cache[libcommon.Hash, *types.Transaction]
}

func NewTxCache(maxCacheSize int) (*TxCache, error) {
	if maxCacheSize <= 0 {
		maxCacheSize = DefaultTxCacheSize
	}
	cache, err := lru.New[libcommon.Hash, *types.Transaction](maxCacheSize)
	if err != nil {
		return nil, err
	}
	return &TxCache{
		cache: cache,
	}, nil
}

// Add stores tx and reports whether it was cacheable.
func (cache *TxCache) Add(tx *types.Transaction) bool {
	if tx == nil || !tx.IsMined() {
		return false
	}
	cache.mu.Lock()
	defer cache.mu.Unlock()

	cache.cache.Add(tx.Hash, tx)
	return true
}

func (cache *TxCache) Get(hash libcommon.Hash) (*types.Transaction, bool) {
	cache.mu.RLock()
	defer cache.mu.RUnlock()

	return cache.cache.Get(hash)
}

func (cache *TxCache) Size() int {
	cache.mu.RLock()
	defer cache.mu.RUnlock()

	return cache.cache.Len()
}

func (cache *TxCache) Clear() {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	cache.cache.Purge()
}

// Flush drops every transaction mined at or below blockNumber.
func (cache *TxCache) Flush(blockNumber uint64) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	for _, k := range cache.cache.Keys() {
		tx, ok := cache.cache.Peek(k)
		if ok && uint64(*tx.BlockNumber) <= blockNumber {
			cache.cache.Remove(k)
		}
	}
}
