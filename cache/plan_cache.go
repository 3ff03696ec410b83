package cache

import (
	"sync"

	libcommon "github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sieniven/xlayer-replay/simulate"
)

const DefaultPlanCacheSize = 1024

type PlanKey struct {
	Hash   libcommon.Hash
	Rewind bool
}

// -------------- Plan Cache --------------
// PlanCache memoises simulation outcomes of mined transactions, whose trace
// at a fixed block never changes.
type PlanCache struct {
	mu    sync.RWMutex
	cache *lru.Cache[PlanKey, *simulate.Result]
}

func NewPlanCache(maxCacheSize int) (*PlanCache, error) {
	if maxCacheSize <= 0 {
		maxCacheSize = DefaultPlanCacheSize
	}
	cache, err := lru.New[PlanKey, *simulate.Result](maxCacheSize)
	if err != nil {
		return nil, err
	}
	return &PlanCache{
		cache: cache,
	}, nil
}

func (cache *PlanCache) Add(key PlanKey, result *simulate.Result) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	cache.cache.Add(key, result)
}

func (cache *PlanCache) Get(key PlanKey) (*simulate.Result, bool) {
	cache.mu.RLock()
	defer cache.mu.RUnlock()

	return cache.cache.Get(key)
}

func (cache *PlanCache) Size() int {
	cache.mu.RLock()
	defer cache.mu.RUnlock()

	return cache.cache.Len()
}

func (cache *PlanCache) Clear() {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	cache.cache.Purge()
}
