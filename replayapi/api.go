package replayapi

import (
	"errors"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sieniven/xlayer-replay/cache"
	"github.com/sieniven/xlayer-replay/metrics"
	"github.com/sieniven/xlayer-replay/simulate"
	"github.com/sieniven/xlayer-replay/subscription"
)

const (
	Namespace           = "replay"
	DefaultWorkers      = 4
	DefaultMaxBatchSize = 100
)

var (
	ErrReplayNotEnabled = errors.New("replay is not enabled")
	ErrBatchTooLarge    = errors.New("too many transactions in batch")
)

type ReplayAPIImpl struct {
	sim        *simulate.Simulator
	planCache  *cache.PlanCache
	subService *subscription.PlanSubscription
	metrics    *metrics.Collector
	logger     log.Logger
	rewind     bool
	workers    int
	maxBatch   int
}

type Option func(*ReplayAPIImpl)

func WithPlanCache(planCache *cache.PlanCache) Option {
	return func(api *ReplayAPIImpl) { api.planCache = planCache }
}

// WithSubscription enables replay_subscribe("plans") and publishes every newly
// built plan to its subscribers.
func WithSubscription(subService *subscription.PlanSubscription) Option {
	return func(api *ReplayAPIImpl) { api.subService = subService }
}

func WithMetrics(collector *metrics.Collector) Option {
	return func(api *ReplayAPIImpl) { api.metrics = collector }
}

func WithLogger(logger log.Logger) Option {
	return func(api *ReplayAPIImpl) { api.logger = logger }
}

// WithRewind sets the rewind mode used when a request does not specify one.
func WithRewind(rewind bool) Option {
	return func(api *ReplayAPIImpl) { api.rewind = rewind }
}

// WithWorkers bounds the number of concurrent simulations of a batch request.
func WithWorkers(workers int) Option {
	return func(api *ReplayAPIImpl) {
		if workers > 0 {
			api.workers = workers
		}
	}
}

func WithMaxBatchSize(size int) Option {
	return func(api *ReplayAPIImpl) {
		if size > 0 {
			api.maxBatch = size
		}
	}
}

func NewReplayAPI(sim *simulate.Simulator, opts ...Option) *ReplayAPIImpl {
	api := &ReplayAPIImpl{
		sim:      sim,
		logger:   log.Root(),
		workers:  DefaultWorkers,
		maxBatch: DefaultMaxBatchSize,
	}
	for _, opt := range opts {
		opt(api)
	}
	return api
}

// APIs returns the replay service for registration on an rpc.Server. These
// are package functions so they are not exposed as RPC methods themselves.
func APIs(api *ReplayAPIImpl) []rpc.API {
	return []rpc.API{{
		Namespace: Namespace,
		Service:   api,
	}}
}

func Register(server *rpc.Server, api *ReplayAPIImpl) error {
	for _, a := range APIs(api) {
		if err := server.RegisterName(a.Namespace, a.Service); err != nil {
			return err
		}
	}
	return nil
}
