package replay

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sieniven/xlayer-replay/cache"
	"github.com/sieniven/xlayer-replay/identity"
	"github.com/sieniven/xlayer-replay/kafka"
	"github.com/sieniven/xlayer-replay/metrics"
	"github.com/sieniven/xlayer-replay/replayapi"
	"github.com/sieniven/xlayer-replay/rtclient"
	"github.com/sieniven/xlayer-replay/simulate"
	"github.com/sieniven/xlayer-replay/subscription"
)

// Service is the set of components built from a ReplayConfig and shared by
// the RPC server and the kafka listener.
type Service struct {
	Config    *ReplayConfig
	Client    *rtclient.ReplayClient
	Simulator *simulate.Simulator
	Registry  *prometheus.Registry
	Metrics   *metrics.Collector
	TxCache   *cache.TxCache
	PlanCache *cache.PlanCache
	Plans     *subscription.PlanSubscription

	logger log.Logger
}

func NewService(ctx context.Context, cfg *ReplayConfig, logger log.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	id, err := identity.New(cfg.PrivateKey, cfg.SignerAddress)
	if err != nil {
		return nil, err
	}

	registry := metrics.NewRegistry()
	collector, err := metrics.NewCollector(registry)
	if err != nil {
		return nil, err
	}

	txCache, err := cache.NewTxCache(cfg.TxCacheSize)
	if err != nil {
		return nil, err
	}
	planCache, err := cache.NewPlanCache(cfg.PlanCacheSize)
	if err != nil {
		return nil, err
	}

	client, err := rtclient.DialContext(ctx, cfg.RPCURL,
		rtclient.WithRetries(cfg.RPCRetries, cfg.RPCRetryInterval.Std()),
		rtclient.WithRateLimit(cfg.RPCRateLimit, cfg.RPCRateBurst),
		rtclient.WithTxCache(txCache),
		rtclient.WithMetrics(collector),
		rtclient.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.RPCURL, err)
	}

	sim := simulate.NewSimulator(client, id, cfg.SimulateConfig(), simulate.WithLogger(logger))
	logger.Info("[Replay] Service initialized", "rpc", cfg.RPCURL, "signer", id.SignerAddress(), "rewind", cfg.Rewind, "workers", cfg.Workers)

	return &Service{
		Config:    cfg,
		Client:    client,
		Simulator: sim,
		Registry:  registry,
		Metrics:   collector,
		TxCache:   txCache,
		PlanCache: planCache,
		Plans:     subscription.NewPlanSubscription(logger),
		logger:    logger,
	}, nil
}

func (s *Service) API() *replayapi.ReplayAPIImpl {
	return replayapi.NewReplayAPI(s.Simulator,
		replayapi.WithPlanCache(s.PlanCache),
		replayapi.WithSubscription(s.Plans),
		replayapi.WithMetrics(s.Metrics),
		replayapi.WithLogger(s.logger),
		replayapi.WithRewind(s.Config.Rewind),
		replayapi.WithWorkers(s.Config.Workers),
	)
}

// Producer opens the configured kafka producer. With Kafka.Async set, the
// batching producer is used and delivery failures are only logged.
func (s *Service) Producer(ctx context.Context) (kafka.Producer, error) {
	if s.Config.Kafka.Async {
		producer, err := kafka.NewBatchProducer(ctx, s.Config.Kafka, nil, s.logger)
		if err != nil {
			return nil, err
		}
		return producer, nil
	}
	producer, err := kafka.NewKafkaProducer(s.Config.Kafka)
	if err != nil {
		return nil, err
	}
	return producer, nil
}

func (s *Service) ListenConfig() ListenConfig {
	return ListenConfig{
		Workers:      s.Config.Workers,
		Timeout:      s.Config.SimulationTimeout.Std(),
		Metrics:      s.Metrics,
		Subscription: s.Plans,
	}
}

func (s *Service) Close() {
	s.Client.Close()
}
