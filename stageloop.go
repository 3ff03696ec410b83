package replay

import (
	"context"
	"errors"
	"time"

	libcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/sieniven/xlayer-replay/kafka"
	kafkaTypes "github.com/sieniven/xlayer-replay/kafka/types"
	"github.com/sieniven/xlayer-replay/metrics"
	"github.com/sieniven/xlayer-replay/simulate"
	"github.com/sieniven/xlayer-replay/subscription"
	"golang.org/x/sync/errgroup"
)

var (
	MaxKafkaChanSize = 10_000

	ErrConsumerStopped = errors.New("kafka consumer stopped")
)

var _ RequestSource = (*kafka.KafkaConsumer)(nil)

// RequestSource feeds simulation requests into requestsChan until ctx is done,
// reporting a fatal consumer error on errorChan.
type RequestSource interface {
	ConsumeKafka(ctx context.Context, requestsChan chan<- kafkaTypes.SimulationRequestMessage, errorChan chan<- error, logger log.Logger)
}

type Runner interface {
	Run(ctx context.Context, txHash libcommon.Hash, rewind bool) (*simulate.Result, error)
}

type ListenConfig struct {
	Workers      int
	Timeout      time.Duration
	Metrics      *metrics.Collector
	// Subscription, when set, also receives every published plan.
	Subscription *subscription.PlanSubscription
}

// ListenSimulationRequests consumes simulation requests and publishes a plan
// or an error message for each one. At most cfg.Workers simulations run at
// once; the loop blocks on intake while all workers are busy. It returns when
// ctx is done or the consumer fails, after in-flight simulations finish.
func ListenSimulationRequests(
	ctx context.Context,
	source RequestSource,
	producer kafka.Producer,
	runner Runner,
	cfg ListenConfig,
	logger log.Logger) error {
	requestsChan := make(chan kafkaTypes.SimulationRequestMessage, MaxKafkaChanSize)
	errorChan := make(chan error, 1)

	// Start the kafka consumer
	go source.ConsumeKafka(ctx, requestsChan, errorChan, logger)

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	var g errgroup.Group
	g.SetLimit(workers)

	for {
		select {
		case <-ctx.Done():
			g.Wait()
			return nil
		case err := <-errorChan:
			logger.Error("[Replay] Kafka consumer failed", "error", err)
			g.Wait()
			return errors.Join(ErrConsumerStopped, err)
		case request := <-requestsChan:
			g.Go(func() error {
				handleRequest(ctx, producer, runner, cfg, request, logger)
				return nil
			})
		}
	}
}

func handleRequest(
	ctx context.Context,
	producer kafka.Producer,
	runner Runner,
	cfg ListenConfig,
	request kafkaTypes.SimulationRequestMessage,
	logger log.Logger) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	res, err := runner.Run(ctx, request.Hash, request.Rewind)
	cfg.Metrics.ObserveSimulation(res, err)
	if err != nil {
		logger.Error("[Replay] Simulation failed", "hash", request.Hash, "error", err)
		if err := producer.SendError(request.Hash, err); err != nil {
			logger.Error("[Replay] Failed to send error message", "hash", request.Hash, "error", err)
		}
		return
	}
	if res == nil {
		logger.Debug("[Replay] No replay plan for transaction", "hash", request.Hash, "duration", time.Since(startTime))
		return
	}

	cfg.Subscription.BroadcastPlan(res)
	if err := producer.SendPlan(res); err != nil {
		logger.Error("[Replay] Failed to send plan message", "hash", request.Hash, "error", err)
		return
	}
	logger.Debug("[Replay] Sent plan message", "hash", request.Hash, "block", res.Block, "calls", res.Plan.Len(), "duration", time.Since(startTime))
}
