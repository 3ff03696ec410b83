package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	libcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/sieniven/xlayer-replay/simulate"
)

const DefaultBatchBufferSize = 1000

var (
	ErrProducerClosed = errors.New("producer is closed")
	ErrBufferFull     = errors.New("buffer is full, cannot queue message")
)

// BatchProducer queues messages without waiting for broker acknowledgements.
type BatchProducer struct {
	ctx      context.Context
	producer sarama.AsyncProducer
	config   KafkaConfig
	buffer   chan *sarama.ProducerMessage
	wg       sync.WaitGroup
	done     chan struct{}
	logger   log.Logger
}

func NewBatchProducer(ctx context.Context, config KafkaConfig, successChan chan struct{}, logger log.Logger) (*BatchProducer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = DEFAULT_VERSION
	saramaConfig.ClientID = config.ClientID
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true

	// For AsyncProducer
	saramaConfig.Producer.Flush.Messages = 100
	saramaConfig.Producer.Flush.Frequency = 3 * time.Millisecond
	saramaConfig.Producer.Flush.MaxMessages = 0
	saramaConfig.Producer.Compression = sarama.CompressionSnappy

	if err := verifyProducerConfig(saramaConfig); err != nil {
		return nil, err
	}

	producer, err := sarama.NewAsyncProducer(config.BootstrapServers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("error creating Kafka producer: %w", err)
	}
	return NewBatchProducerWithClient(ctx, producer, config, successChan, logger), nil
}

// NewBatchProducerWithClient wraps an existing async producer, which must
// return both successes and errors.
func NewBatchProducerWithClient(ctx context.Context, producer sarama.AsyncProducer, config KafkaConfig, successChan chan struct{}, logger log.Logger) *BatchProducer {
	bp := &BatchProducer{
		ctx:      ctx,
		producer: producer,
		config:   config,
		buffer:   make(chan *sarama.ProducerMessage, DefaultBatchBufferSize),
		done:     make(chan struct{}),
		logger:   logger,
	}

	// Start the background goroutine that handles message forwarding
	bp.wg.Add(2)
	go bp.handle()
	go bp.handleResults(successChan)

	return bp
}

func (bp *BatchProducer) Close() error {
	close(bp.done)
	err := bp.producer.Close()
	bp.wg.Wait()
	return err
}

func verifyProducerConfig(config *sarama.Config) error {
	if !config.Producer.Return.Errors {
		return sarama.ConfigurationError("Producer.Return.Errors must be true to be used in a BatchProducer")
	}
	if !config.Producer.Return.Successes {
		return sarama.ConfigurationError("Producer.Return.Successes must be true to be used in a BatchProducer")
	}
	return nil
}

func (bp *BatchProducer) SendPlan(res *simulate.Result) error {
	msg, err := planMessage(bp.config.PlanTopic, res)
	if err != nil {
		return err
	}
	return bp.SendMessage(msg)
}

func (bp *BatchProducer) SendError(txHash libcommon.Hash, simErr error) error {
	msg, err := errorMessage(bp.config.ErrorTopic, txHash, simErr)
	if err != nil {
		return err
	}
	return bp.SendMessage(msg)
}

// SendMessage queues a message for production without waiting for results
func (bp *BatchProducer) SendMessage(msg *sarama.ProducerMessage) error {
	select {
	case <-bp.done:
		return ErrProducerClosed
	default:
	}
	select {
	case <-bp.ctx.Done():
		return fmt.Errorf("context done, stopping: %w", bp.ctx.Err())
	case <-bp.done:
		return ErrProducerClosed
	case bp.buffer <- msg:
		return nil
	default:
		return ErrBufferFull
	}
}

func (bp *BatchProducer) handle() {
	defer bp.wg.Done()
	for {
		select {
		case <-bp.ctx.Done():
			return
		case <-bp.done:
			return
		case msg := <-bp.buffer:
			select {
			// Queue message to kafka broker producer
			case bp.producer.Input() <- msg:
			case <-bp.ctx.Done():
				return
			}
		}
	}
}

func (bp *BatchProducer) handleResults(successChan chan struct{}) {
	defer bp.wg.Done()
	for {
		select {
		case <-bp.ctx.Done():
			return
		case <-bp.done:
			return
		case <-bp.producer.Successes():
			if successChan != nil {
				successChan <- struct{}{}
			}
		case err := <-bp.producer.Errors():
			bp.logger.Error("[Replay] error sending message to kafka", "error", err)
		}
	}
}
