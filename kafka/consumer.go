package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/ethereum/go-ethereum/log"
	kafkaTypes "github.com/sieniven/xlayer-replay/kafka/types"
)

var errConsumeCancelled = errors.New("context cancelled - stopping consume claim")

type KafkaConsumer struct {
	consumer sarama.ConsumerGroup
	config   KafkaConfig
}

func NewKafkaConsumer(config KafkaConfig) (*KafkaConsumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = DEFAULT_VERSION
	saramaConfig.ClientID = config.ClientID
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest

	// Create consumer group
	consumerGroup, err := sarama.NewConsumerGroup(config.BootstrapServers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("error creating Kafka consumer: %w", err)
	}
	return NewKafkaConsumerWithClient(consumerGroup, config), nil
}

// NewKafkaConsumerWithClient wraps an existing consumer group.
func NewKafkaConsumerWithClient(consumerGroup sarama.ConsumerGroup, config KafkaConfig) *KafkaConsumer {
	return &KafkaConsumer{
		consumer: consumerGroup,
		config:   config,
	}
}

type consumerGroupHandler struct {
	ctx          context.Context
	requestsChan chan<- kafkaTypes.SimulationRequestMessage
	errorChan    chan<- error
	logger       log.Logger
	requestTopic string
}

func (h *consumerGroupHandler) Setup(session sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) Cleanup(_ sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	h.logger.Info("[Replay] Starting kafka consumption", "topic", claim.Topic(), "partition", claim.Partition(), "offset", claim.InitialOffset())
	for {
		select {
		case <-h.ctx.Done():
			return errConsumeCancelled
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if msg.Topic != h.requestTopic {
				err := fmt.Errorf("unknown topic: %s", msg.Topic)
				h.errorChan <- err
				return err
			}

			var request kafkaTypes.SimulationRequestMessage
			if err := json.Unmarshal(msg.Value, &request); err != nil {
				h.logger.Warn("[Replay] consume claim error, unmarshaling request message", "error", err)
				session.MarkMessage(msg, "")
				continue
			}

			select {
			case h.requestsChan <- request:
				session.MarkMessage(msg, "")
			case <-h.ctx.Done():
				return errConsumeCancelled
			}
		}
	}
}

// ConsumeKafka consumes simulation requests until ctx is cancelled. Consumer
// group rebalances restart the session transparently.
func (client *KafkaConsumer) ConsumeKafka(ctx context.Context, requestsChan chan<- kafkaTypes.SimulationRequestMessage, errorChan chan<- error, logger log.Logger) {
	handler := &consumerGroupHandler{
		ctx:          ctx,
		requestsChan: requestsChan,
		errorChan:    errorChan,
		logger:       logger,
		requestTopic: client.config.RequestTopic,
	}

	topics := []string{client.config.RequestTopic}
	for {
		if err := client.consumer.Consume(ctx, topics, handler); err != nil && !errors.Is(err, errConsumeCancelled) {
			errorChan <- fmt.Errorf("ConsumeKafka error: %w", err)
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (client *KafkaConsumer) Close() error {
	return client.consumer.Close()
}
