package kafka

import (
	"fmt"

	"github.com/IBM/sarama"
	libcommon "github.com/ethereum/go-ethereum/common"
	kafkaTypes "github.com/sieniven/xlayer-replay/kafka/types"
	"github.com/sieniven/xlayer-replay/simulate"
)

// Producer publishes simulation outcomes.
type Producer interface {
	SendPlan(res *simulate.Result) error
	SendError(txHash libcommon.Hash, simErr error) error
	Close() error
}

var (
	_ Producer = (*KafkaProducer)(nil)
	_ Producer = (*BatchProducer)(nil)
)

// KafkaProducer represents a Kafka producer client that waits for every
// message to be acknowledged.
type KafkaProducer struct {
	producer sarama.SyncProducer
	config   KafkaConfig
}

func NewKafkaProducer(config KafkaConfig) (*KafkaProducer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = DEFAULT_VERSION
	saramaConfig.ClientID = config.ClientID
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true

	// Create sync producer
	producer, err := sarama.NewSyncProducer(config.BootstrapServers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("error creating Kafka producer: %w", err)
	}
	return NewKafkaProducerWithClient(producer, config), nil
}

// NewKafkaProducerWithClient wraps an existing sync producer.
func NewKafkaProducerWithClient(producer sarama.SyncProducer, config KafkaConfig) *KafkaProducer {
	return &KafkaProducer{
		producer: producer,
		config:   config,
	}
}

func (client *KafkaProducer) Close() error {
	return client.producer.Close()
}

func (client *KafkaProducer) SendPlan(res *simulate.Result) error {
	kafkaMsg, err := planMessage(client.config.PlanTopic, res)
	if err != nil {
		return err
	}
	return client.send(kafkaMsg)
}

func (client *KafkaProducer) SendError(txHash libcommon.Hash, simErr error) error {
	kafkaMsg, err := errorMessage(client.config.ErrorTopic, txHash, simErr)
	if err != nil {
		return err
	}
	return client.send(kafkaMsg)
}

// SendRequest queues a simulation request on the request topic.
func (client *KafkaProducer) SendRequest(msg kafkaTypes.SimulationRequestMessage) error {
	jsonData, err := msg.MarshalJSON()
	if err != nil {
		return fmt.Errorf("error marshaling request message: %w", err)
	}
	return client.send(&sarama.ProducerMessage{
		Topic: client.config.RequestTopic,
		Value: sarama.ByteEncoder(jsonData),
		Key:   sarama.StringEncoder(msg.Hash.Hex()),
	})
}

func (client *KafkaProducer) send(kafkaMsg *sarama.ProducerMessage) error {
	_, _, err := client.producer.SendMessage(kafkaMsg)
	if err != nil {
		return fmt.Errorf("error sending message to Kafka: %w", err)
	}
	return nil
}

func planMessage(topic string, res *simulate.Result) (*sarama.ProducerMessage, error) {
	msg, err := kafkaTypes.ToPlanMessage(res)
	if err != nil {
		return nil, fmt.Errorf("SendPlan error: %w", err)
	}
	jsonData, err := msg.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("error marshaling plan message: %w", err)
	}
	return &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(jsonData),
		Key:   sarama.StringEncoder(msg.Hash.Hex()),
	}, nil
}

func errorMessage(topic string, txHash libcommon.Hash, simErr error) (*sarama.ProducerMessage, error) {
	msg := kafkaTypes.ErrorMessage{
		Hash:  txHash,
		Error: simErr.Error(),
	}
	jsonData, err := msg.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("error marshaling error message: %w", err)
	}
	return &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(jsonData),
		Key:   sarama.StringEncoder(txHash.Hex()),
	}, nil
}
