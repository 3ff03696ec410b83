package kafka

import "github.com/IBM/sarama"

var DEFAULT_VERSION = sarama.V3_6_0_0

type KafkaConfig struct {
	BootstrapServers []string `toml:",omitempty"`
	RequestTopic     string   `toml:",omitempty"`
	PlanTopic        string   `toml:",omitempty"`
	ErrorTopic       string   `toml:",omitempty"`
	ClientID         string   `toml:",omitempty"`
	GroupID          string   `toml:",omitempty"`
	// Async publishes plans through the batching producer.
	Async bool `toml:",omitempty"`
}
