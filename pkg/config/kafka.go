package config

import (
	"fmt"
	"slices"
	"time"
)

const (
	EnvKafkaBrokers      = "KAFKA_BROKERS"
	EnvKafkaTopic        = "KAFKA_BOOKINGS_TOPIC"
	EnvKafkaDLQTopic     = "KAFKA_BOOKINGS_DLQ_TOPIC"
	EnvKafkaMaxAttempts  = "KAFKA_MAX_ATTEMPTS"
	EnvKafkaBatchTimeout = "KAFKA_BATCH_TIMEOUT"
	EnvKafkaRequiredAcks = "KAFKA_REQUIRED_ACKS"
	EnvKafkaCompression  = "KAFKA_COMPRESSION"
	EnvKafkaAsync        = "KAFKA_ASYNC"

	DefaultKafkaTopic        = "bookings.events"
	DefaultKafkaMaxAttempts  = 3
	DefaultKafkaBatchTimeout = 10 * time.Millisecond
	DefaultKafkaRequiredAcks = -1
	DefaultKafkaCompression  = "snappy"
)

var kafkaCompressions = []string{"none", "gzip", "snappy", "lz4", "zstd"}

// KafkaConfig drives the booking event producer. No brokers means booking
// events are not published.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	DLQTopic     string
	MaxAttempts  int
	BatchTimeout time.Duration
	RequiredAcks int // -1 all replicas, 0 none, 1 leader
	Compression  string
	Async        bool
}

func loadKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Brokers:      envList(EnvKafkaBrokers, ""),
		Topic:        envString(EnvKafkaTopic, DefaultKafkaTopic),
		DLQTopic:     envString(EnvKafkaDLQTopic, ""),
		MaxAttempts:  envInt(EnvKafkaMaxAttempts, DefaultKafkaMaxAttempts),
		BatchTimeout: envDuration(EnvKafkaBatchTimeout, DefaultKafkaBatchTimeout),
		RequiredAcks: envInt(EnvKafkaRequiredAcks, DefaultKafkaRequiredAcks),
		Compression:  envString(EnvKafkaCompression, DefaultKafkaCompression),
		Async:        envBool(EnvKafkaAsync, false),
	}
}

func (k *KafkaConfig) Enabled() bool {
	return k != nil && len(k.Brokers) > 0
}

func (k *KafkaConfig) problems() []string {
	var out []string
	if k.Topic == "" {
		out = append(out, "Kafka topic cannot be empty")
	}
	if k.MaxAttempts <= 0 {
		out = append(out, fmt.Sprintf("Kafka MaxAttempts must be positive, got: %d", k.MaxAttempts))
	}
	if k.BatchTimeout <= 0 {
		out = append(out, fmt.Sprintf("Kafka BatchTimeout must be positive, got: %s", k.BatchTimeout))
	}
	if k.RequiredAcks < -1 || k.RequiredAcks > 1 {
		out = append(out, fmt.Sprintf("Kafka RequiredAcks must be -1, 0, or 1, got: %d", k.RequiredAcks))
	}
	if !slices.Contains(kafkaCompressions, k.Compression) {
		out = append(out, fmt.Sprintf("Kafka Compression must be one of %v, got: %s", kafkaCompressions, k.Compression))
	}
	return out
}
