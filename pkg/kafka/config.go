package kafka

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Default values for the snapshot producer.
const (
	DefaultTopic        = "token-ledger-snapshots"
	DefaultFlushTimeout = 15 * time.Second
	DefaultClientID     = "token-ledger"
)

// ProducerConfig holds the configuration for the snapshot producer.
type ProducerConfig struct {
	BootstrapServers  string        `env:"KAFKA_BOOTSTRAP_SERVERS"    envDefault:"localhost:9092"`         // Kafka broker addresses
	Topic             string        `env:"KAFKA_TOPIC"                envDefault:"token-ledger-snapshots"` // Snapshot topic
	ClientID          string        `env:"KAFKA_CLIENT_ID"            envDefault:"token-ledger"`           // client.id reported to brokers
	EnableLogs        bool          `env:"KAFKA_ENABLE_LOGS"          envDefault:"false"`                  // Enable librdkafka client logs
	FlushTimeout      time.Duration `env:"KAFKA_FLUSH_TIMEOUT"        envDefault:"15s"`                    // Flush timeout on Close
	CreateTopic       bool          `env:"KAFKA_CREATE_TOPIC"         envDefault:"false"`                  // Ensure the topic exists on startup
	Partitions        int           `env:"KAFKA_TOPIC_PARTITIONS"     envDefault:"1"`
	ReplicationFactor int           `env:"KAFKA_TOPIC_REPLICATION"    envDefault:"1"`
	SASL              SASLConfig
}

// SASLConfig holds optional SASL authentication settings.
type SASLConfig struct {
	Username         string `env:"KAFKA_SASL_USERNAME"`
	Password         string `env:"KAFKA_SASL_PASSWORD"`
	Mechanism        string `env:"KAFKA_SASL_MECHANISM"         envDefault:"SCRAM-SHA-512"`
	SecurityProtocol string `env:"KAFKA_SECURITY_PROTOCOL"      envDefault:"SASL_SSL"`
}

// Enabled reports whether SASL credentials were provided.
func (s SASLConfig) Enabled() bool {
	return s.Username != ""
}

// ApplyToConfigMap sets the SASL and security keys on cm when credentials are present.
func (s SASLConfig) ApplyToConfigMap(cm *kafka.ConfigMap) error {
	if !s.Enabled() {
		return nil
	}
	if s.Password == "" {
		return errors.New("sasl password is required when username is set")
	}
	for k, v := range map[string]string{
		"security.protocol": s.SecurityProtocol,
		"sasl.mechanisms":   s.Mechanism,
		"sasl.username":     s.Username,
		"sasl.password":     s.Password,
	} {
		if err := cm.SetKey(k, v); err != nil {
			return fmt.Errorf("failed to set %s: %w", k, err)
		}
	}
	return nil
}

// LoadProducerConfig loads the producer configuration from environment variables.
func LoadProducerConfig() (ProducerConfig, error) {
	var cfg ProducerConfig
	if err := env.Parse(&cfg); err != nil {
		return ProducerConfig{}, fmt.Errorf("failed to parse kafka producer config: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields required to build a producer.
func (c ProducerConfig) Validate() error {
	if c.BootstrapServers == "" {
		return errors.New("kafka bootstrap servers are required")
	}
	if c.Topic == "" {
		return errors.New("kafka topic is required")
	}
	if c.FlushTimeout <= 0 {
		return fmt.Errorf("kafka flush timeout must be positive, got %s", c.FlushTimeout)
	}
	return nil
}

// TopicConfig returns the topic settings used by EnsureTopic.
func (c ProducerConfig) TopicConfig() TopicConfig {
	return TopicConfig{
		Name:              c.Topic,
		NumPartitions:     c.Partitions,
		ReplicationFactor: c.ReplicationFactor,
	}
}

// ConfigMap builds the librdkafka settings for an idempotent, lz4-compressed producer.
func (c ProducerConfig) ConfigMap() (*kafka.ConfigMap, error) {
	cm := &kafka.ConfigMap{
		"bootstrap.servers":      c.BootstrapServers,
		"client.id":              c.ClientID,
		"acks":                   "all",
		"linger.ms":              5,
		"batch.size":             16384,
		"compression.type":       "lz4",
		"enable.idempotence":     true,
		"go.logs.channel.enable": c.EnableLogs,
		// Snapshots of large collections exceed the 1MB default.
		"message.max.bytes": 20971521,
	}
	if err := c.SASL.ApplyToConfigMap(cm); err != nil {
		return nil, err
	}
	return cm, nil
}
