package kafka

import (
	"os"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProducerConfig_Defaults(t *testing.T) {
	for _, k := range []string{
		"KAFKA_BOOTSTRAP_SERVERS", "KAFKA_TOPIC", "KAFKA_CLIENT_ID", "KAFKA_FLUSH_TIMEOUT",
		"KAFKA_SASL_USERNAME", "KAFKA_SASL_MECHANISM", "KAFKA_SECURITY_PROTOCOL",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	cfg, err := LoadProducerConfig()
	require.NoError(t, err)

	assert.Equal(t, "localhost:9092", cfg.BootstrapServers)
	assert.Equal(t, DefaultTopic, cfg.Topic)
	assert.Equal(t, DefaultClientID, cfg.ClientID)
	assert.Equal(t, DefaultFlushTimeout, cfg.FlushTimeout)
	assert.Equal(t, 1, cfg.Partitions)
	assert.Equal(t, 1, cfg.ReplicationFactor)
	assert.False(t, cfg.SASL.Enabled())
	assert.Equal(t, "SCRAM-SHA-512", cfg.SASL.Mechanism)
	require.NoError(t, cfg.Validate())
}

func TestLoadProducerConfig_FromEnv(t *testing.T) {
	t.Setenv("KAFKA_BOOTSTRAP_SERVERS", "b1:9092,b2:9092")
	t.Setenv("KAFKA_TOPIC", "ledgers")
	t.Setenv("KAFKA_FLUSH_TIMEOUT", "3s")
	t.Setenv("KAFKA_SASL_USERNAME", "user")
	t.Setenv("KAFKA_SASL_PASSWORD", "secret")

	cfg, err := LoadProducerConfig()
	require.NoError(t, err)

	assert.Equal(t, "b1:9092,b2:9092", cfg.BootstrapServers)
	assert.Equal(t, "ledgers", cfg.Topic)
	assert.Equal(t, 3*time.Second, cfg.FlushTimeout)
	assert.True(t, cfg.SASL.Enabled())
	assert.Equal(t, "secret", cfg.SASL.Password)
}

func TestLoadProducerConfig_ParseError(t *testing.T) {
	t.Setenv("KAFKA_FLUSH_TIMEOUT", "soon")

	_, err := LoadProducerConfig()
	require.ErrorContains(t, err, "failed to parse kafka producer config")
}

func TestProducerConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := ProducerConfig{BootstrapServers: "localhost:9092", Topic: "t", FlushTimeout: time.Second}

	tests := []struct {
		name    string
		mutate  func(*ProducerConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(*ProducerConfig) {}},
		{name: "no brokers", mutate: func(c *ProducerConfig) { c.BootstrapServers = "" }, wantErr: "bootstrap servers"},
		{name: "no topic", mutate: func(c *ProducerConfig) { c.Topic = "" }, wantErr: "topic is required"},
		{name: "zero flush timeout", mutate: func(c *ProducerConfig) { c.FlushTimeout = 0 }, wantErr: "flush timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestProducerConfig_ConfigMap(t *testing.T) {
	t.Parallel()

	cfg := ProducerConfig{BootstrapServers: "localhost:9092", ClientID: "ledger", EnableLogs: true}
	cm, err := cfg.ConfigMap()
	require.NoError(t, err)

	get := func(key string) kafka.ConfigValue {
		v, err := cm.Get(key, nil)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "localhost:9092", get("bootstrap.servers"))
	assert.Equal(t, "ledger", get("client.id"))
	assert.Equal(t, "all", get("acks"))
	assert.Equal(t, true, get("enable.idempotence"))
	assert.Equal(t, "lz4", get("compression.type"))
	assert.Equal(t, true, get("go.logs.channel.enable"))
	assert.Nil(t, get("sasl.username"))
}

func TestSASLConfig_ApplyToConfigMap(t *testing.T) {
	t.Parallel()

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()
		cm := &kafka.ConfigMap{}
		require.NoError(t, SASLConfig{}.ApplyToConfigMap(cm))
		assert.Empty(t, *cm)
	})

	t.Run("enabled", func(t *testing.T) {
		t.Parallel()
		cm := &kafka.ConfigMap{}
		s := SASLConfig{Username: "u", Password: "p", Mechanism: "PLAIN", SecurityProtocol: "SASL_PLAINTEXT"}
		require.NoError(t, s.ApplyToConfigMap(cm))
		assert.Equal(t, kafka.ConfigMap{
			"security.protocol": "SASL_PLAINTEXT",
			"sasl.mechanisms":   "PLAIN",
			"sasl.username":     "u",
			"sasl.password":     "p",
		}, *cm)
	})

	t.Run("missing password", func(t *testing.T) {
		t.Parallel()
		err := SASLConfig{Username: "u"}.ApplyToConfigMap(&kafka.ConfigMap{})
		require.ErrorContains(t, err, "sasl password")
	})
}

func TestProducerConfig_TopicConfig(t *testing.T) {
	t.Parallel()

	cfg := ProducerConfig{Topic: "ledgers", Partitions: 3, ReplicationFactor: 2}
	assert.Equal(t, TopicConfig{Name: "ledgers", NumPartitions: 3, ReplicationFactor: 2}, cfg.TopicConfig())
}
