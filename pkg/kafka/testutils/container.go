//go:build integration

package testutils

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	kafkaImage      = "confluentinc/cp-kafka:7.5.0"
	brokersEnv      = "KAFKA_BOOTSTRAP_SERVERS"
	localBrokers    = "localhost:9093"
	startupTimeout  = 60 * time.Second
	metadataTimeout = 10 * time.Second
)

// StartKafka returns bootstrap servers for integration tests. When
// KAFKA_BOOTSTRAP_SERVERS is set that cluster is used; otherwise a single-node
// KRaft broker is started and terminated on cleanup.
func StartKafka(t *testing.T) string {
	t.Helper()
	if brokers := os.Getenv(brokersEnv); brokers != "" {
		return brokers
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        kafkaImage,
		ExposedPorts: []string{"9093/tcp"},
		HostConfigModifier: func(hc *container.HostConfig) {
			// Advertised listener is localhost:9093, so the host port must match.
			hc.PortBindings = map[nat.Port][]nat.PortBinding{
				"9093/tcp": {{HostIP: "127.0.0.1", HostPort: "9093"}},
			}
		},
		Env: map[string]string{
			"KAFKA_LISTENERS":                                "PLAINTEXT://0.0.0.0:9093,BROKER://0.0.0.0:9092,CONTROLLER://0.0.0.0:9094",
			"KAFKA_ADVERTISED_LISTENERS":                     "PLAINTEXT://localhost:9093,BROKER://localhost:9092",
			"KAFKA_LISTENER_SECURITY_PROTOCOL_MAP":           "CONTROLLER:PLAINTEXT,BROKER:PLAINTEXT,PLAINTEXT:PLAINTEXT",
			"KAFKA_INTER_BROKER_LISTENER_NAME":               "BROKER",
			"KAFKA_CONTROLLER_LISTENER_NAMES":                "CONTROLLER",
			"KAFKA_CONTROLLER_QUORUM_VOTERS":                 "1@localhost:9094",
			"KAFKA_PROCESS_ROLES":                            "broker,controller",
			"KAFKA_NODE_ID":                                  "1",
			"KAFKA_OFFSETS_TOPIC_REPLICATION_FACTOR":         "1",
			"KAFKA_TRANSACTION_STATE_LOG_REPLICATION_FACTOR": "1",
			"KAFKA_TRANSACTION_STATE_LOG_MIN_ISR":            "1",
			"KAFKA_AUTO_CREATE_TOPICS_ENABLE":                "false",
			"KAFKA_GROUP_INITIAL_REBALANCE_DELAY_MS":         "0",
			"CLUSTER_ID":                                     "MkU3OEVBNTcwNTJENDM2Qk",
		},
		WaitingFor: wait.ForLog("Kafka Server started").WithStartupTimeout(startupTimeout),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
	})

	waitForBroker(t, localBrokers)
	return localBrokers
}

func waitForBroker(t *testing.T, brokers string) {
	t.Helper()
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{"bootstrap.servers": brokers})
	require.NoError(t, err)
	defer admin.Close()

	require.Eventually(t, func() bool {
		_, err := admin.GetMetadata(nil, true, int(metadataTimeout.Milliseconds()))
		return err == nil
	}, startupTimeout, time.Second)
}

// NewConsumer returns a consumer reading topic from the earliest offset.
func NewConsumer(t *testing.T, brokers, topic string) *kafka.Consumer {
	t.Helper()
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  brokers,
		"group.id":           "token-ledger-test-" + topic,
		"auto.offset.reset":  "earliest",
		"enable.auto.commit": false,
	})
	require.NoError(t, err)
	require.NoError(t, c.Subscribe(topic, nil))
	t.Cleanup(func() { _ = c.Close() })
	return c
}
