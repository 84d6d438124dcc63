package main

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ava-labs/token-ledger/pkg/fetcher"
	"github.com/ava-labs/token-ledger/pkg/kafka"
	"github.com/ava-labs/token-ledger/pkg/rangeplan"
)

func envFileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "env-file",
		Usage:   "Load environment variables from a dotenv file before resolving flags",
		EnvVars: []string{"ENV_FILE"},
	}
}

// runFlags returns all CLI flags for the run command
func runFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable verbose logging",
			EnvVars: []string{"VERBOSE"},
			Value:   false,
		},
		&cli.Uint64Flag{
			Name:     "chain-id",
			Aliases:  []string{"C"},
			Usage:    "The EVM chain ID of the chain being replayed",
			EnvVars:  []string{"CHAIN_ID"},
			Required: true,
		},
		&cli.StringFlag{
			Name:    "rpc-url",
			Aliases: []string{"r"},
			Usage:   "The RPC URL to query logs from (not needed with --replay-file)",
			EnvVars: []string{"RPC_URL"},
		},
		&cli.StringFlag{
			Name:    "client-type",
			Aliases: []string{"ct"},
			Usage:   "The client to query logs with (coreth, subnet-evm or evm)",
			EnvVars: []string{"CLIENT_TYPE"},
			Value:   "coreth",
		},
		&cli.StringFlag{
			Name:     "contract",
			Aliases:  []string{"a"},
			Usage:    "The 0x-prefixed token contract address",
			EnvVars:  []string{"CONTRACT"},
			Required: true,
		},
		&cli.StringFlag{
			Name:     "standard",
			Aliases:  []string{"S"},
			Usage:    "The contract's asset standard (erc721 or erc1155)",
			EnvVars:  []string{"STANDARD"},
			Required: true,
		},
		&cli.Uint64Flag{
			Name:    "from-block",
			Aliases: []string{"s"},
			Usage:   "The first block of the replay range",
			EnvVars: []string{"FROM_BLOCK"},
		},
		&cli.Uint64Flag{
			Name:    "to-block",
			Aliases: []string{"e"},
			Usage:   "The last block of the replay range. If not specified, replays up to the latest block",
			EnvVars: []string{"TO_BLOCK"},
		},
		&cli.Uint64Flag{
			Name:    "chunk-size",
			Usage:   "The number of blocks per eth_getLogs query",
			EnvVars: []string{"CHUNK_SIZE"},
			Value:   rangeplan.DefaultChunkSize,
		},
		&cli.IntFlag{
			Name:    "fan-out",
			Aliases: []string{"c"},
			Usage:   "The number of chunk queries issued concurrently per group",
			EnvVars: []string{"FAN_OUT"},
			Value:   fetcher.DefaultFanOut,
		},
		&cli.DurationFlag{
			Name:    "query-timeout",
			Usage:   "Timeout for a single eth_getLogs query (0 disables it)",
			EnvVars: []string{"QUERY_TIMEOUT"},
			Value:   30 * time.Second,
		},
		&cli.StringFlag{
			Name:    "replay-file",
			Usage:   "Replay a JSON array of logs instead of querying a node",
			EnvVars: []string{"REPLAY_FILE"},
		},
		&cli.StringFlag{
			Name:    "output-dir",
			Aliases: []string{"o"},
			Usage:   "Write the ledger snapshot to this directory (stdout when no sink is enabled)",
			EnvVars: []string{"OUTPUT_DIR"},
		},
		&cli.StringFlag{
			Name:    "output-format",
			Aliases: []string{"F"},
			Usage:   "Snapshot encoding for file and stdout output (json or yaml)",
			EnvVars: []string{"OUTPUT_FORMAT"},
			Value:   "json",
		},
		&cli.DurationFlag{
			Name:    "sink-write-timeout",
			Usage:   "Timeout for a single snapshot write",
			EnvVars: []string{"SINK_WRITE_TIMEOUT"},
			Value:   30 * time.Second,
		},
		&cli.IntFlag{
			Name:    "sink-max-retries",
			Usage:   "Retries after a failed snapshot write",
			EnvVars: []string{"SINK_MAX_RETRIES"},
			Value:   3,
		},
		&cli.DurationFlag{
			Name:    "sink-retry-backoff",
			Usage:   "Pause between snapshot write attempts",
			EnvVars: []string{"SINK_RETRY_BACKOFF"},
			Value:   time.Second,
		},
		&cli.StringFlag{
			Name:    "metrics-host",
			Usage:   "Host for Prometheus metrics server (empty for all interfaces)",
			EnvVars: []string{"METRICS_HOST"},
			Value:   "",
		},
		&cli.IntFlag{
			Name:    "metrics-port",
			Aliases: []string{"m"},
			Usage:   "Port for Prometheus metrics server (0 disables it)",
			EnvVars: []string{"METRICS_PORT"},
			Value:   0,
		},
		&cli.StringFlag{
			Name:    "environment",
			Aliases: []string{"E"},
			Usage:   "Deployment environment for metrics labels (e.g., 'production', 'staging')",
			EnvVars: []string{"ENVIRONMENT"},
		},
		&cli.StringFlag{
			Name:    "region",
			Aliases: []string{"R"},
			Usage:   "Cloud region for metrics labels (e.g., 'us-east-1')",
			EnvVars: []string{"REGION"},
		},
		&cli.StringFlag{
			Name:    "cloud-provider",
			Aliases: []string{"P"},
			Usage:   "Cloud provider for metrics labels (e.g., 'aws', 'oci', 'gcp')",
			EnvVars: []string{"CLOUD_PROVIDER"},
		},
		&cli.BoolFlag{
			Name:    "kafka",
			Usage:   "Publish the snapshot to Kafka",
			EnvVars: []string{"KAFKA_ENABLED"},
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "The Kafka brokers to use (comma-separated list)",
			EnvVars: []string{"KAFKA_BOOTSTRAP_SERVERS"},
			Value:   "localhost:9092",
		},
		&cli.StringFlag{
			Name:    "kafka-topic",
			Aliases: []string{"t"},
			Usage:   "The Kafka topic to publish snapshots to",
			EnvVars: []string{"KAFKA_TOPIC"},
			Value:   kafka.DefaultTopic,
		},
		&cli.BoolFlag{
			Name:    "kafka-enable-logs",
			Aliases: []string{"l"},
			Usage:   "Enable Kafka logs",
			EnvVars: []string{"KAFKA_ENABLE_LOGS"},
		},
		&cli.StringFlag{
			Name:    "kafka-client-id",
			Usage:   "The Kafka client ID to use",
			EnvVars: []string{"KAFKA_CLIENT_ID"},
			Value:   kafka.DefaultClientID,
		},
		&cli.BoolFlag{
			Name:    "kafka-create-topic",
			Usage:   "Create the topic, or grow its partitions, before publishing",
			EnvVars: []string{"KAFKA_CREATE_TOPIC"},
		},
		&cli.IntFlag{
			Name:    "kafka-topic-num-partitions",
			Usage:   "The number of partitions to use for the Kafka topic (must be greater than 0)",
			EnvVars: []string{"KAFKA_TOPIC_PARTITIONS"},
			Value:   1,
		},
		&cli.IntFlag{
			Name:    "kafka-topic-replication-factor",
			Usage:   "The replication factor to use for the Kafka topic (must be greater than 0)",
			EnvVars: []string{"KAFKA_TOPIC_REPLICATION"},
			Value:   1,
		},
		&cli.DurationFlag{
			Name:    "kafka-flush-timeout",
			Usage:   "How long to wait for in-flight messages on shutdown",
			EnvVars: []string{"KAFKA_FLUSH_TIMEOUT"},
			Value:   kafka.DefaultFlushTimeout,
		},
		&cli.StringFlag{
			Name:    "kafka-sasl-username",
			Usage:   "SASL username for Kafka authentication",
			EnvVars: []string{"KAFKA_SASL_USERNAME"},
		},
		&cli.StringFlag{
			Name:    "kafka-sasl-password",
			Usage:   "SASL password for Kafka authentication",
			EnvVars: []string{"KAFKA_SASL_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "kafka-sasl-mechanism",
			Usage:   "SASL mechanism (SCRAM-SHA-256, SCRAM-SHA-512, or PLAIN)",
			EnvVars: []string{"KAFKA_SASL_MECHANISM"},
			Value:   "SCRAM-SHA-512",
		},
		&cli.StringFlag{
			Name:    "kafka-security-protocol",
			Usage:   "Security protocol (SASL_SSL or SASL_PLAINTEXT)",
			EnvVars: []string{"KAFKA_SECURITY_PROTOCOL"},
			Value:   "SASL_SSL",
		},
		&cli.BoolFlag{
			Name:    "clickhouse",
			Usage:   "Write the snapshot to ClickHouse",
			EnvVars: []string{"CLICKHOUSE_ENABLED"},
		},
		envFileFlag(),
	}
	return append(flags, clickHouseFlags()...)
}

func removeFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable verbose logging",
			EnvVars: []string{"VERBOSE"},
		},
		&cli.Uint64Flag{
			Name:     "chain-id",
			Aliases:  []string{"C"},
			Usage:    "The EVM chain ID of the snapshots being removed",
			EnvVars:  []string{"CHAIN_ID"},
			Required: true,
		},
		&cli.StringFlag{
			Name:     "contract",
			Aliases:  []string{"a"},
			Usage:    "The 0x-prefixed token contract address of the snapshots being removed",
			EnvVars:  []string{"CONTRACT"},
			Required: true,
		},
		envFileFlag(),
	}
	return append(flags, clickHouseFlags()...)
}

// clickHouseFlags are shared by run and remove. Unset flags fall back to the
// CLICKHOUSE_* environment defaults.
func clickHouseFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "clickhouse-hosts",
			Usage:   "ClickHouse server hosts (comma-separated)",
			EnvVars: []string{"CLICKHOUSE_HOSTS"},
		},
		&cli.StringFlag{
			Name:    "clickhouse-cluster",
			Usage:   "ClickHouse cluster name",
			EnvVars: []string{"CLICKHOUSE_CLUSTER"},
		},
		&cli.StringFlag{
			Name:    "clickhouse-database",
			Usage:   "ClickHouse database name",
			EnvVars: []string{"CLICKHOUSE_DATABASE"},
		},
		&cli.StringFlag{
			Name:    "clickhouse-username",
			Usage:   "ClickHouse username",
			EnvVars: []string{"CLICKHOUSE_USERNAME"},
		},
		&cli.StringFlag{
			Name:    "clickhouse-password",
			Usage:   "ClickHouse password",
			EnvVars: []string{"CLICKHOUSE_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "clickhouse-balances-table",
			Usage:   "The ClickHouse table holding balance snapshots",
			EnvVars: []string{"CLICKHOUSE_BALANCES_TABLE"},
		},
		&cli.BoolFlag{
			Name:    "clickhouse-debug",
			Usage:   "Enable ClickHouse debug logging",
			EnvVars: []string{"CLICKHOUSE_DEBUG"},
		},
		&cli.BoolFlag{
			Name:    "clickhouse-insecure-skip-verify",
			Usage:   "Skip TLS certificate verification for ClickHouse",
			EnvVars: []string{"CLICKHOUSE_INSECURE_SKIP_VERIFY"},
		},
		&cli.IntFlag{
			Name:    "clickhouse-max-execution-time",
			Usage:   "ClickHouse max execution time in seconds",
			EnvVars: []string{"CLICKHOUSE_MAX_EXECUTION_TIME"},
		},
		&cli.IntFlag{
			Name:    "clickhouse-dial-timeout",
			Usage:   "ClickHouse dial timeout in seconds",
			EnvVars: []string{"CLICKHOUSE_DIAL_TIMEOUT"},
		},
		&cli.IntFlag{
			Name:    "clickhouse-block-buffer-size",
			Usage:   "ClickHouse block buffer size",
			EnvVars: []string{"CLICKHOUSE_BLOCK_BUFFER_SIZE"},
		},
		&cli.IntFlag{
			Name:    "clickhouse-max-block-size",
			Usage:   "ClickHouse max block size (recommended maximum number of rows in a single block)",
			EnvVars: []string{"CLICKHOUSE_MAX_BLOCK_SIZE"},
		},
	}
}
