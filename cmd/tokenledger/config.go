package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ava-labs/libevm/common"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/ava-labs/token-ledger/internal/chainclient"
	"github.com/ava-labs/token-ledger/pkg/clickhouse"
	"github.com/ava-labs/token-ledger/pkg/kafka"
	"github.com/ava-labs/token-ledger/pkg/metrics"
	"github.com/ava-labs/token-ledger/pkg/sink"
	"github.com/ava-labs/token-ledger/pkg/standard"
	"github.com/ava-labs/token-ledger/pkg/utils"
)

// Config holds all configuration for the run command
type Config struct {
	// Application settings
	Verbose bool

	// Chain settings
	ChainID      uint64
	RPCURL       string
	ClientType   chainclient.Type
	QueryTimeout time.Duration
	ReplayFile   string

	// Replay settings
	Contract  common.Address
	Standard  standard.Standard
	FromBlock uint64
	ToBlock   uint64 // 0 resolves to the chain head
	ChunkSize uint64
	FanOut    int

	// Sink settings
	OutputDir    string
	OutputFormat sink.Format
	SinkRetry    sink.RetryConfig

	KafkaEnabled bool
	Kafka        kafka.ProducerConfig

	ClickHouseEnabled bool
	ClickHouse        clickhouse.Config

	// Metrics settings
	MetricsHost   string
	MetricsPort   int
	Environment   string
	Region        string
	CloudProvider string
}

// MetricsAddr returns the formatted metrics address
func (c *Config) MetricsAddr() string {
	return fmt.Sprintf("%s:%d", c.MetricsHost, c.MetricsPort)
}

// MetricsLabels returns the constant labels attached to every metric.
func (c *Config) MetricsLabels() metrics.Labels {
	return metrics.Labels{
		ChainID:       c.ChainID,
		Contract:      strings.ToLower(c.Contract.Hex()),
		Environment:   c.Environment,
		Region:        c.Region,
		CloudProvider: c.CloudProvider,
	}
}

// buildConfig builds a Config from CLI context flags
func buildConfig(c *cli.Context) (*Config, error) {
	contract, err := utils.ParseAddress(c.String("contract"))
	if err != nil {
		return nil, fmt.Errorf("invalid contract: %w", err)
	}
	std, err := standard.Parse(c.String("standard"))
	if err != nil {
		return nil, err
	}
	clientType, err := chainclient.ParseType(c.String("client-type"))
	if err != nil {
		return nil, err
	}
	format, err := sink.ParseFormat(c.String("output-format"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Verbose:      c.Bool("verbose"),
		ChainID:      c.Uint64("chain-id"),
		RPCURL:       c.String("rpc-url"),
		ClientType:   clientType,
		QueryTimeout: c.Duration("query-timeout"),
		ReplayFile:   c.String("replay-file"),
		Contract:     contract,
		Standard:     std,
		FromBlock:    c.Uint64("from-block"),
		ToBlock:      c.Uint64("to-block"),
		ChunkSize:    c.Uint64("chunk-size"),
		FanOut:       c.Int("fan-out"),
		OutputDir:    c.String("output-dir"),
		OutputFormat: format,
		SinkRetry: sink.RetryConfig{
			WriteTimeout: c.Duration("sink-write-timeout"),
			MaxRetries:   c.Int("sink-max-retries"),
			RetryBackoff: c.Duration("sink-retry-backoff"),
		},
		KafkaEnabled:      c.Bool("kafka"),
		ClickHouseEnabled: c.Bool("clickhouse"),
		MetricsHost:       c.String("metrics-host"),
		MetricsPort:       c.Int("metrics-port"),
		Environment:       c.String("environment"),
		Region:            c.String("region"),
		CloudProvider:     c.String("cloud-provider"),
	}

	if cfg.KafkaEnabled {
		if cfg.Kafka, err = buildKafkaConfig(c); err != nil {
			return nil, fmt.Errorf("failed to build Kafka config: %w", err)
		}
	}
	if cfg.ClickHouseEnabled {
		if cfg.ClickHouse, err = buildClickHouseConfig(c); err != nil {
			return nil, fmt.Errorf("failed to build ClickHouse config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that span several flags.
func (c *Config) Validate() error {
	if c.ChainID == 0 {
		return errors.New("chain ID is required")
	}
	if c.RPCURL == "" && c.ReplayFile == "" {
		return errors.New("one of --rpc-url or --replay-file is required")
	}
	if c.ToBlock != 0 && c.FromBlock > c.ToBlock {
		return fmt.Errorf("from block %d is after to block %d", c.FromBlock, c.ToBlock)
	}
	if c.ChunkSize == 0 {
		return errors.New("chunk size must be positive")
	}
	if c.FanOut <= 0 {
		return fmt.Errorf("fan-out must be positive, got %d", c.FanOut)
	}
	if c.QueryTimeout < 0 {
		return fmt.Errorf("query timeout must not be negative, got %s", c.QueryTimeout)
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("metrics port %d out of range", c.MetricsPort)
	}
	if err := c.SinkRetry.Validate(); err != nil {
		return fmt.Errorf("invalid sink retry config: %w", err)
	}
	return nil
}

// buildKafkaConfig starts from the KAFKA_* environment and applies explicit flags.
func buildKafkaConfig(c *cli.Context) (kafka.ProducerConfig, error) {
	cfg, err := kafka.LoadProducerConfig()
	if err != nil {
		return kafka.ProducerConfig{}, err
	}

	override(c, "kafka-brokers", c.String, &cfg.BootstrapServers)
	override(c, "kafka-topic", c.String, &cfg.Topic)
	override(c, "kafka-client-id", c.String, &cfg.ClientID)
	override(c, "kafka-enable-logs", c.Bool, &cfg.EnableLogs)
	override(c, "kafka-flush-timeout", c.Duration, &cfg.FlushTimeout)
	override(c, "kafka-create-topic", c.Bool, &cfg.CreateTopic)
	override(c, "kafka-topic-num-partitions", c.Int, &cfg.Partitions)
	override(c, "kafka-topic-replication-factor", c.Int, &cfg.ReplicationFactor)
	override(c, "kafka-sasl-username", c.String, &cfg.SASL.Username)
	override(c, "kafka-sasl-password", c.String, &cfg.SASL.Password)
	override(c, "kafka-sasl-mechanism", c.String, &cfg.SASL.Mechanism)
	override(c, "kafka-security-protocol", c.String, &cfg.SASL.SecurityProtocol)

	if err := cfg.Validate(); err != nil {
		return kafka.ProducerConfig{}, err
	}
	if cfg.CreateTopic {
		if err := cfg.TopicConfig().Validate(); err != nil {
			return kafka.ProducerConfig{}, fmt.Errorf("invalid topic config: %w", err)
		}
	}
	return cfg, nil
}

// buildClickHouseConfig starts from the CLICKHOUSE_* environment and applies explicit flags.
func buildClickHouseConfig(c *cli.Context) (clickhouse.Config, error) {
	cfg, err := clickhouse.Load()
	if err != nil {
		return clickhouse.Config{}, err
	}

	if c.IsSet("clickhouse-hosts") {
		cfg.Hosts = splitHosts(c.StringSlice("clickhouse-hosts"))
	}
	override(c, "clickhouse-cluster", c.String, &cfg.Cluster)
	override(c, "clickhouse-database", c.String, &cfg.Database)
	override(c, "clickhouse-username", c.String, &cfg.Username)
	override(c, "clickhouse-password", c.String, &cfg.Password)
	override(c, "clickhouse-balances-table", c.String, &cfg.BalancesTable)
	override(c, "clickhouse-debug", c.Bool, &cfg.Debug)
	override(c, "clickhouse-insecure-skip-verify", c.Bool, &cfg.InsecureSkipVerify)
	override(c, "clickhouse-max-execution-time", c.Int, &cfg.MaxExecutionTime)
	override(c, "clickhouse-dial-timeout", c.Int, &cfg.DialTimeout)
	override(c, "clickhouse-block-buffer-size", c.Int, &cfg.BlockBufferSize)
	override(c, "clickhouse-max-block-size", c.Int, &cfg.MaxBlockSize)

	if err := cfg.Validate(); err != nil {
		return clickhouse.Config{}, err
	}
	return cfg, nil
}

func override[T any](c *cli.Context, name string, get func(string) T, dst *T) {
	if c.IsSet(name) {
		*dst = get(name)
	}
}

// splitHosts accepts repeated flags as well as a single comma-separated value.
func splitHosts(in []string) []string {
	var hosts []string
	for _, h := range in {
		for _, part := range strings.Split(h, ",") {
			if part = strings.TrimSpace(part); part != "" {
				hosts = append(hosts, part)
			}
		}
	}
	return hosts
}

// loadEnvFile loads the dotenv file named by --env-file or ENV_FILE. It runs
// before the app parses flags so the file can supply flag environment variables.
func loadEnvFile(args []string) error {
	path := os.Getenv("ENV_FILE")
	for i, arg := range args {
		switch {
		case arg == "--env-file" || arg == "-env-file":
			if i+1 < len(args) {
				path = args[i+1]
			}
		case strings.HasPrefix(arg, "--env-file="):
			path = strings.TrimPrefix(arg, "--env-file=")
		case strings.HasPrefix(arg, "-env-file="):
			path = strings.TrimPrefix(arg, "-env-file=")
		}
	}
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}
