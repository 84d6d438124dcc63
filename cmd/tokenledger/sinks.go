package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	confluentKafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/ava-labs/token-ledger/pkg/clickhouse"
	"github.com/ava-labs/token-ledger/pkg/data/clickhouse/balances"
	"github.com/ava-labs/token-ledger/pkg/kafka"
	"github.com/ava-labs/token-ledger/pkg/metrics"
	"github.com/ava-labs/token-ledger/pkg/sink"
)

// buildSinks opens every enabled sink, each wrapped with the retry policy,
// in the order ClickHouse, Kafka, file. stdout is used when nothing else is
// enabled. The returned channel carries fatal Kafka producer errors and is nil
// without Kafka.
func buildSinks(
	ctx context.Context,
	cfg *Config,
	log *zap.SugaredLogger,
	m *metrics.Metrics,
) (sink.Sink, <-chan error, func(), error) {
	var (
		sinks   sink.Multi
		closers []func()
		errs    <-chan error
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (sink.Sink, <-chan error, func(), error) {
		closeAll()
		return nil, nil, nil, err
	}

	if cfg.ClickHouseEnabled {
		chClient, err := clickhouse.New(ctx, cfg.ClickHouse, log)
		if err != nil {
			return fail(fmt.Errorf("failed to create ClickHouse client: %w", err))
		}
		closers = append(closers, func() {
			if err := chClient.Close(); err != nil {
				log.Warnw("failed to close ClickHouse client", "error", err)
			}
		})
		log.Info("ClickHouse client created successfully")

		repo, err := balances.NewRepository(ctx, chClient, cfg.ClickHouse.Database, cfg.ClickHouse.BalancesTable, cfg.ClickHouse.Cluster)
		if err != nil {
			return fail(fmt.Errorf("failed to create balances repository: %w", err))
		}
		s, err := sink.NewClickHouse(repo)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}

	if cfg.KafkaEnabled {
		if cfg.Kafka.CreateTopic {
			if err := ensureTopic(ctx, cfg.Kafka, log); err != nil {
				return fail(err)
			}
		}
		cm, err := cfg.Kafka.ConfigMap()
		if err != nil {
			return fail(fmt.Errorf("failed to build kafka producer config: %w", err))
		}
		producer, err := kafka.NewProducer(ctx, cm, log)
		if err != nil {
			return fail(fmt.Errorf("failed to create kafka producer: %w", err))
		}
		closers = append(closers, func() { producer.Close(cfg.Kafka.FlushTimeout) })
		errs = producer.Errors()

		s, err := sink.NewKafka(producer, cfg.Kafka.Topic)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}

	// Local output goes last so a failing remote store is reported before
	// anything is written to disk.
	if cfg.OutputDir != "" {
		f, err := sink.NewFile(cfg.OutputDir, cfg.OutputFormat)
		if err != nil {
			return fail(fmt.Errorf("failed to create file sink: %w", err))
		}
		sinks = append(sinks, f)
	}

	if len(sinks) == 0 {
		w, err := sink.NewWriter(os.Stdout, cfg.OutputFormat)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, w)
	}

	for i, s := range sinks {
		r, err := sink.WithRetry(s, cfg.SinkRetry, log, m)
		if err != nil {
			return fail(err)
		}
		sinks[i] = r
	}
	log.Infow("sinks ready", "sinks", sinks.Name())
	return sinks, errs, closeAll, nil
}

func ensureTopic(ctx context.Context, cfg kafka.ProducerConfig, log *zap.SugaredLogger) error {
	adminCfg := &confluentKafka.ConfigMap{"bootstrap.servers": cfg.BootstrapServers}
	if err := cfg.SASL.ApplyToConfigMap(adminCfg); err != nil {
		return fmt.Errorf("failed to configure kafka admin client: %w", err)
	}
	admin, err := confluentKafka.NewAdminClient(adminCfg)
	if err != nil {
		return fmt.Errorf("failed to create kafka admin client: %w", err)
	}
	defer admin.Close()

	if err := kafka.EnsureTopic(ctx, admin, cfg.TopicConfig(), log); err != nil {
		return fmt.Errorf("failed to ensure kafka topic exists: %w", err)
	}
	return nil
}
