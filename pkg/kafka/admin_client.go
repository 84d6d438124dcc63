package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

const metadataTimeout = 10 * time.Second

// TopicAdmin is the subset of *kafka.AdminClient used to manage the snapshot topic.
type TopicAdmin interface {
	GetMetadata(topic *string, allTopics bool, timeoutMs int) (*kafka.Metadata, error)
	CreateTopics(ctx context.Context, topics []kafka.TopicSpecification, options ...kafka.CreateTopicsAdminOption) ([]kafka.TopicResult, error)
	CreatePartitions(ctx context.Context, partitions []kafka.PartitionsSpecification, options ...kafka.CreatePartitionsAdminOption) ([]kafka.TopicResult, error)
}

var _ TopicAdmin = (*kafka.AdminClient)(nil)

// ErrTooManyPartitions is returned when the topic already has more partitions than configured.
var ErrTooManyPartitions = errors.New("topic has more partitions than configured")

// TopicConfig describes the snapshot topic.
type TopicConfig struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
}

// Validate checks that the topic can be created.
func (tc TopicConfig) Validate() error {
	if tc.Name == "" {
		return errors.New("topic name cannot be empty")
	}
	if tc.NumPartitions <= 0 {
		return fmt.Errorf("number of partitions must be > 0, got %d", tc.NumPartitions)
	}
	if tc.ReplicationFactor <= 0 {
		return fmt.Errorf("replication factor must be > 0, got %d", tc.ReplicationFactor)
	}
	return nil
}

// TopicExists returns the topic metadata, or nil if the topic does not exist.
func TopicExists(admin TopicAdmin, name string) (*kafka.TopicMetadata, error) {
	metadata, err := admin.GetMetadata(&name, false, int(metadataTimeout.Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata for topic %q: %w", name, err)
	}

	tm, ok := metadata.Topics[name]
	if !ok || tm.Error.Code() == kafka.ErrUnknownTopicOrPart {
		return nil, nil
	}
	if tm.Error.Code() != kafka.ErrNoError {
		return nil, fmt.Errorf("topic %q has error: %w", name, tm.Error)
	}
	return &tm, nil
}

// EnsureTopic creates the topic if missing and grows its partition count if it
// has fewer than configured. A differing replication factor is only logged.
func EnsureTopic(ctx context.Context, admin TopicAdmin, cfg TopicConfig, log *zap.SugaredLogger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid topic config: %w", err)
	}

	tm, err := TopicExists(admin, cfg.Name)
	if err != nil {
		return fmt.Errorf("failed to check topic existence: %w", err)
	}
	if tm == nil {
		return createTopic(ctx, admin, cfg, log)
	}

	partitions := len(tm.Partitions)
	if rf := replicationFactor(tm); rf != cfg.ReplicationFactor {
		log.Warnw("topic replication factor differs from config",
			"topic", cfg.Name,
			"current", rf,
			"desired", cfg.ReplicationFactor,
		)
	}

	switch {
	case partitions < cfg.NumPartitions:
		return increasePartitions(ctx, admin, cfg.Name, cfg.NumPartitions, log)
	case partitions > cfg.NumPartitions:
		return fmt.Errorf("%w: %q has %d, want %d", ErrTooManyPartitions, cfg.Name, partitions, cfg.NumPartitions)
	default:
		log.Debugw("topic up to date", "topic", cfg.Name, "partitions", partitions)
		return nil
	}
}

func createTopic(ctx context.Context, admin TopicAdmin, cfg TopicConfig, log *zap.SugaredLogger) error {
	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             cfg.Name,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}})
	if err != nil {
		return fmt.Errorf("failed to create topic %q: %w", cfg.Name, err)
	}

	for _, r := range results {
		switch r.Error.Code() {
		case kafka.ErrNoError:
			log.Infow("created topic",
				"topic", r.Topic,
				"partitions", cfg.NumPartitions,
				"replicationFactor", cfg.ReplicationFactor,
			)
		case kafka.ErrTopicAlreadyExists:
			log.Infow("topic already exists", "topic", r.Topic)
		default:
			return fmt.Errorf("failed to create topic %q: %w", r.Topic, r.Error)
		}
	}
	return nil
}

func increasePartitions(ctx context.Context, admin TopicAdmin, name string, n int, log *zap.SugaredLogger) error {
	results, err := admin.CreatePartitions(ctx, []kafka.PartitionsSpecification{{
		Topic:      name,
		IncreaseTo: n,
	}})
	if err != nil {
		return fmt.Errorf("failed to increase partitions for topic %q: %w", name, err)
	}

	for _, r := range results {
		if r.Error.Code() != kafka.ErrNoError {
			return fmt.Errorf("failed to increase partitions for topic %q: %w", r.Topic, r.Error)
		}
		log.Infow("increased partitions", "topic", r.Topic, "partitions", n)
	}
	return nil
}

func replicationFactor(tm *kafka.TopicMetadata) int {
	if len(tm.Partitions) == 0 {
		return 0
	}
	return len(tm.Partitions[0].Replicas)
}
