package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ava-labs/token-ledger/pkg/kafka"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Produce(ctx context.Context, msg kafka.Msg) error
}

var _ Publisher = (*kafka.Producer)(nil)

// Kafka publishes one message per snapshot keyed by <contract>:<toBlock>.
type Kafka struct {
	publisher Publisher
	topic     string
}

var _ Sink = (*Kafka)(nil)

func NewKafka(publisher Publisher, topic string) (*Kafka, error) {
	if publisher == nil {
		return nil, errors.New("invalid publisher: must not be nil")
	}
	if topic == "" {
		return nil, errors.New("invalid topic: must not be empty")
	}
	return &Kafka{publisher: publisher, topic: topic}, nil
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) Write(ctx context.Context, snap Snapshot) error {
	if err := snap.validate(); err != nil {
		return err
	}
	value, err := json.Marshal(NewDocument(snap))
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return k.publisher.Produce(ctx, kafka.Msg{
		Topic: k.topic,
		Key:   []byte(snap.Key()),
		Value: value,
		Headers: map[string]string{
			"chain_id": strconv.FormatUint(snap.ChainID, 10),
			"standard": snap.Standard.String(),
		},
	})
}
