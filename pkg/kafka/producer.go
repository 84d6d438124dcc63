package kafka

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

// Msg is a single record to publish.
type Msg struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Producer is a synchronous Kafka producer.
//
// Produce blocks until a delivery report is received. Background goroutines
// drain producer events and, when enabled, librdkafka logs.
//
// Close must be called to stop the goroutines and flush in-flight messages.
type Producer struct {
	producer   *kafka.Producer
	log        *zap.SugaredLogger
	errCh      chan error
	eventsDone chan struct{}
	logsDone   chan struct{}
	closedCh   chan struct{}
	once       sync.Once
}

const queueFullRetryDelay = time.Second

// NewProducer creates a Producer from conf. ctx bounds the background goroutines.
func NewProducer(ctx context.Context, conf *kafka.ConfigMap, log *zap.SugaredLogger) (*Producer, error) {
	if log == nil {
		return nil, errors.New("invalid logger: must not be nil")
	}
	logsChEnabled, err := conf.Get("go.logs.channel.enable", false)
	if err != nil {
		return nil, fmt.Errorf("failed to get go.logs.channel.enable: %w", err)
	}

	p, err := kafka.NewProducer(conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	q := &Producer{
		producer:   p,
		log:        log,
		errCh:      make(chan error, 1),
		eventsDone: make(chan struct{}),
		logsDone:   make(chan struct{}),
		closedCh:   make(chan struct{}),
	}

	if enabled, _ := logsChEnabled.(bool); enabled {
		go q.printKafkaLogs(ctx)
	} else {
		close(q.logsDone)
	}
	go q.monitorProducerEvents(ctx)

	return q, nil
}

// Produce publishes msg and waits for its delivery report.
//
// If ctx is canceled first, Produce returns ctx.Err() and the message may
// still be delivered later.
func (q *Producer) Produce(ctx context.Context, msg Msg) error {
	// Buffered so a late report never blocks librdkafka after we stop listening.
	deliveryCh := make(chan kafka.Event, 1)

	kMsg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &msg.Topic,
			Partition: kafka.PartitionAny,
		},
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: toHeaders(msg.Headers),
	}

	if err := q.produceWithRetry(ctx, kMsg, deliveryCh); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case e := <-deliveryCh:
		return handleDeliveryEvent(q.log, kMsg, e)
	}
}

// Close stops the background goroutines and flushes pending messages,
// waiting at most timeout. Subsequent calls do nothing.
func (q *Producer) Close(timeout time.Duration) {
	q.once.Do(func() {
		q.log.Info("closing kafka producer")
		defer close(q.errCh)

		close(q.closedCh)
		<-q.eventsDone
		<-q.logsDone

		if pending := q.producer.Flush(int(timeout.Milliseconds())); pending > 0 {
			q.log.Warnw("flush incomplete, messages will be lost", "pending", pending)
		}

		q.producer.Close()
		q.log.Info("kafka producer closed")
	})
}

// Errors returns a channel that receives at most one fatal error and is
// closed on Close. After a fatal error the producer is no longer usable.
func (q *Producer) Errors() <-chan error {
	return q.errCh
}

func (q *Producer) printKafkaLogs(ctx context.Context) {
	defer close(q.logsDone)
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closedCh:
			return
		case l, ok := <-q.producer.Logs():
			if !ok {
				return
			}
			q.log.Debugw("librdkafka", "level", l.Level, "tag", l.Tag, "message", l.Message)
		}
	}
}

// produceWithRetry enqueues msg, waiting out a full local queue until ctx is done.
func (q *Producer) produceWithRetry(ctx context.Context, msg *kafka.Message, deliveryCh chan kafka.Event) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := q.producer.Produce(msg, deliveryCh)
		if err == nil {
			return nil
		}

		var kafkaErr kafka.Error
		if !errors.As(err, &kafkaErr) {
			return fmt.Errorf("failed to produce: %w", err)
		}
		if kafkaErr.Code() != kafka.ErrQueueFull {
			return classifyProduceError(kafkaErr)
		}

		q.log.Warnw("producer queue full, retrying", "delay", queueFullRetryDelay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(queueFullRetryDelay):
		}
	}
}

func classifyProduceError(err kafka.Error) error {
	switch err.Code() {
	case kafka.ErrBrokerNotAvailable:
		return fmt.Errorf("broker not available: %w", err)
	case kafka.ErrInvalidMsgSize, kafka.ErrMsgSizeTooLarge:
		return fmt.Errorf("invalid message size: %w", err)
	case kafka.ErrInvalidMsg:
		return fmt.Errorf("invalid message: %w", err)
	case kafka.ErrUnknownTopicOrPart, kafka.ErrUnknownTopic:
		return fmt.Errorf("unknown topic or partition: %w", err)
	case kafka.ErrAuthentication:
		return fmt.Errorf("authentication error: %w", err)
	default:
		return fmt.Errorf("failed to produce: %w", err)
	}
}

func (q *Producer) monitorProducerEvents(ctx context.Context) {
	defer close(q.eventsDone)
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closedCh:
			return
		case ev, ok := <-q.producer.Events():
			if !ok {
				q.reportFatal(errors.New("kafka producer event channel closed"))
				return
			}

			switch e := ev.(type) {
			case *kafka.Message:
				// Only reached for messages produced without a delivery channel.
				if e.TopicPartition.Error != nil {
					q.log.Errorw("failed to deliver message", "partition", e.TopicPartition.String())
				}
			case kafka.Error:
				if e.IsFatal() || e.Code() == kafka.ErrAllBrokersDown {
					q.reportFatal(fmt.Errorf("fatal kafka error %#x: %w", e.Code(), e))
					return
				}
				q.log.Warnw("ignoring kafka error", "code", e.Code().String(), "error", e)
			case kafka.Stats:
				q.log.Debugw("kafka stats", "stats", e.String())
			default:
				q.log.Debugw("ignoring kafka event", "event", e.String())
			}
		}
	}
}

func (q *Producer) reportFatal(err error) {
	select {
	case q.errCh <- err:
	default:
		q.log.Warnw("error channel full, dropping error", "error", err)
	}
}

func handleDeliveryEvent(log *zap.SugaredLogger, msg *kafka.Message, ev kafka.Event) error {
	e, ok := ev.(*kafka.Message)
	if !ok {
		return fmt.Errorf("unexpected delivery event: %T", ev)
	}
	if err := e.TopicPartition.Error; err != nil {
		return fmt.Errorf("delivery failed: %w", err)
	}

	log.Debugw("delivered message",
		"topic", *msg.TopicPartition.Topic,
		"partition", e.TopicPartition.Partition,
		"offset", e.TopicPartition.Offset,
	)
	return nil
}

func toHeaders(h map[string]string) []kafka.Header {
	if len(h) == 0 {
		return nil
	}
	headers := make([]kafka.Header, 0, len(h))
	for k, v := range h {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	slices.SortFunc(headers, func(a, b kafka.Header) int { return strings.Compare(a.Key, b.Key) })
	return headers
}
