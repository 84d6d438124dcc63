package testutils

import (
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// DeliveryReport builds the *kafka.Message librdkafka sends on a delivery channel.
func DeliveryReport(topic string, partition int32, offset int64, err error) *kafka.Message {
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: partition,
			Offset:    kafka.Offset(offset),
			Error:     err,
		},
	}
}

// Metadata builds cluster metadata holding a single topic with the given
// partitions, each replicated to replicas brokers.
func Metadata(topic string, partitions, replicas int, code kafka.ErrorCode) *kafka.Metadata {
	tm := kafka.TopicMetadata{
		Topic: topic,
		Error: kafka.NewError(code, "", false),
	}
	for i := range partitions {
		pm := kafka.PartitionMetadata{ID: int32(i)}
		for r := range replicas {
			pm.Replicas = append(pm.Replicas, int32(r))
		}
		tm.Partitions = append(tm.Partitions, pm)
	}
	return &kafka.Metadata{Topics: map[string]kafka.TopicMetadata{topic: tm}}
}
