package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ava-labs/token-ledger/pkg/kafka/testutils"
)

type mockAdmin struct {
	mock.Mock
}

func (m *mockAdmin) GetMetadata(topic *string, allTopics bool, timeoutMs int) (*kafka.Metadata, error) {
	args := m.Called(*topic, allTopics, timeoutMs)
	md, _ := args.Get(0).(*kafka.Metadata)
	return md, args.Error(1)
}

func (m *mockAdmin) CreateTopics(ctx context.Context, topics []kafka.TopicSpecification, _ ...kafka.CreateTopicsAdminOption) ([]kafka.TopicResult, error) {
	args := m.Called(ctx, topics)
	res, _ := args.Get(0).([]kafka.TopicResult)
	return res, args.Error(1)
}

func (m *mockAdmin) CreatePartitions(ctx context.Context, partitions []kafka.PartitionsSpecification, _ ...kafka.CreatePartitionsAdminOption) ([]kafka.TopicResult, error) {
	args := m.Called(ctx, partitions)
	res, _ := args.Get(0).([]kafka.TopicResult)
	return res, args.Error(1)
}

func topicResult(name string, code kafka.ErrorCode) []kafka.TopicResult {
	return []kafka.TopicResult{{Topic: name, Error: kafka.NewError(code, "", false)}}
}

func TestTopicConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     TopicConfig
		wantErr string
	}{
		{name: "valid", cfg: TopicConfig{Name: "t", NumPartitions: 1, ReplicationFactor: 1}},
		{name: "empty name", cfg: TopicConfig{NumPartitions: 1, ReplicationFactor: 1}, wantErr: "topic name cannot be empty"},
		{name: "zero partitions", cfg: TopicConfig{Name: "t", ReplicationFactor: 1}, wantErr: "number of partitions must be > 0"},
		{name: "zero replication", cfg: TopicConfig{Name: "t", NumPartitions: 1}, wantErr: "replication factor must be > 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestTopicExists(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		metadata   *kafka.Metadata
		metaErr    error
		wantExists bool
		wantErr    string
	}{
		{name: "exists", metadata: testutils.Metadata("ledgers", 2, 1, kafka.ErrNoError), wantExists: true},
		{name: "missing from map", metadata: &kafka.Metadata{Topics: map[string]kafka.TopicMetadata{}}},
		{name: "unknown topic", metadata: testutils.Metadata("ledgers", 0, 0, kafka.ErrUnknownTopicOrPart)},
		{name: "topic error", metadata: testutils.Metadata("ledgers", 0, 0, kafka.ErrTopicAuthorizationFailed), wantErr: "has error"},
		{name: "metadata error", metaErr: errors.New("timeout"), wantErr: "failed to get metadata"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			admin := &mockAdmin{}
			admin.On("GetMetadata", "ledgers", false, int(metadataTimeout.Milliseconds())).Return(tt.metadata, tt.metaErr)

			tm, err := TopicExists(admin, "ledgers")
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantExists, tm != nil)
		})
	}
}

func TestEnsureTopic_Creates(t *testing.T) {
	t.Parallel()

	cfg := TopicConfig{Name: "ledgers", NumPartitions: 3, ReplicationFactor: 1}
	admin := &mockAdmin{}
	admin.On("GetMetadata", "ledgers", false, mock.Anything).Return(testutils.Metadata("ledgers", 0, 0, kafka.ErrUnknownTopicOrPart), nil)
	admin.On("CreateTopics", mock.Anything, []kafka.TopicSpecification{{
		Topic: "ledgers", NumPartitions: 3, ReplicationFactor: 1,
	}}).Return(topicResult("ledgers", kafka.ErrNoError), nil)

	require.NoError(t, EnsureTopic(context.Background(), admin, cfg, zaptest.NewLogger(t).Sugar()))
	admin.AssertExpectations(t)
}

func TestEnsureTopic_CreateRace(t *testing.T) {
	t.Parallel()

	cfg := TopicConfig{Name: "ledgers", NumPartitions: 1, ReplicationFactor: 1}
	admin := &mockAdmin{}
	admin.On("GetMetadata", "ledgers", false, mock.Anything).Return(&kafka.Metadata{}, nil)
	admin.On("CreateTopics", mock.Anything, mock.Anything).Return(topicResult("ledgers", kafka.ErrTopicAlreadyExists), nil)

	require.NoError(t, EnsureTopic(context.Background(), admin, cfg, zaptest.NewLogger(t).Sugar()))
}

func TestEnsureTopic_CreateFails(t *testing.T) {
	t.Parallel()

	cfg := TopicConfig{Name: "ledgers", NumPartitions: 1, ReplicationFactor: 3}
	admin := &mockAdmin{}
	admin.On("GetMetadata", "ledgers", false, mock.Anything).Return(&kafka.Metadata{}, nil)
	admin.On("CreateTopics", mock.Anything, mock.Anything).Return(topicResult("ledgers", kafka.ErrInvalidReplicationFactor), nil)

	err := EnsureTopic(context.Background(), admin, cfg, zaptest.NewLogger(t).Sugar())
	require.ErrorContains(t, err, `failed to create topic "ledgers"`)
}

func TestEnsureTopic_Existing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		partitions int
		grow       bool
		wantErr    error
	}{
		{name: "up to date", partitions: 2},
		{name: "grows partitions", partitions: 1, grow: true},
		{name: "too many partitions", partitions: 4, wantErr: ErrTooManyPartitions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := TopicConfig{Name: "ledgers", NumPartitions: 2, ReplicationFactor: 1}
			admin := &mockAdmin{}
			admin.On("GetMetadata", "ledgers", false, mock.Anything).Return(testutils.Metadata("ledgers", tt.partitions, 1, kafka.ErrNoError), nil)
			if tt.grow {
				admin.On("CreatePartitions", mock.Anything, []kafka.PartitionsSpecification{{Topic: "ledgers", IncreaseTo: 2}}).
					Return(topicResult("ledgers", kafka.ErrNoError), nil)
			}

			err := EnsureTopic(context.Background(), admin, cfg, zaptest.NewLogger(t).Sugar())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			admin.AssertExpectations(t)
		})
	}
}

func TestEnsureTopic_InvalidConfig(t *testing.T) {
	t.Parallel()

	err := EnsureTopic(context.Background(), &mockAdmin{}, TopicConfig{}, zaptest.NewLogger(t).Sugar())
	require.ErrorContains(t, err, "invalid topic config")
}

func TestReplicationFactor(t *testing.T) {
	t.Parallel()

	md := testutils.Metadata("ledgers", 2, 3, kafka.ErrNoError)
	tm := md.Topics["ledgers"]
	assert.Equal(t, 3, replicationFactor(&tm))
	assert.Equal(t, 0, replicationFactor(&kafka.TopicMetadata{}))
}
