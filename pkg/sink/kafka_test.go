package sink

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/token-ledger/pkg/kafka"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Produce(ctx context.Context, msg kafka.Msg) error {
	return m.Called(ctx, msg).Error(0)
}

func TestNewKafka_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewKafka(nil, "t")
	require.ErrorContains(t, err, "invalid publisher")

	_, err = NewKafka(&mockPublisher{}, "")
	require.ErrorContains(t, err, "invalid topic")
}

func TestKafka_Write(t *testing.T) {
	t.Parallel()

	var got kafka.Msg
	pub := &mockPublisher{}
	pub.On("Produce", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).(kafka.Msg) }).
		Return(nil).Once()

	s, err := NewKafka(pub, "ledgers")
	require.NoError(t, err)
	assert.Equal(t, "kafka", s.Name())

	snap := testSnapshot()
	require.NoError(t, s.Write(context.Background(), snap))

	assert.Equal(t, "ledgers", got.Topic)
	assert.Equal(t, "0xabcdef0000000000000000000000000000000001:20", string(got.Key))
	assert.Equal(t, map[string]string{"chain_id": "43114", "standard": "erc1155"}, got.Headers)

	var doc Document
	require.NoError(t, json.Unmarshal(got.Value, &doc))
	assert.Equal(t, uint64(20), doc.ToBlock)
	assert.True(t, snap.Ledger.Equal(doc.Ledger))
}

func TestKafka_WriteError(t *testing.T) {
	t.Parallel()

	pub := &mockPublisher{}
	pub.On("Produce", mock.Anything, mock.Anything).Return(errors.New("delivery failed")).Once()

	s, err := NewKafka(pub, "ledgers")
	require.NoError(t, err)
	require.ErrorContains(t, s.Write(context.Background(), testSnapshot()), "delivery failed")
}
