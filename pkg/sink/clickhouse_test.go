package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/ava-labs/libevm/common"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/token-ledger/pkg/data/clickhouse/balances"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) CreateTableIfNotExists(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockRepository) WriteSnapshot(ctx context.Context, snap balances.Snapshot) error {
	return m.Called(ctx, snap).Error(0)
}

func (m *mockRepository) ReadSnapshot(ctx context.Context, chainID uint64, contract common.Address, toBlock uint64) ([]balances.Row, error) {
	args := m.Called(ctx, chainID, contract, toBlock)
	rows, _ := args.Get(0).([]balances.Row)
	return rows, args.Error(1)
}

func (m *mockRepository) DeleteSnapshots(ctx context.Context, chainID uint64, contract common.Address) error {
	return m.Called(ctx, chainID, contract).Error(0)
}

func TestNewClickHouse_NilRepository(t *testing.T) {
	t.Parallel()
	_, err := NewClickHouse(nil)
	require.ErrorContains(t, err, "invalid repository")
}

func TestClickHouse_Write(t *testing.T) {
	t.Parallel()

	snap := testSnapshot()
	repo := &mockRepository{}
	repo.On("WriteSnapshot", mock.Anything, balances.Snapshot{
		ChainID:   43114,
		Contract:  contract,
		Standard:  "erc1155",
		FromBlock: 10,
		ToBlock:   20,
		Entries:   snap.Ledger.Entries(),
	}).Return(nil).Once()

	s, err := NewClickHouse(repo)
	require.NoError(t, err)
	require.Equal(t, "clickhouse", s.Name())
	require.NoError(t, s.Write(context.Background(), snap))
	repo.AssertExpectations(t)
}

func TestClickHouse_WriteError(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{}
	repo.On("WriteSnapshot", mock.Anything, mock.Anything).Return(errors.New("insert failed")).Once()

	s, err := NewClickHouse(repo)
	require.NoError(t, err)
	require.ErrorContains(t, s.Write(context.Background(), testSnapshot()), "insert failed")
}

func TestClickHouse_InvalidSnapshot(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{}
	s, err := NewClickHouse(repo)
	require.NoError(t, err)

	snap := testSnapshot()
	snap.Ledger = nil
	require.ErrorContains(t, s.Write(context.Background(), snap), "invalid snapshot")
	repo.AssertNotCalled(t, "WriteSnapshot", mock.Anything, mock.Anything)
}
