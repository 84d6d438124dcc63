package testutils

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2/lib/column"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/stretchr/testify/mock"
)

var (
	_ driver.Conn  = (*MockConn)(nil)
	_ driver.Batch = (*MockBatch)(nil)
)

// MockConn is a testify mock of driver.Conn. Variadic query arguments are
// flattened into the expectation after ctx and query.
type MockConn struct {
	mock.Mock
}

func withQuery(ctx context.Context, query string, args []any) []any {
	return append([]any{ctx, query}, args...)
}

func (m *MockConn) Contributors() []string {
	return m.Called().Get(0).([]string)
}

func (m *MockConn) ServerVersion() (*driver.ServerVersion, error) {
	args := m.Called()
	v, _ := args.Get(0).(*driver.ServerVersion)
	return v, args.Error(1)
}

func (m *MockConn) Select(ctx context.Context, _ any, query string, args ...any) error {
	return m.Called(withQuery(ctx, query, args)...).Error(0)
}

func (m *MockConn) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	res := m.Called(withQuery(ctx, query, args)...)
	rows, _ := res.Get(0).(driver.Rows)
	return rows, res.Error(1)
}

func (m *MockConn) QueryRow(ctx context.Context, query string, args ...any) driver.Row {
	row, _ := m.Called(withQuery(ctx, query, args)...).Get(0).(driver.Row)
	return row
}

func (m *MockConn) Exec(ctx context.Context, query string, args ...any) error {
	return m.Called(withQuery(ctx, query, args)...).Error(0)
}

func (m *MockConn) AsyncInsert(ctx context.Context, query string, wait bool, args ...any) error {
	return m.Called(append([]any{ctx, query, wait}, args...)...).Error(0)
}

func (m *MockConn) PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error) {
	callArgs := []any{ctx, query}
	for _, opt := range opts {
		callArgs = append(callArgs, opt)
	}
	res := m.Called(callArgs...)
	batch, _ := res.Get(0).(driver.Batch)
	return batch, res.Error(1)
}

func (m *MockConn) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockConn) Stats() driver.Stats {
	stats, _ := m.Called().Get(0).(driver.Stats)
	return stats
}

func (m *MockConn) Close() error {
	return m.Called().Error(0)
}

// MockBatch is a testify mock of driver.Batch. Append calls receive the row
// values spread as arguments.
type MockBatch struct {
	mock.Mock
}

func (b *MockBatch) Abort() error { return b.Called().Error(0) }

func (b *MockBatch) Append(v ...any) error { return b.Called(v...).Error(0) }

func (b *MockBatch) AppendStruct(v any) error { return b.Called(v).Error(0) }

func (b *MockBatch) Column(i int) driver.BatchColumn {
	col, _ := b.Called(i).Get(0).(driver.BatchColumn)
	return col
}

func (b *MockBatch) Flush() error { return b.Called().Error(0) }

func (b *MockBatch) Send() error { return b.Called().Error(0) }

func (b *MockBatch) IsSent() bool { return b.Called().Bool(0) }

func (b *MockBatch) Rows() int { return b.Called().Int(0) }

func (b *MockBatch) Columns() []column.Interface {
	cols, _ := b.Called().Get(0).([]column.Interface)
	return cols
}

func (b *MockBatch) Close() error { return b.Called().Error(0) }
