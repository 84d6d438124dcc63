package sink

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ava-labs/token-ledger/pkg/metrics"
)

func fastRetry() RetryConfig {
	return RetryConfig{WriteTimeout: time.Second, MaxRetries: 2, RetryBackoff: time.Millisecond}
}

func TestRetryConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     RetryConfig
		wantErr string
	}{
		{name: "default", cfg: DefaultRetryConfig()},
		{name: "no retries", cfg: RetryConfig{WriteTimeout: time.Second}},
		{name: "zero timeout", cfg: RetryConfig{}, wantErr: "write timeout"},
		{name: "negative retries", cfg: RetryConfig{WriteTimeout: time.Second, MaxRetries: -1}, wantErr: "max retries"},
		{name: "negative backoff", cfg: RetryConfig{WriteTimeout: time.Second, RetryBackoff: -time.Second}, wantErr: "retry backoff"},
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

func TestWithRetry_Validation(t *testing.T) {
	t.Parallel()
	log := zaptest.NewLogger(t).Sugar()

	_, err := WithRetry(nil, fastRetry(), log, nil)
	require.ErrorContains(t, err, "invalid sink")

	_, err = WithRetry(&mockSink{name: "file"}, fastRetry(), nil, nil)
	require.ErrorContains(t, err, "invalid logger")

	_, err = WithRetry(&mockSink{name: "file"}, RetryConfig{}, log, nil)
	require.ErrorContains(t, err, "invalid retry config")
}

func TestWithRetry_RecoversAndRecordsAttempts(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	snap := testSnapshot()
	inner := &mockSink{name: "clickhouse"}
	inner.On("Write", mock.Anything, snap).Return(errors.New("timeout")).Once()
	inner.On("Write", mock.Anything, snap).Return(nil).Once()

	s, err := WithRetry(inner, fastRetry(), zaptest.NewLogger(t).Sugar(), m)
	require.NoError(t, err)
	assert.Equal(t, "clickhouse", s.Name())
	require.NoError(t, s.Write(context.Background(), snap))
	inner.AssertExpectations(t)

	expected := `
# HELP tokenledger_sink_writes_total Total ledger snapshot writes by sink and status
# TYPE tokenledger_sink_writes_total counter
tokenledger_sink_writes_total{sink="clickhouse",status="error"} 1
tokenledger_sink_writes_total{sink="clickhouse",status="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "tokenledger_sink_writes_total"))
}

func TestWithRetry_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	inner := &mockSink{name: "kafka"}
	inner.On("Write", mock.Anything, mock.Anything).Return(errors.New("broker down")).Times(3)

	s, err := WithRetry(inner, fastRetry(), zaptest.NewLogger(t).Sugar(), nil)
	require.NoError(t, err)

	err = s.Write(context.Background(), testSnapshot())
	require.ErrorContains(t, err, "failed to write ledger 0xabcdef0000000000000000000000000000000001:20 to kafka after 3 attempts: broker down")
	inner.AssertExpectations(t)
}

func TestWithRetry_AppliesWriteTimeout(t *testing.T) {
	t.Parallel()

	inner := &mockSink{name: "file"}
	inner.On("Write", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= time.Second
	}), mock.Anything).Return(nil).Once()

	s, err := WithRetry(inner, fastRetry(), zaptest.NewLogger(t).Sugar(), nil)
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), testSnapshot()))
	inner.AssertExpectations(t)
}

func TestWithRetry_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	inner := &mockSink{name: "file"}
	inner.On("Write", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(errors.New("interrupted")).Once()

	cfg := fastRetry()
	cfg.RetryBackoff = time.Hour
	s, err := WithRetry(inner, cfg, zaptest.NewLogger(t).Sugar(), nil)
	require.NoError(t, err)

	require.ErrorIs(t, s.Write(ctx, testSnapshot()), context.Canceled)
	inner.AssertNumberOfCalls(t, "Write", 1)
}

func TestWithRetry_LogsEachFailedAttempt(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core).Sugar()

	snap := testSnapshot()
	inner := &mockSink{name: "kafka"}
	inner.On("Write", mock.Anything, snap).Return(errors.New("broker down")).Twice()
	inner.On("Write", mock.Anything, snap).Return(nil).Once()

	s, err := WithRetry(inner, fastRetry(), log, nil)
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), snap))

	failed := logs.FilterMessage("ledger snapshot write failed").All()
	require.Len(t, failed, 2)
	for i, entry := range failed {
		assert.Equal(t, zap.WarnLevel, entry.Level)
		fields := entry.ContextMap()
		assert.Equal(t, "kafka", fields["sink"])
		assert.EqualValues(t, i+1, fields["attempt"])
	}

	wrote := logs.FilterMessage("wrote ledger snapshot").All()
	require.Len(t, wrote, 1)
	assert.EqualValues(t, 3, wrote[0].ContextMap()["attempt"])
	assert.Equal(t, snap.Key(), wrote[0].ContextMap()["key"])
}
