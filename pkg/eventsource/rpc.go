package eventsource

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ava-labs/libevm/common"
	"github.com/ava-labs/libevm/core/types"
	"go.uber.org/zap"

	ethereum "github.com/ava-labs/libevm"

	"github.com/ava-labs/token-ledger/pkg/metrics"
)

const getLogsMethod = "eth_getLogs"

// LogFilterer is the subset of an Ethereum client used to query logs. The
// coreth, subnet-evm and libevm clients all satisfy it.
type LogFilterer interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// RPC queries logs through a node's eth_getLogs endpoint. Retries belong to
// the client; RPC only applies the optional per-query timeout.
type RPC struct {
	client       LogFilterer
	log          *zap.SugaredLogger
	metrics      *metrics.Metrics
	queryTimeout time.Duration
}

var _ EventSource = (*RPC)(nil)

// NewRPC creates an RPC event source. A zero queryTimeout disables the
// per-query deadline. metrics may be nil.
func NewRPC(client LogFilterer, log *zap.SugaredLogger, m *metrics.Metrics, queryTimeout time.Duration) (*RPC, error) {
	if client == nil {
		return nil, errors.New("invalid client: must not be nil")
	}
	if log == nil {
		return nil, errors.New("invalid logger: must not be nil")
	}
	if queryTimeout < 0 {
		return nil, errors.New("invalid query timeout: must not be negative")
	}
	return &RPC{
		client:       client,
		log:          log,
		metrics:      m,
		queryTimeout: queryTimeout,
	}, nil
}

// FilterQuery builds the eth_getLogs filter for a contract, a topic0 set and a range.
func FilterQuery(contract common.Address, topics []common.Hash, from, to uint64) ethereum.FilterQuery {
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{contract},
	}
	if len(topics) > 0 {
		q.Topics = [][]common.Hash{topics}
	}
	return q
}

func (r *RPC) QueryLogs(ctx context.Context, contract common.Address, topics []common.Hash, from, to uint64) ([]types.Log, error) {
	if r.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.queryTimeout)
		defer cancel()
	}

	r.metrics.IncRPCInFlight()
	defer r.metrics.DecRPCInFlight()

	start := time.Now()
	logs, err := r.client.FilterLogs(ctx, FilterQuery(contract, topics, from, to))
	rpcDuration := time.Since(start)
	r.metrics.RecordRPCCall(getLogsMethod, err, rpcDuration.Seconds())

	if err != nil {
		r.log.Warnw("eth_getLogs failed",
			"from", from,
			"to", to,
			"error", err,
			"duration_ms", rpcDuration.Milliseconds(),
		)
		return nil, fmt.Errorf("query logs [%d,%d]: %w", from, to, err)
	}

	r.log.Debugw("eth_getLogs succeeded",
		"from", from,
		"to", to,
		"logs", len(logs),
		"duration_ms", rpcDuration.Milliseconds(),
	)
	return logs, nil
}
