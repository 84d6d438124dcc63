// Package eventsource provides the log-query capability the fetcher runs
// against: an RPC-backed implementation over any eth_getLogs client and an
// in-memory implementation over a fixed set of logs.
package eventsource

import (
	"context"

	"github.com/ava-labs/libevm/common"
	"github.com/ava-labs/libevm/core/types"
)

// EventSource returns the logs emitted by contract whose first topic is one of
// topics, within the inclusive block range [from, to].
//
// Implementations must be safe for concurrent use.
type EventSource interface {
	QueryLogs(ctx context.Context, contract common.Address, topics []common.Hash, from, to uint64) ([]types.Log, error)
}
