package eventsource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/ava-labs/libevm/common"
	"github.com/ava-labs/libevm/core/types"
)

// Static serves queries from a fixed, read-only set of logs. It applies the
// same address, topic0 and range filtering a node would.
type Static struct {
	logs []types.Log
}

var _ EventSource = (*Static)(nil)

// NewStatic returns a source over a copy of logs.
func NewStatic(logs []types.Log) *Static {
	return &Static{logs: slices.Clone(logs)}
}

// LoadStatic reads a JSON array of logs in the eth_getLogs response encoding.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	var logs []types.Log
	if err := json.Unmarshal(data, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode log file %s: %w", path, err)
	}
	return &Static{logs: logs}, nil
}

// Len returns the number of logs held by the source.
func (s *Static) Len() int { return len(s.logs) }

// Head returns the highest block number among the held logs.
func (s *Static) Head() uint64 {
	var head uint64
	for _, l := range s.logs {
		head = max(head, l.BlockNumber)
	}
	return head
}

func (s *Static) QueryLogs(ctx context.Context, contract common.Address, topics []common.Hash, from, to uint64) ([]types.Log, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []types.Log
	for _, l := range s.logs {
		if l.Address != contract || l.BlockNumber < from || l.BlockNumber > to {
			continue
		}
		if len(topics) > 0 && (len(l.Topics) == 0 || !slices.Contains(topics, l.Topics[0])) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}
