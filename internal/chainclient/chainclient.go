// Package chainclient dials the node client matching the chain's VM.
package chainclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ava-labs/libevm/core/types"

	ethereum "github.com/ava-labs/libevm"

	"github.com/ava-labs/token-ledger/internal/chainclient/avalanche/coreth"
	"github.com/ava-labs/token-ledger/internal/chainclient/avalanche/subnetevm"
	"github.com/ava-labs/token-ledger/internal/chainclient/evm"
	"github.com/ava-labs/token-ledger/pkg/metrics"
)

const blockNumberMethod = "eth_blockNumber"

// Type selects the client implementation.
type Type string

const (
	TypeCoreth    Type = "coreth"
	TypeSubnetEVM Type = "subnet-evm"
	TypeEVM       Type = "evm"
)

var ErrUnknownType = errors.New("unknown client type")

// ParseType accepts coreth, subnet-evm or evm.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeCoreth, TypeSubnetEVM, TypeEVM:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q (want coreth, subnet-evm or evm)", ErrUnknownType, s)
	}
}

// Client is what the ledger needs from a node: log queries and the chain head.
type Client interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
	Close()
}

var (
	_ Client = (*coreth.Client)(nil)
	_ Client = (*subnetevm.Client)(nil)
	_ Client = (*evm.Client)(nil)
)

// Dial connects to url with the client for t. BlockNumber calls are recorded
// in m, which may be nil.
func Dial(ctx context.Context, t Type, url string, m *metrics.Metrics) (Client, error) {
	var (
		c   Client
		err error
	)
	switch t {
	case TypeCoreth:
		c, err = coreth.New(ctx, url)
	case TypeSubnetEVM:
		c, err = subnetevm.New(ctx, url)
	case TypeEVM:
		c, err = evm.New(ctx, url)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	if err != nil {
		return nil, err
	}
	return &measured{Client: c, metrics: m}, nil
}

type measured struct {
	Client
	metrics *metrics.Metrics
}

func (c *measured) BlockNumber(ctx context.Context) (uint64, error) {
	start := time.Now()
	c.metrics.IncRPCInFlight()
	defer c.metrics.DecRPCInFlight()

	n, err := c.Client.BlockNumber(ctx)
	c.metrics.RecordRPCCall(blockNumberMethod, err, time.Since(start).Seconds())
	if err != nil {
		return 0, fmt.Errorf("get latest block number: %w", err)
	}
	return n, nil
}
