// Package coreth wraps the C-Chain client.
package coreth

import (
	"context"
	"fmt"
	"sync"

	"github.com/ava-labs/coreth/plugin/evm/customethclient"
	"github.com/ava-labs/coreth/plugin/evm/customtypes"
	"github.com/ava-labs/coreth/rpc"
	"github.com/ava-labs/libevm/core/types"

	ethereum "github.com/ava-labs/libevm"
)

// Header and block extras can only be registered once per process.
var registerOnce sync.Once

// Client wraps the underlying RPC and eth clients.
type Client struct {
	rpc *rpc.Client
	eth *customethclient.Client
}

// New dials a coreth node.
func New(ctx context.Context, url string) (*Client, error) {
	registerOnce.Do(customtypes.Register)

	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial coreth rpc: %w", err)
	}
	return &Client{rpc: c, eth: customethclient.New(c)}, nil
}

func (c *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return c.eth.FilterLogs(ctx, q)
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	c.rpc.Close()
}
