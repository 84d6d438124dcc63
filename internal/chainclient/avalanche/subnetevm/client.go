// Package subnetevm wraps the subnet-evm client used by L1s.
package subnetevm

import (
	"context"
	"fmt"
	"sync"

	"github.com/ava-labs/libevm/core/types"
	"github.com/ava-labs/subnet-evm/plugin/evm/customtypes"

	ethereum "github.com/ava-labs/libevm"
	subnetClient "github.com/ava-labs/subnet-evm/ethclient"
)

var registerOnce sync.Once

type Client struct {
	eth subnetClient.Client
}

// New dials a subnet-evm node.
func New(ctx context.Context, url string) (*Client, error) {
	registerOnce.Do(customtypes.Register)

	c, err := subnetClient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial subnet-evm rpc: %w", err)
	}
	return &Client{eth: c}, nil
}

func (c *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return c.eth.FilterLogs(ctx, q)
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

func (c *Client) Close() {
	c.eth.Close()
}
