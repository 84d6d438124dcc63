// Package evm wraps the plain libevm client for chains without Avalanche
// header extras.
package evm

import (
	"context"
	"fmt"

	"github.com/ava-labs/libevm/core/types"
	"github.com/ava-labs/libevm/ethclient"

	ethereum "github.com/ava-labs/libevm"
)

type Client struct {
	eth *ethclient.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial evm rpc: %w", err)
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
