package sink

import (
	"context"
	"errors"

	"github.com/ava-labs/token-ledger/pkg/data/clickhouse/balances"
)

// ClickHouse writes one balances row per ledger entry.
type ClickHouse struct {
	repo balances.Repository
}

var _ Sink = (*ClickHouse)(nil)

func NewClickHouse(repo balances.Repository) (*ClickHouse, error) {
	if repo == nil {
		return nil, errors.New("invalid repository: must not be nil")
	}
	return &ClickHouse{repo: repo}, nil
}

func (c *ClickHouse) Name() string { return "clickhouse" }

func (c *ClickHouse) Write(ctx context.Context, snap Snapshot) error {
	if err := snap.validate(); err != nil {
		return err
	}
	return c.repo.WriteSnapshot(ctx, balances.Snapshot{
		ChainID:   snap.ChainID,
		Contract:  snap.Contract,
		Standard:  snap.Standard.String(),
		FromBlock: snap.FromBlock,
		ToBlock:   snap.ToBlock,
		Entries:   snap.Ledger.Entries(),
	})
}
