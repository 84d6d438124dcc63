package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ava-labs/token-ledger/pkg/clickhouse"
	"github.com/ava-labs/token-ledger/pkg/data/clickhouse/balances"
	"github.com/ava-labs/token-ledger/pkg/utils"
)

func remove(c *cli.Context) error {
	sugar, err := utils.NewSugaredLogger(c.Bool("verbose"))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer sugar.Desugar().Sync() //nolint:errcheck // best-effort flush; ignore sync errors

	chainID := c.Uint64("chain-id")
	if chainID == 0 {
		return errors.New("chain ID is required")
	}
	contract, err := utils.ParseAddress(c.String("contract"))
	if err != nil {
		return fmt.Errorf("invalid contract: %w", err)
	}

	chCfg, err := buildClickHouseConfig(c)
	if err != nil {
		return fmt.Errorf("failed to build ClickHouse config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chClient, err := clickhouse.New(ctx, chCfg, sugar)
	if err != nil {
		return fmt.Errorf("failed to create ClickHouse client: %w", err)
	}
	defer chClient.Close()

	repo, err := balances.NewRepository(ctx, chClient, chCfg.Database, chCfg.BalancesTable, chCfg.Cluster)
	if err != nil {
		return fmt.Errorf("failed to create balances repository: %w", err)
	}

	if err := repo.DeleteSnapshots(ctx, chainID, contract); err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}

	sugar.Infow("snapshots removed",
		"chainID", chainID,
		"contract", contract.Hex(),
		"table", chCfg.BalancesTable,
	)
	return nil
}
