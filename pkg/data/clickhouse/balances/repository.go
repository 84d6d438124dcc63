// Package balances persists ledger snapshots to ClickHouse, one row per
// owner/asset entry.
package balances

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ava-labs/libevm/common"

	"github.com/ava-labs/token-ledger/pkg/clickhouse"
	"github.com/ava-labs/token-ledger/pkg/ledger"
)

// Snapshot identifies the replay a set of entries belongs to.
type Snapshot struct {
	ChainID   uint64
	Contract  common.Address
	Standard  string
	FromBlock uint64
	ToBlock   uint64
	Entries   []ledger.Entry
}

// Row is a persisted owner/asset balance.
type Row struct {
	Owner   string
	AssetID string
	Balance *big.Int
}

type Repository interface {
	CreateTableIfNotExists(ctx context.Context) error
	WriteSnapshot(ctx context.Context, snap Snapshot) error
	ReadSnapshot(ctx context.Context, chainID uint64, contract common.Address, toBlock uint64) ([]Row, error)
	DeleteSnapshots(ctx context.Context, chainID uint64, contract common.Address) error
}

var _ Repository = (*repository)(nil)

type repository struct {
	client   clickhouse.Client
	database string
	table    string
	cluster  string
	now      func() time.Time
}

// NewRepository creates the repository and ensures the table exists.
func NewRepository(ctx context.Context, client clickhouse.Client, database, table, cluster string) (Repository, error) {
	if client == nil {
		return nil, errors.New("invalid client: must not be nil")
	}
	if table == "" {
		return nil, errors.New("invalid table name: must not be empty")
	}
	repo := &repository{
		client:   client,
		database: database,
		table:    table,
		cluster:  cluster,
		now:      time.Now,
	}
	if err := repo.CreateTableIfNotExists(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize balances table: %w", err)
	}
	return repo, nil
}

func (r *repository) CreateTableIfNotExists(ctx context.Context) error {
	if err := r.client.Conn().Exec(ctx, CreateTableQuery(r.database, r.table, r.cluster)); err != nil {
		return fmt.Errorf("failed to create balances table: %w", err)
	}
	return nil
}

// Address renders an address the way it is stored.
func Address(a common.Address) string {
	return strings.ToLower(a.Hex())
}

// WriteSnapshot inserts every entry in a single batch. An empty snapshot
// writes nothing.
func (r *repository) WriteSnapshot(ctx context.Context, snap Snapshot) error {
	if len(snap.Entries) == 0 {
		return nil
	}

	batch, err := r.client.Conn().PrepareBatch(ctx, InsertQueryForBatch(r.database, r.table))
	if err != nil {
		return fmt.Errorf("failed to prepare balances batch: %w", err)
	}

	contract := Address(snap.Contract)
	insertedAt := r.now().UTC()
	for _, e := range snap.Entries {
		err := batch.Append(
			snap.ChainID,
			contract,
			snap.Standard,
			snap.FromBlock,
			snap.ToBlock,
			Address(e.Owner),
			e.AssetID,
			e.Balance.String(),
			insertedAt,
		)
		if err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append balance %s/%s: %w", e.Owner.Hex(), e.AssetID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send balances batch: %w", err)
	}
	return nil
}

func (r *repository) ReadSnapshot(ctx context.Context, chainID uint64, contract common.Address, toBlock uint64) ([]Row, error) {
	rows, err := r.client.Conn().Query(ctx, SelectSnapshotQuery(r.database, r.table), chainID, Address(contract), toBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to read balances: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			row     Row
			balance string
		)
		if err := rows.Scan(&row.Owner, &row.AssetID, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		v, ok := new(big.Int).SetString(balance, 10)
		if !ok {
			return nil, fmt.Errorf("failed to parse balance %q", balance)
		}
		row.Balance = v
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read balances: %w", err)
	}
	return out, nil
}

func (r *repository) DeleteSnapshots(ctx context.Context, chainID uint64, contract common.Address) error {
	query := DeleteSnapshotsQuery(r.database, r.table, r.cluster)
	if err := r.client.Conn().Exec(ctx, query, chainID, Address(contract)); err != nil {
		return fmt.Errorf("failed to delete balances: %w", err)
	}
	return nil
}
