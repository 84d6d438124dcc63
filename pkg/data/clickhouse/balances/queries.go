package balances

import "fmt"

// balanceColumns is the column list for the balances table (9 columns)
const balanceColumns = `chain_id, contract, standard, from_block, to_block, owner, asset_id, balance, inserted_at`

func qualified(database, table string) string {
	if database == "" {
		return table
	}
	return database + "." + table
}

func onCluster(cluster string) string {
	if cluster == "" {
		return ""
	}
	return " ON CLUSTER " + cluster
}

// CreateTableQuery returns the DDL for the balances table. Rows are
// deduplicated per (chain, contract, end block, owner, asset) keeping the
// latest insert. Balances span ±(2^256-1), wider than Int256, so they are
// stored as decimal strings.
func CreateTableQuery(database, table, cluster string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s%s (
		chain_id UInt64,
		contract LowCardinality(String),
		standard LowCardinality(String),
		from_block UInt64,
		to_block UInt64,
		owner String,
		asset_id String,
		balance String,
		inserted_at DateTime64(3, 'UTC')
	)
	ENGINE = ReplacingMergeTree(inserted_at)
	ORDER BY (chain_id, contract, to_block, owner, asset_id)`, qualified(database, table), onCluster(cluster))
}

// InsertQueryForBatch returns the INSERT query without VALUES clause (for PrepareBatch)
func InsertQueryForBatch(database, table string) string {
	return `INSERT INTO ` + qualified(database, table) + ` (` + balanceColumns + `)`
}

// SelectSnapshotQuery expects chain_id, contract and to_block parameters.
func SelectSnapshotQuery(database, table string) string {
	return `SELECT owner, asset_id, balance FROM ` + qualified(database, table) +
		` FINAL WHERE chain_id = ? AND contract = ? AND to_block = ? ORDER BY owner, asset_id`
}

// DeleteSnapshotsQuery expects chain_id and contract parameters.
func DeleteSnapshotsQuery(database, table, cluster string) string {
	return `ALTER TABLE ` + qualified(database, table) + onCluster(cluster) +
		` DELETE WHERE chain_id = ? AND contract = ?`
}
