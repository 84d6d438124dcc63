//go:build e2e

package e2e

import (
	"fmt"
	"math/big"
	"os"
	"testing"

	"github.com/ava-labs/libevm/common"
	"github.com/ava-labs/libevm/core/types"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/token-ledger/pkg/data/clickhouse/balances"
	"github.com/ava-labs/token-ledger/pkg/ledger"
	"github.com/ava-labs/token-ledger/pkg/standard"
)

func getEnvStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvUint64(key string, def uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		var out uint64
		_, _ = fmt.Sscanf(v, "%d", &out)
		if out != 0 {
			return out
		}
	}
	return def
}

func word(v int64) []byte {
	return common.BigToHash(big.NewInt(v)).Bytes()
}

func addrTopic(a common.Address) common.Hash {
	return common.BytesToHash(a.Bytes())
}

// transferSingle builds an ERC-1155 TransferSingle log.
func transferSingle(contract common.Address, block uint64, idx uint, from, to common.Address, id, value int64) types.Log {
	return types.Log{
		Address:     contract,
		Topics:      []common.Hash{standard.TransferSingleTopic, addrTopic(to), addrTopic(from), addrTopic(to)},
		Data:        append(word(id), word(value)...),
		BlockNumber: block,
		Index:       idx,
	}
}

// requireRowsMatch checks that the persisted rows hold exactly the ledger's entries.
func requireRowsMatch(t *testing.T, l *ledger.Ledger, rows []balances.Row) {
	t.Helper()
	want := make(map[string]string, l.Len())
	for _, e := range l.Entries() {
		want[balances.Address(e.Owner)+"/"+e.AssetID] = e.Balance.String()
	}
	got := make(map[string]string, len(rows))
	for _, r := range rows {
		got[r.Owner+"/"+r.AssetID] = r.Balance.String()
	}
	require.Equal(t, want, got)
}
