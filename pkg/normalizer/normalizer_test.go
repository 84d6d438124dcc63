package normalizer

import (
	"math/big"
	"testing"

	"github.com/ava-labs/libevm/common"
	"github.com/ava-labs/libevm/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/token-ledger/pkg/standard"
	"github.com/ava-labs/token-ledger/pkg/transfer"
)

var (
	operator = common.HexToAddress("0x0000000000000000000000000000000000000009")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	bob      = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func addrTopic(a common.Address) common.Hash {
	return common.BytesToHash(a.Bytes())
}

func erc721Log(from, to common.Address, tokenID int64) types.Log {
	return types.Log{
		Topics: []common.Hash{
			standard.TransferTopic,
			addrTopic(from),
			addrTopic(to),
			common.BigToHash(big.NewInt(tokenID)),
		},
		BlockNumber: 10,
		TxIndex:     2,
		Index:       5,
	}
}

func singleLog(t *testing.T, from, to common.Address, id, value int64) types.Log {
	t.Helper()
	data, err := singleArgs.Pack(big.NewInt(id), big.NewInt(value))
	require.NoError(t, err)
	return types.Log{
		Topics:      []common.Hash{standard.TransferSingleTopic, addrTopic(operator), addrTopic(from), addrTopic(to)},
		Data:        data,
		BlockNumber: 20,
		TxIndex:     1,
		Index:       3,
	}
}

func batchLog(t *testing.T, from, to common.Address, ids, values []int64) types.Log {
	t.Helper()
	toBig := func(in []int64) []*big.Int {
		out := make([]*big.Int, len(in))
		for i, v := range in {
			out[i] = big.NewInt(v)
		}
		return out
	}
	data, err := batchArgs.Pack(toBig(ids), toBig(values))
	require.NoError(t, err)
	return types.Log{
		Topics:      []common.Hash{standard.TransferBatchTopic, addrTopic(operator), addrTopic(from), addrTopic(to)},
		Data:        data,
		BlockNumber: 30,
		TxIndex:     4,
		Index:       7,
	}
}

func TestNew(t *testing.T) {
	t.Parallel()
	_, err := New(standard.ERC20)
	require.ErrorIs(t, err, standard.ErrUnsupported)

	_, err = New("bogus")
	require.ErrorIs(t, err, standard.ErrUnknown)

	n, err := New(standard.ERC1155)
	require.NoError(t, err)
	require.Equal(t, standard.ERC1155, n.Standard())
}

func TestNormalize_ERC721(t *testing.T) {
	t.Parallel()
	n, err := New(standard.ERC721)
	require.NoError(t, err)

	recs, err := n.Normalize(erc721Log(transfer.ZeroAddress, alice, 7))
	require.NoError(t, err)
	require.Equal(t, []transfer.Transfer{{
		BlockNumber: 10,
		TxIndex:     2,
		LogIndex:    5,
		From:        transfer.ZeroAddress,
		To:          alice,
		AssetID:     "7",
		Amount:      big.NewInt(1),
	}}, recs)
	require.True(t, recs[0].IsMint())
}

func TestNormalize_ERC721LargeTokenID(t *testing.T) {
	t.Parallel()
	n, err := New(standard.ERC721)
	require.NoError(t, err)

	l := erc721Log(alice, bob, 0)
	l.Topics[3] = common.HexToHash("0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
	recs, err := n.Normalize(l)
	require.NoError(t, err)
	maxID := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	require.Equal(t, maxID.String(), recs[0].AssetID)
}

func TestNormalize_ERC1155Single(t *testing.T) {
	t.Parallel()
	n, err := New(standard.ERC1155)
	require.NoError(t, err)

	recs, err := n.Normalize(singleLog(t, alice, bob, 42, 100))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, alice, recs[0].From)
	assert.Equal(t, bob, recs[0].To)
	assert.Equal(t, "42", recs[0].AssetID)
	assert.Equal(t, big.NewInt(100), recs[0].Amount)
	assert.Equal(t, transfer.Key{Block: 20, Tx: 1, Log: 3}, recs[0].Key())
}

func TestNormalize_ERC1155BatchExpansion(t *testing.T) {
	t.Parallel()
	n, err := New(standard.ERC1155)
	require.NoError(t, err)

	recs, err := n.Normalize(batchLog(t, alice, bob, []int64{1, 2}, []int64{3, 5}))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "1", recs[0].AssetID)
	assert.Equal(t, big.NewInt(3), recs[0].Amount)
	assert.Equal(t, "2", recs[1].AssetID)
	assert.Equal(t, big.NewInt(5), recs[1].Amount)
	for _, r := range recs {
		assert.Equal(t, transfer.Key{Block: 30, Tx: 4, Log: 7}, r.Key())
		assert.Equal(t, alice, r.From)
		assert.Equal(t, bob, r.To)
	}
}

func TestNormalize_EmptyBatch(t *testing.T) {
	t.Parallel()
	n, err := New(standard.ERC1155)
	require.NoError(t, err)

	recs, err := n.Normalize(batchLog(t, alice, bob, nil, nil))
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestNormalize_Rejects(t *testing.T) {
	t.Parallel()

	erc20Transfer := erc721Log(alice, bob, 1)
	erc20Transfer.Topics = erc20Transfer.Topics[:3]

	truncated := singleLog(t, alice, bob, 1, 1)
	truncated.Data = truncated.Data[:40]

	removed := erc721Log(alice, bob, 1)
	removed.Removed = true

	tests := []struct {
		name    string
		std     standard.Standard
		log     types.Log
		wantErr error
	}{
		{name: "no topics", std: standard.ERC721, log: types.Log{}, wantErr: ErrMalformedEvent},
		{name: "erc20 shaped transfer", std: standard.ERC721, log: erc20Transfer, wantErr: ErrMalformedEvent},
		{name: "1155 event under 721", std: standard.ERC721, log: singleLog(t, alice, bob, 1, 1), wantErr: ErrMalformedEvent},
		{name: "721 event under 1155", std: standard.ERC1155, log: erc721Log(alice, bob, 1), wantErr: ErrMalformedEvent},
		{name: "truncated data", std: standard.ERC1155, log: truncated, wantErr: ErrMalformedEvent},
		{name: "length mismatch", std: standard.ERC1155, log: batchLog(t, alice, bob, []int64{1, 2}, []int64{3}), wantErr: ErrMalformedEvent},
		{name: "removed log", std: standard.ERC721, log: removed, wantErr: ErrRemovedLog},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			n, err := New(tt.std)
			require.NoError(t, err)
			recs, err := n.Normalize(tt.log)
			require.Nil(t, recs)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNormalize_ErrorNamesPosition(t *testing.T) {
	t.Parallel()
	n, err := New(standard.ERC1155)
	require.NoError(t, err)

	_, err = n.Normalize(batchLog(t, alice, bob, []int64{1}, []int64{1, 2}))
	require.ErrorContains(t, err, "block 30 tx 4 log 7")
}

func TestNormalizeAll(t *testing.T) {
	t.Parallel()
	n, err := New(standard.ERC1155)
	require.NoError(t, err)

	logs := []types.Log{
		batchLog(t, alice, bob, []int64{1, 2}, []int64{3, 5}),
		singleLog(t, bob, alice, 1, 1),
		singleLog(t, bob, alice, 1, 1),
	}
	recs, counts, err := n.NormalizeAll(logs)
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, []string{"1", "2", "1", "1"}, []string{recs[0].AssetID, recs[1].AssetID, recs[2].AssetID, recs[3].AssetID})
	assert.Equal(t, Counts{KindTransferBatch: 2, KindTransferSingle: 2}, counts)

	logs = append(logs, erc721Log(alice, bob, 1))
	recs, counts, err = n.NormalizeAll(logs)
	require.ErrorIs(t, err, ErrMalformedEvent)
	assert.Nil(t, recs)
	assert.Nil(t, counts)
}

func TestCounts_Add(t *testing.T) {
	t.Parallel()
	c := Counts{KindTransferSingle: 1}
	c.Add(Counts{KindTransferSingle: 2, KindTransferBatch: 3})
	c.Add(nil)
	assert.Equal(t, Counts{KindTransferSingle: 3, KindTransferBatch: 3}, c)
}

func TestKindOf(t *testing.T) {
	t.Parallel()
	require.Equal(t, KindTransfer, KindOf(standard.TransferTopic))
	require.Equal(t, KindTransferSingle, KindOf(standard.TransferSingleTopic))
	require.Equal(t, KindTransferBatch, KindOf(standard.TransferBatchTopic))
	require.Equal(t, KindUnknown, KindOf(common.Hash{}))
}
