// Package normalizer maps raw ERC-721 and ERC-1155 transfer logs into
// canonical transfer records.
package normalizer

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ava-labs/libevm/accounts/abi"
	"github.com/ava-labs/libevm/common"
	"github.com/ava-labs/libevm/core/types"

	"github.com/ava-labs/token-ledger/pkg/standard"
	"github.com/ava-labs/token-ledger/pkg/transfer"
)

var (
	ErrMalformedEvent = errors.New("malformed transfer event")
	ErrRemovedLog     = errors.New("removed log")
)

// Event kinds, used as metric label values.
const (
	KindTransfer       = "transfer"
	KindTransferSingle = "transfer_single"
	KindTransferBatch  = "transfer_batch"
	KindUnknown        = "unknown"
)

var (
	uint256Ty, _      = abi.NewType("uint256", "", nil)
	uint256SliceTy, _ = abi.NewType("uint256[]", "", nil)

	// TransferSingle data: (id, value)
	singleArgs = abi.Arguments{{Name: "id", Type: uint256Ty}, {Name: "value", Type: uint256Ty}}
	// TransferBatch data: (ids, values)
	batchArgs = abi.Arguments{{Name: "ids", Type: uint256SliceTy}, {Name: "values", Type: uint256SliceTy}}
)

var one = big.NewInt(1)

// Normalizer is a pure function of the configured standard and a log.
type Normalizer struct {
	std standard.Standard
}

func New(std standard.Standard) (*Normalizer, error) {
	if err := std.Validate(); err != nil {
		return nil, err
	}
	return &Normalizer{std: std}, nil
}

func (n *Normalizer) Standard() standard.Standard { return n.std }

// KindOf names the event kind of a topic0.
func KindOf(topic0 common.Hash) string {
	switch topic0 {
	case standard.TransferTopic:
		return KindTransfer
	case standard.TransferSingleTopic:
		return KindTransferSingle
	case standard.TransferBatchTopic:
		return KindTransferBatch
	default:
		return KindUnknown
	}
}

// Normalize maps one log to its transfer records. Batch logs produce one
// record per array index, in array order, all sharing the log's position.
func (n *Normalizer) Normalize(l types.Log) ([]transfer.Transfer, error) {
	if l.Removed {
		return nil, fmt.Errorf("%w at %s", ErrRemovedLog, position(l))
	}
	if len(l.Topics) == 0 {
		return nil, malformed(l, "no topics")
	}

	switch n.std {
	case standard.ERC721:
		if l.Topics[0] != standard.TransferTopic {
			return nil, malformed(l, "unexpected topic0 "+l.Topics[0].Hex())
		}
		return n.erc721(l)
	case standard.ERC1155:
		switch l.Topics[0] {
		case standard.TransferSingleTopic:
			return n.erc1155Single(l)
		case standard.TransferBatchTopic:
			return n.erc1155Batch(l)
		default:
			return nil, malformed(l, "unexpected topic0 "+l.Topics[0].Hex())
		}
	default:
		return nil, fmt.Errorf("%w: %q", standard.ErrUnknown, string(n.std))
	}
}

// Counts holds the number of records produced per event kind.
type Counts map[string]int

// Add merges o into c.
func (c Counts) Add(o Counts) {
	for kind, n := range o {
		c[kind] += n
	}
}

// NormalizeAll normalizes logs in input order and concatenates the records.
// No deduplication is performed.
func (n *Normalizer) NormalizeAll(logs []types.Log) ([]transfer.Transfer, Counts, error) {
	out := make([]transfer.Transfer, 0, len(logs))
	counts := make(Counts)
	for _, l := range logs {
		recs, err := n.Normalize(l)
		if err != nil {
			return nil, nil, err
		}
		counts[KindOf(l.Topics[0])] += len(recs)
		out = append(out, recs...)
	}
	return out, counts, nil
}

// Transfer(address indexed from, address indexed to, uint256 indexed tokenId)
func (n *Normalizer) erc721(l types.Log) ([]transfer.Transfer, error) {
	if len(l.Topics) != 4 {
		// ERC-20 Transfer shares topic0 but indexes only from/to.
		return nil, malformed(l, fmt.Sprintf("expected 4 topics, got %d", len(l.Topics)))
	}
	tokenID := new(big.Int).SetBytes(l.Topics[3].Bytes())
	return []transfer.Transfer{
		record(l, topicAddress(l.Topics[1]), topicAddress(l.Topics[2]), tokenID, new(big.Int).Set(one)),
	}, nil
}

// TransferSingle(address indexed operator, address indexed from, address indexed to, uint256 id, uint256 value)
func (n *Normalizer) erc1155Single(l types.Log) ([]transfer.Transfer, error) {
	if len(l.Topics) != 4 {
		return nil, malformed(l, fmt.Sprintf("expected 4 topics, got %d", len(l.Topics)))
	}
	vals, err := singleArgs.Unpack(l.Data)
	if err != nil {
		return nil, malformed(l, "decode data: "+err.Error())
	}
	id, ok1 := vals[0].(*big.Int)
	value, ok2 := vals[1].(*big.Int)
	if !ok1 || !ok2 {
		return nil, malformed(l, "unexpected data layout")
	}
	return []transfer.Transfer{
		record(l, topicAddress(l.Topics[2]), topicAddress(l.Topics[3]), id, value),
	}, nil
}

// TransferBatch(address indexed operator, address indexed from, address indexed to, uint256[] ids, uint256[] values)
func (n *Normalizer) erc1155Batch(l types.Log) ([]transfer.Transfer, error) {
	if len(l.Topics) != 4 {
		return nil, malformed(l, fmt.Sprintf("expected 4 topics, got %d", len(l.Topics)))
	}
	vals, err := batchArgs.Unpack(l.Data)
	if err != nil {
		return nil, malformed(l, "decode data: "+err.Error())
	}
	ids, ok1 := vals[0].([]*big.Int)
	values, ok2 := vals[1].([]*big.Int)
	if !ok1 || !ok2 {
		return nil, malformed(l, "unexpected data layout")
	}
	if len(ids) != len(values) {
		return nil, malformed(l, fmt.Sprintf("ids/values length mismatch: %d != %d", len(ids), len(values)))
	}

	from, to := topicAddress(l.Topics[2]), topicAddress(l.Topics[3])
	out := make([]transfer.Transfer, len(ids))
	for i := range ids {
		out[i] = record(l, from, to, ids[i], values[i])
	}
	return out, nil
}

func record(l types.Log, from, to common.Address, id, amount *big.Int) transfer.Transfer {
	return transfer.Transfer{
		BlockNumber: l.BlockNumber,
		TxIndex:     l.TxIndex,
		LogIndex:    l.Index,
		From:        from,
		To:          to,
		AssetID:     id.String(),
		Amount:      amount,
	}
}

func topicAddress(h common.Hash) common.Address {
	return common.BytesToAddress(h.Bytes())
}

func position(l types.Log) string {
	return fmt.Sprintf("block %d tx %d log %d", l.BlockNumber, l.TxIndex, l.Index)
}

func malformed(l types.Log, reason string) error {
	return fmt.Errorf("%w at %s: %s", ErrMalformedEvent, position(l), reason)
}
