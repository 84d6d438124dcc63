// Package transfer defines the canonical, standard-agnostic transfer record
// produced by the normalizer and consumed by the sequencer and ledger replayer.
package transfer

import (
	"cmp"
	"fmt"
	"math/big"

	"github.com/ava-labs/libevm/common"
)

// ZeroAddress is the sentinel owner used by token contracts for mints (as the
// sender) and burns (as the recipient).
var ZeroAddress = common.Address{}

// Key is the chain's natural total order for events.
type Key struct {
	Block uint64
	Tx    uint
	Log   uint
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%d/%d", k.Block, k.Tx, k.Log)
}

// Compare orders keys by block number, then transaction index, then log index.
func (k Key) Compare(o Key) int {
	if c := cmp.Compare(k.Block, o.Block); c != 0 {
		return c
	}
	if c := cmp.Compare(k.Tx, o.Tx); c != 0 {
		return c
	}
	return cmp.Compare(k.Log, o.Log)
}

// Transfer moves Amount units of AssetID from From to To.
//
// Records expanded from a single multi-asset batch log share the same Key and
// differ only in AssetID and Amount.
type Transfer struct {
	BlockNumber uint64
	TxIndex     uint
	LogIndex    uint
	From        common.Address
	To          common.Address
	AssetID     string
	Amount      *big.Int
}

// Key returns the ordering key of the record.
func (t Transfer) Key() Key {
	return Key{Block: t.BlockNumber, Tx: t.TxIndex, Log: t.LogIndex}
}

// IsMint reports whether the transfer creates units.
func (t Transfer) IsMint() bool { return t.From == ZeroAddress }

// IsBurn reports whether the transfer destroys units.
func (t Transfer) IsBurn() bool { return t.To == ZeroAddress }

// Compare orders two records by their keys. Records with equal keys compare as 0.
func Compare(a, b Transfer) int {
	return a.Key().Compare(b.Key())
}
