// Package sequencer imposes the deterministic total order transfer records
// are replayed in.
package sequencer

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ava-labs/token-ledger/pkg/transfer"
)

var ErrOutOfOrder = errors.New("transfer records out of order")

// Sort orders records in place by (block, tx, log) ascending. The sort is
// stable: records sharing a key, as produced by one batch log, keep their
// relative order.
func Sort(records []transfer.Transfer) {
	slices.SortStableFunc(records, transfer.Compare)
}

// Verify reports the first adjacent pair whose keys decrease.
func Verify(records []transfer.Transfer) error {
	for i := 1; i < len(records); i++ {
		if transfer.Compare(records[i-1], records[i]) > 0 {
			return fmt.Errorf("%w: record %d (%s) precedes record %d (%s)",
				ErrOutOfOrder, i-1, records[i-1].Key(), i, records[i].Key())
		}
	}
	return nil
}
