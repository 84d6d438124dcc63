// Package sink persists replayed ledgers. Sinks only ever see a complete
// ledger: a failed run never reaches them.
package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ava-labs/libevm/common"

	"github.com/ava-labs/token-ledger/pkg/ledger"
	"github.com/ava-labs/token-ledger/pkg/standard"
)

// Sink writes a ledger snapshot to a destination.
type Sink interface {
	Name() string
	Write(ctx context.Context, snap Snapshot) error
}

// Snapshot is a replayed ledger and the range it covers.
type Snapshot struct {
	ChainID   uint64
	Contract  common.Address
	Standard  standard.Standard
	FromBlock uint64
	ToBlock   uint64
	Ledger    *ledger.Ledger
}

// Key identifies the snapshot as <contract>:<toBlock>.
func (s Snapshot) Key() string {
	return fmt.Sprintf("%s:%d", strings.ToLower(s.Contract.Hex()), s.ToBlock)
}

func (s Snapshot) validate() error {
	if s.Ledger == nil {
		return errors.New("invalid snapshot: ledger must not be nil")
	}
	if s.FromBlock > s.ToBlock {
		return fmt.Errorf("invalid snapshot: from block %d after to block %d", s.FromBlock, s.ToBlock)
	}
	return nil
}

// Document is the serialized form shared by the file and Kafka sinks.
type Document struct {
	ChainID   uint64         `json:"chain_id"   yaml:"chain_id"`
	Contract  string         `json:"contract"   yaml:"contract"`
	Standard  string         `json:"standard"   yaml:"standard"`
	FromBlock uint64         `json:"from_block" yaml:"from_block"`
	ToBlock   uint64         `json:"to_block"   yaml:"to_block"`
	Ledger    *ledger.Ledger `json:"ledger"     yaml:"ledger"`
}

// NewDocument converts snap to its serialized form.
func NewDocument(snap Snapshot) Document {
	return Document{
		ChainID:   snap.ChainID,
		Contract:  strings.ToLower(snap.Contract.Hex()),
		Standard:  snap.Standard.String(),
		FromBlock: snap.FromBlock,
		ToBlock:   snap.ToBlock,
		Ledger:    snap.Ledger,
	}
}

// Multi writes to each sink in order and stops at the first error. Sinks
// before the failing one keep what they wrote, so a failed Write can leave the
// snapshot in some sinks only. Order remote stores before local output.
type Multi []Sink

var _ Sink = Multi(nil)

func (m Multi) Name() string {
	names := make([]string, len(m))
	for i, s := range m {
		names[i] = s.Name()
	}
	return strings.Join(names, ",")
}

func (m Multi) Write(ctx context.Context, snap Snapshot) error {
	for _, s := range m {
		if err := s.Write(ctx, snap); err != nil {
			return fmt.Errorf("failed to write ledger to %s: %w", s.Name(), err)
		}
	}
	return nil
}
