// Package standard enumerates the asset standards a contract can be replayed
// under and the event signatures each of them emits.
package standard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ava-labs/libevm/common"
	"github.com/ava-labs/libevm/crypto"
)

// Standard selects the event-shape variant of the contract being replayed.
type Standard string

const (
	// ERC721 is the single-ownership (non-fungible) standard.
	ERC721 Standard = "erc721"
	// ERC1155 is the multi-asset standard with single and batch transfer events.
	ERC1155 Standard = "erc1155"
	// ERC20 is recognised so it can be rejected with a clear message; fungible-only
	// contracts are not replayed.
	ERC20 Standard = "erc20"
)

var (
	ErrUnknown     = errors.New("unknown asset standard")
	ErrUnsupported = errors.New("unsupported asset standard")
)

// Event signatures.
var (
	TransferSig       = "Transfer(address,address,uint256)"
	TransferSingleSig = "TransferSingle(address,address,address,uint256,uint256)"
	TransferBatchSig  = "TransferBatch(address,address,address,uint256[],uint256[])"

	TransferTopic       = crypto.Keccak256Hash([]byte(TransferSig))
	TransferSingleTopic = crypto.Keccak256Hash([]byte(TransferSingleSig))
	TransferBatchTopic  = crypto.Keccak256Hash([]byte(TransferBatchSig))
)

// Parse resolves a user supplied selector. ERC-20 is recognised but rejected
// with ErrUnsupported.
func Parse(s string) (Standard, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "erc721", "erc-721", "721":
		return ERC721, nil
	case "erc1155", "erc-1155", "1155":
		return ERC1155, nil
	case "erc20", "erc-20", "20":
		return "", fmt.Errorf("%w: %s (fungible-only contracts are not supported, use erc721 or erc1155)", ErrUnsupported, ERC20)
	default:
		return "", fmt.Errorf("%w: %q (expected erc721 or erc1155)", ErrUnknown, s)
	}
}

// Validate returns an error unless s is a replayable standard.
func (s Standard) Validate() error {
	switch s {
	case ERC721, ERC1155:
		return nil
	case ERC20:
		return fmt.Errorf("%w: %s", ErrUnsupported, s)
	default:
		return fmt.Errorf("%w: %q", ErrUnknown, string(s))
	}
}

// Topics returns the topic0 values to filter for. They are passed as a single
// OR-set in the first topic position of the log query.
func (s Standard) Topics() []common.Hash {
	switch s {
	case ERC721:
		return []common.Hash{TransferTopic}
	case ERC1155:
		return []common.Hash{TransferSingleTopic, TransferBatchTopic}
	default:
		return nil
	}
}

func (s Standard) String() string { return string(s) }
