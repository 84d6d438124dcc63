package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ava-labs/libevm/common"
	"github.com/ava-labs/libevm/common/hexutil"
)

var ErrInvalidAddress = errors.New("invalid address")

// ParseAddress parses a 0x-prefixed, 20-byte hex address. Unlike
// common.HexToAddress it rejects short, long, unprefixed and zero input.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, fmt.Errorf("%w: %q must be 0x-prefixed", ErrInvalidAddress, s)
	}
	if len(s)-2 != 2*common.AddressLength {
		return common.Address{}, fmt.Errorf("%w: %q must have %d hex digits", ErrInvalidAddress, s, 2*common.AddressLength)
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	addr := common.BytesToAddress(b)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: zero address", ErrInvalidAddress)
	}
	return addr, nil
}
