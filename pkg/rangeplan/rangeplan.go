// Package rangeplan splits an inclusive block interval into fixed-size,
// contiguous, non-overlapping chunks so that individual log queries stay small.
package rangeplan

import (
	"errors"
	"fmt"
	"iter"
)

// DefaultChunkSize is the block span of a single log query when none is configured.
const DefaultChunkSize = 2048

var ErrInvalidChunkSize = errors.New("invalid chunk size: must be greater than 0")

// Chunk is an inclusive block interval [From, To].
type Chunk struct {
	From uint64
	To   uint64
}

func (c Chunk) String() string {
	return fmt.Sprintf("[%d,%d]", c.From, c.To)
}

// Len returns the number of blocks covered by the chunk. The single chunk
// [0, MaxUint64] holds 2^64 blocks, which does not fit in a uint64; Len wraps
// to 0 for it.
func (c Chunk) Len() uint64 {
	return c.To - c.From + 1
}

// Plan returns the chunks covering [from, to] in ascending order. Chunk i
// covers [from+i*size, min(to, from+(i+1)*size-1)]. An empty sequence is
// returned when from > to.
//
// The returned sequence is lazy and can be ranged over any number of times.
func Plan(from, to, size uint64) (iter.Seq[Chunk], error) {
	if size == 0 {
		return nil, ErrInvalidChunkSize
	}
	return func(yield func(Chunk) bool) {
		if from > to {
			return
		}
		start := from
		for {
			end := to
			// written as a difference so that ranges ending near MaxUint64 do not overflow
			if to-start >= size {
				end = start + size - 1
			}
			if !yield(Chunk{From: start, To: end}) {
				return
			}
			if end == to {
				return
			}
			start = end + 1
		}
	}, nil
}

// Count returns the number of chunks Plan yields for the same arguments.
func Count(from, to, size uint64) uint64 {
	if size == 0 || from > to {
		return 0
	}
	return (to-from)/size + 1
}

// Collect materialises a chunk sequence.
func Collect(seq iter.Seq[Chunk]) []Chunk {
	var out []Chunk
	for c := range seq {
		out = append(out, c)
	}
	return out
}
