// Package fetcher issues chunked log queries against an event source with a
// fixed fan-out and a hard barrier between groups.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/ava-labs/libevm/common"
	"github.com/ava-labs/libevm/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/token-ledger/pkg/eventsource"
	"github.com/ava-labs/token-ledger/pkg/metrics"
	"github.com/ava-labs/token-ledger/pkg/rangeplan"
)

// DefaultFanOut is the number of chunk queries dispatched per group.
const DefaultFanOut = 11

var ErrInvalidFanOut = errors.New("invalid fan-out: must be at least 1")

type Config struct {
	Contract common.Address
	Topics   []common.Hash
	FanOut   int
}

// Result holds the logs returned for one chunk.
type Result struct {
	Chunk rangeplan.Chunk
	Logs  []types.Log
}

// ChunkError names the chunk whose query aborted the run.
type ChunkError struct {
	Chunk rangeplan.Chunk
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("fetch chunk %s: %v", e.Chunk, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

type Fetcher struct {
	log     *zap.SugaredLogger
	source  eventsource.EventSource
	cfg     Config
	metrics *metrics.Metrics
}

// New creates a Fetcher. A zero FanOut selects DefaultFanOut. m may be nil.
func New(log *zap.SugaredLogger, source eventsource.EventSource, cfg Config, m *metrics.Metrics) (*Fetcher, error) {
	if log == nil {
		return nil, errors.New("invalid logger: must not be nil")
	}
	if source == nil {
		return nil, errors.New("invalid event source: must not be nil")
	}
	if cfg.FanOut == 0 {
		cfg.FanOut = DefaultFanOut
	}
	if cfg.FanOut < 0 {
		return nil, ErrInvalidFanOut
	}
	return &Fetcher{
		log:     log,
		source:  source,
		cfg:     cfg,
		metrics: m,
	}, nil
}

// FanOut returns the effective group width.
func (f *Fetcher) FanOut() int { return f.cfg.FanOut }

// Fetch queries every chunk and returns the results in chunk order. Chunks are
// taken FanOut at a time; the next group is not started until every query of
// the current one has returned. The first failure cancels its siblings and is
// returned as a *ChunkError once the group settles. No partial results are
// returned on failure.
func (f *Fetcher) Fetch(ctx context.Context, chunks iter.Seq[rangeplan.Chunk]) ([]Result, error) {
	var (
		results []Result
		group   = make([]rangeplan.Chunk, 0, f.cfg.FanOut)
		groupNo int
	)

	flush := func() error {
		if len(group) == 0 {
			return nil
		}
		out, err := f.fetchGroup(ctx, groupNo, group)
		if err != nil {
			return err
		}
		results = append(results, out...)
		group = group[:0]
		groupNo++
		return nil
	}

	for c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		group = append(group, c)
		if len(group) < f.cfg.FanOut {
			continue
		}
		if err := flush(); err != nil {
			return nil, err
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return results, nil
}

func (f *Fetcher) fetchGroup(ctx context.Context, groupNo int, chunks []rangeplan.Chunk) ([]Result, error) {
	start := time.Now()
	out := make([]Result, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.FanOut)
	for i, c := range chunks {
		g.Go(func() error {
			logs, err := f.source.QueryLogs(gctx, f.cfg.Contract, f.cfg.Topics, c.From, c.To)
			f.metrics.RecordChunk(err, len(logs))
			if err != nil {
				return &ChunkError{Chunk: c, Err: err}
			}
			out[i] = Result{Chunk: c, Logs: logs}
			return nil
		})
	}
	err := g.Wait()
	f.metrics.RecordFetchGroup(err, time.Since(start).Seconds())
	if err != nil {
		f.log.Errorw("fetch group failed",
			"group", groupNo,
			"from", chunks[0].From,
			"to", chunks[len(chunks)-1].To,
			"error", err,
		)
		return nil, err
	}

	f.log.Debugw("fetch group settled",
		"group", groupNo,
		"chunks", len(chunks),
		"from", chunks[0].From,
		"to", chunks[len(chunks)-1].To,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
