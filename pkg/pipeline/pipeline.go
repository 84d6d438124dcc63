// Package pipeline wires planning, fetching, normalization, sequencing and
// replay into a single run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ava-labs/libevm/common"
	"go.uber.org/zap"

	"github.com/ava-labs/token-ledger/pkg/eventsource"
	"github.com/ava-labs/token-ledger/pkg/fetcher"
	"github.com/ava-labs/token-ledger/pkg/ledger"
	"github.com/ava-labs/token-ledger/pkg/metrics"
	"github.com/ava-labs/token-ledger/pkg/normalizer"
	"github.com/ava-labs/token-ledger/pkg/rangeplan"
	"github.com/ava-labs/token-ledger/pkg/sequencer"
	"github.com/ava-labs/token-ledger/pkg/standard"
	"github.com/ava-labs/token-ledger/pkg/transfer"
)

var ErrInvalidRange = errors.New("invalid block range")

type Config struct {
	Contract  common.Address
	Standard  standard.Standard
	ChunkSize uint64
	FanOut    int
}

// Request is an inclusive block range.
type Request struct {
	FromBlock uint64
	ToBlock   uint64
}

type Result struct {
	Ledger    *ledger.Ledger
	Chunks    int
	Logs      int
	Transfers int
	Mints     int
	Burns     int
	Duration  time.Duration
}

type Pipeline struct {
	log        *zap.SugaredLogger
	cfg        Config
	fetcher    *fetcher.Fetcher
	normalizer *normalizer.Normalizer
	metrics    *metrics.Metrics
}

// New validates cfg and builds the stages. A zero ChunkSize selects
// rangeplan.DefaultChunkSize and a zero FanOut selects fetcher.DefaultFanOut.
func New(log *zap.SugaredLogger, source eventsource.EventSource, cfg Config, m *metrics.Metrics) (*Pipeline, error) {
	if log == nil {
		return nil, errors.New("invalid logger: must not be nil")
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = rangeplan.DefaultChunkSize
	}

	norm, err := normalizer.New(cfg.Standard)
	if err != nil {
		return nil, err
	}
	f, err := fetcher.New(log, source, fetcher.Config{
		Contract: cfg.Contract,
		Topics:   cfg.Standard.Topics(),
		FanOut:   cfg.FanOut,
	}, m)
	if err != nil {
		return nil, err
	}
	cfg.FanOut = f.FanOut()

	return &Pipeline{
		log:        log,
		cfg:        cfg,
		fetcher:    f,
		normalizer: norm,
		metrics:    m,
	}, nil
}

// Run replays [FromBlock, ToBlock] and returns the end-of-range ledger. Any
// failure discards all progress.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := p.run(ctx, req)
	p.metrics.RecordRun(err, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, req Request) (*Result, error) {
	if req.FromBlock > req.ToBlock {
		return nil, fmt.Errorf("%w: from block %d is after to block %d", ErrInvalidRange, req.FromBlock, req.ToBlock)
	}
	chunks, err := rangeplan.Plan(req.FromBlock, req.ToBlock, p.cfg.ChunkSize)
	if err != nil {
		return nil, err
	}

	p.log.Infow("starting replay",
		"contract", p.cfg.Contract.Hex(),
		"standard", p.cfg.Standard,
		"from", req.FromBlock,
		"to", req.ToBlock,
		"chunks", rangeplan.Count(req.FromBlock, req.ToBlock, p.cfg.ChunkSize),
		"fan_out", p.cfg.FanOut,
	)

	results, err := p.fetcher.Fetch(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("fetch logs: %w", err)
	}

	res := &Result{Chunks: len(results)}
	kinds := make(normalizer.Counts)
	var records []transfer.Transfer
	for _, r := range results {
		res.Logs += len(r.Logs)
		recs, counts, err := p.normalizer.NormalizeAll(r.Logs)
		if err != nil {
			p.metrics.IncError(metrics.ErrTypeNormalize)
			return nil, fmt.Errorf("normalize chunk %s: %w", r.Chunk, err)
		}
		kinds.Add(counts)
		records = append(records, recs...)
	}
	for kind, n := range kinds {
		p.metrics.AddTransfersNormalized(kind, n)
	}
	for _, r := range records {
		if r.IsMint() {
			res.Mints++
		}
		if r.IsBurn() {
			res.Burns++
		}
	}

	sequencer.Sort(records)
	if err := sequencer.Verify(records); err != nil {
		p.metrics.IncError(metrics.ErrTypeOrdering)
		return nil, fmt.Errorf("sequence transfers: %w", err)
	}

	res.Transfers = len(records)
	res.Ledger = ledger.Replay(records)
	p.metrics.UpdateLedgerMetrics(len(res.Ledger.Owners()), res.Ledger.Len(), req.ToBlock)
	return res, nil
}
