package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/token-ledger/internal/chainclient"
	"github.com/ava-labs/token-ledger/pkg/eventsource"
	"github.com/ava-labs/token-ledger/pkg/metrics"
	"github.com/ava-labs/token-ledger/pkg/pipeline"
	"github.com/ava-labs/token-ledger/pkg/sink"
	"github.com/ava-labs/token-ledger/pkg/utils"
)

const metricsShutdownTimeout = 5 * time.Second

func run(c *cli.Context) error {
	cfg, err := buildConfig(c)
	if err != nil {
		return fmt.Errorf("failed to build config: %w", err)
	}

	sugar, err := utils.NewSugaredLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer sugar.Desugar().Sync() //nolint:errcheck // best-effort flush; ignore sync errors

	sugar.Infow("config",
		"verbose", cfg.Verbose,
		"chainID", cfg.ChainID,
		"rpcURL", cfg.RPCURL,
		"clientType", cfg.ClientType,
		"replayFile", cfg.ReplayFile,
		"contract", cfg.Contract.Hex(),
		"standard", cfg.Standard,
		"fromBlock", cfg.FromBlock,
		"toBlock", cfg.ToBlock,
		"chunkSize", cfg.ChunkSize,
		"fanOut", cfg.FanOut,
		"queryTimeout", cfg.QueryTimeout,
		"outputDir", cfg.OutputDir,
		"outputFormat", cfg.OutputFormat,
		"kafka", cfg.KafkaEnabled,
		"clickhouse", cfg.ClickHouseEnabled,
		"metricsPort", cfg.MetricsPort,
	)

	registry := prometheus.NewRegistry()
	m, err := metrics.NewWithLabels(registry, cfg.MetricsLabels())
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsErrCh <-chan error
	if cfg.MetricsPort > 0 {
		metricsServer := metrics.NewServer(cfg.MetricsAddr(), registry)
		metricsErrCh = metricsServer.Start()
		sugar.Infof("metrics server listening on http://%s/metrics", cfg.MetricsAddr())
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				sugar.Warnw("metrics server shutdown error", "error", err)
			}
		}()
	}

	source, head, closeSource, err := openSource(ctx, cfg, sugar, m)
	if err != nil {
		return err
	}
	defer closeSource()

	to := cfg.ToBlock
	if to == 0 {
		if to, err = head(ctx); err != nil {
			return fmt.Errorf("failed to resolve to block: %w", err)
		}
		sugar.Infof("to block not specified, replaying up to latest block %d", to)
		if cfg.FromBlock > to {
			return fmt.Errorf("from block %d is after latest block %d", cfg.FromBlock, to)
		}
	}

	out, producerErrs, closeSinks, err := buildSinks(ctx, cfg, sugar, m)
	if err != nil {
		return err
	}
	defer closeSinks()

	p, err := pipeline.New(sugar, source, pipeline.Config{
		Contract:  cfg.Contract,
		Standard:  cfg.Standard,
		ChunkSize: cfg.ChunkSize,
		FanOut:    cfg.FanOut,
	}, m)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	// The watchers below only return on failure, so a finished replay cancels them.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		return replay(gctx, sugar, p, out, cfg, to)
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case err := <-metricsErrCh:
			if err != nil {
				return fmt.Errorf("metrics server failed: %w", err)
			}
			return nil
		}
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case err, ok := <-producerErrs:
			if ok && err != nil {
				return fmt.Errorf("kafka producer failed: %w", err)
			}
			return nil
		}
	})

	err = g.Wait()
	switch {
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		sugar.Infow("exiting due to context cancellation")
		return err
	case err != nil:
		sugar.Errorw("run failed", "error", err)
		return err
	}

	sugar.Info("shutdown complete")
	return nil
}

// replay runs the pipeline and hands the finished ledger to the sinks.
// Nothing is written unless the whole range replays.
func replay(
	ctx context.Context,
	log *zap.SugaredLogger,
	p *pipeline.Pipeline,
	out sink.Sink,
	cfg *Config,
	to uint64,
) error {
	res, err := p.Run(ctx, pipeline.Request{FromBlock: cfg.FromBlock, ToBlock: to})
	if err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}

	log.Infow("replay complete",
		"owners", len(res.Ledger.Owners()),
		"entries", res.Ledger.Len(),
		"transfers", res.Transfers,
		"mints", res.Mints,
		"burns", res.Burns,
		"logs", res.Logs,
		"chunks", res.Chunks,
		"duration", res.Duration,
	)

	err = out.Write(ctx, sink.Snapshot{
		ChainID:   cfg.ChainID,
		Contract:  cfg.Contract,
		Standard:  cfg.Standard,
		FromBlock: cfg.FromBlock,
		ToBlock:   to,
		Ledger:    res.Ledger,
	})
	if err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	return nil
}

type headFunc func(ctx context.Context) (uint64, error)

// openSource returns the log source, a way to resolve its latest block, and a
// cleanup func.
func openSource(
	ctx context.Context,
	cfg *Config,
	log *zap.SugaredLogger,
	m *metrics.Metrics,
) (eventsource.EventSource, headFunc, func(), error) {
	if cfg.ReplayFile != "" {
		s, err := eventsource.LoadStatic(cfg.ReplayFile)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to load replay file: %w", err)
		}
		log.Infow("replaying logs from file", "path", cfg.ReplayFile, "logs", s.Len())
		head := func(context.Context) (uint64, error) { return s.Head(), nil }
		return s, head, func() {}, nil
	}

	client, err := chainclient.Dial(ctx, cfg.ClientType, cfg.RPCURL, m)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to dial rpc: %w", err)
	}
	src, err := eventsource.NewRPC(client, log, m, cfg.QueryTimeout)
	if err != nil {
		client.Close()
		return nil, nil, nil, fmt.Errorf("failed to create event source: %w", err)
	}
	return src, client.BlockNumber, client.Close, nil
}
