package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ava-labs/token-ledger/pkg/metrics"
)

// RetryConfig bounds each write attempt and the retries after a failure.
type RetryConfig struct {
	WriteTimeout time.Duration // Timeout for each write attempt
	MaxRetries   int           // Retries after the first failed attempt
	RetryBackoff time.Duration // Pause between attempts
}

// DefaultRetryConfig returns a RetryConfig with sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		WriteTimeout: 30 * time.Second,
		MaxRetries:   3,
		RetryBackoff: time.Second,
	}
}

func (c RetryConfig) Validate() error {
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive, got %s", c.WriteTimeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff must be >= 0, got %s", c.RetryBackoff)
	}
	return nil
}

type retrying struct {
	sink    Sink
	cfg     RetryConfig
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
}

// WithRetry wraps s so every attempt runs under cfg.WriteTimeout and failed
// attempts are retried up to cfg.MaxRetries times. Each attempt is recorded
// in m, which may be nil.
func WithRetry(s Sink, cfg RetryConfig, log *zap.SugaredLogger, m *metrics.Metrics) (Sink, error) {
	if s == nil {
		return nil, errors.New("invalid sink: must not be nil")
	}
	if log == nil {
		return nil, errors.New("invalid logger: must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}
	return &retrying{sink: s, cfg: cfg, log: log, metrics: m}, nil
}

func (r *retrying) Name() string { return r.sink.Name() }

func (r *retrying) Write(ctx context.Context, snap Snapshot) error {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		writeCtx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
		lastErr = r.sink.Write(writeCtx, snap)
		cancel()
		r.metrics.RecordSinkWrite(r.sink.Name(), lastErr)

		if lastErr == nil {
			r.log.Infow("wrote ledger snapshot",
				"sink", r.sink.Name(),
				"key", snap.Key(),
				"attempt", attempt+1,
			)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		r.log.Warnw("ledger snapshot write failed",
			"sink", r.sink.Name(),
			"attempt", attempt+1,
			"error", lastErr,
		)
		if attempt < r.cfg.MaxRetries {
			select {
			case <-time.After(r.cfg.RetryBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("failed to write ledger %s to %s after %d attempts: %w",
		snap.Key(), r.sink.Name(), r.cfg.MaxRetries+1, lastErr)
}
