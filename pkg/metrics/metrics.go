package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	Namespace = "tokenledger"

	// Status label values for success/error metrics
	StatusSuccess = "success"
	StatusError   = "error"

	RPC    = "rpc"
	Fetch  = "fetch"
	Ledger = "ledger"
	Sink   = "sink"
)

// Labels holds constant labels applied to all metrics.
// These are useful for distinguishing metrics from multiple replay runs.
type Labels struct {
	ChainID       uint64 // EVM chain ID (e.g., 43114 for C-Chain mainnet)
	Contract      string // Contract address being replayed
	Environment   string // Deployment environment (e.g., "production", "staging", "development")
	Region        string // Cloud region (e.g., "us-east-1", "eu-west-1")
	CloudProvider string // Cloud provider (e.g., "aws", "oci", "gcp")
}

// toPrometheusLabels converts Labels to prometheus.Labels map.
// Only non-empty labels are included to avoid empty label values.
func (l Labels) toPrometheusLabels() prometheus.Labels {
	labels := prometheus.Labels{}
	if l.ChainID != 0 {
		labels["chain_id"] = strconv.FormatUint(l.ChainID, 10)
	}
	if l.Contract != "" {
		labels["contract"] = l.Contract
	}
	if l.Environment != "" {
		labels["environment"] = l.Environment
	}
	if l.Region != "" {
		labels["region"] = l.Region
	}
	if l.CloudProvider != "" {
		labels["cloud_provider"] = l.CloudProvider
	}
	return labels
}

type Metrics struct {
	// RPC metrics
	rpcCalls    *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
	rpcInFlight prometheus.Gauge

	// Fetch metrics
	fetchGroups        *prometheus.CounterVec
	fetchGroupDuration prometheus.Histogram
	fetchChunks        *prometheus.CounterVec
	logsFetched        prometheus.Counter

	// Normalization
	transfersNormalized *prometheus.CounterVec

	// Ledger state at the end of a run
	ledgerOwners prometheus.Gauge
	ledgerAssets prometheus.Gauge
	endBlock     prometheus.Gauge

	// Run outcome
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram

	// Sinks
	sinkWrites *prometheus.CounterVec

	errors *prometheus.CounterVec
}

// New creates a new Metrics instance and registers all metrics with the provided registerer.
// Returns an error if any metric registration fails.
// For metrics with constant labels (e.g., chain_id), use NewWithLabels instead.
func New(reg prometheus.Registerer) (*Metrics, error) {
	return NewWithLabels(reg, Labels{})
}

// NewWithLabels creates a new Metrics instance with constant labels applied to all metrics.
func NewWithLabels(reg prometheus.Registerer, labels Labels) (*Metrics, error) {
	// Wrap the registerer with constant labels if any are provided
	promLabels := labels.toPrometheusLabels()
	if len(promLabels) > 0 {
		reg = prometheus.WrapRegistererWith(promLabels, reg)
	}

	return newMetrics(reg)
}

// newMetrics is the internal constructor that creates and registers all metrics.
func newMetrics(reg prometheus.Registerer) (*Metrics, error) {
	// Buckets cover typical RPC latencies: 1ms, 5ms, 10ms, 25ms, 50ms,
	// 100ms, 250ms, 500ms, 1s, 2.5s, 5s, 10s
	rpcBuckets := []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

	m := &Metrics{
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: RPC,
			Name:      "calls_total",
			Help:      "Total RPC calls by method and status",
		}, []string{"method", "status"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: RPC,
			Name:      "duration_seconds",
			Help:      "RPC call duration in seconds",
			Buckets:   rpcBuckets,
		}, []string{"method"}),
		rpcInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: RPC,
			Name:      "in_flight",
			Help:      "Number of RPC calls currently in progress",
		}),
		fetchGroups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Fetch,
			Name:      "groups_total",
			Help:      "Total fan-out groups settled by status",
		}, []string{"status"}),
		fetchGroupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Fetch,
			Name:      "group_duration_seconds",
			Help:      "Time from dispatching a fan-out group until every query in it completed",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		fetchChunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Fetch,
			Name:      "chunks_total",
			Help:      "Total chunk queries by status",
		}, []string{"status"}),
		logsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Fetch,
			Name:      "logs_total",
			Help:      "Total raw logs returned by chunk queries",
		}),
		transfersNormalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "transfers_normalized_total",
			Help:      "Total canonical transfer records produced by source event kind",
		}, []string{"kind"}),
		ledgerOwners: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Ledger,
			Name:      "owners",
			Help:      "Number of owners in the last replayed ledger",
		}),
		ledgerAssets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Ledger,
			Name:      "entries",
			Help:      "Number of owner/asset balance entries in the last replayed ledger",
		}),
		endBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Ledger,
			Name:      "end_block",
			Help:      "End block of the last replayed range",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "runs_total",
			Help:      "Total replay runs by status",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "run_duration_seconds",
			Help:      "End-to-end replay duration from planning to the final ledger",
			Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 300, 900, 1800, 3600},
		}),
		sinkWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Sink,
			Name:      "writes_total",
			Help:      "Total ledger snapshot writes by sink and status",
		}, []string{"sink", "status"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total errors by type",
		}, []string{"type"}),
	}

	err := errors.Join(
		reg.Register(m.rpcCalls),
		reg.Register(m.rpcDuration),
		reg.Register(m.rpcInFlight),
		reg.Register(m.fetchGroups),
		reg.Register(m.fetchGroupDuration),
		reg.Register(m.fetchChunks),
		reg.Register(m.logsFetched),
		reg.Register(m.transfersNormalized),
		reg.Register(m.ledgerOwners),
		reg.Register(m.ledgerAssets),
		reg.Register(m.endBlock),
		reg.Register(m.runs),
		reg.Register(m.runDuration),
		reg.Register(m.sinkWrites),
		reg.Register(m.errors),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Error type constants for non-RPC errors (RPC errors are tracked via rpcCalls{status="error"}).
const (
	ErrTypeNormalize = "normalize"
	ErrTypeOrdering  = "ordering"
)

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// IncError increments the error counter for the given error type.
func (m *Metrics) IncError(errType string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(errType).Inc()
}

// IncRPCInFlight increments the in-flight RPC gauge.
func (m *Metrics) IncRPCInFlight() {
	if m == nil {
		return
	}
	m.rpcInFlight.Inc()
}

// DecRPCInFlight decrements the in-flight RPC gauge.
func (m *Metrics) DecRPCInFlight() {
	if m == nil {
		return
	}
	m.rpcInFlight.Dec()
}

// RecordRPCCall records an RPC call outcome.
func (m *Metrics) RecordRPCCall(method string, err error, durationSeconds float64) {
	if m == nil {
		return
	}
	m.rpcCalls.WithLabelValues(method, status(err)).Inc()
	m.rpcDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordChunk records the outcome of a single chunk query and the number of logs it returned.
func (m *Metrics) RecordChunk(err error, logCount int) {
	if m == nil {
		return
	}
	m.fetchChunks.WithLabelValues(status(err)).Inc()
	if logCount > 0 {
		m.logsFetched.Add(float64(logCount))
	}
}

// RecordFetchGroup records a settled fan-out group.
func (m *Metrics) RecordFetchGroup(err error, durationSeconds float64) {
	if m == nil {
		return
	}
	m.fetchGroups.WithLabelValues(status(err)).Inc()
	m.fetchGroupDuration.Observe(durationSeconds)
}

// AddTransfersNormalized records canonical records produced from one event kind.
func (m *Metrics) AddTransfersNormalized(kind string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.transfersNormalized.WithLabelValues(kind).Add(float64(count))
}

// UpdateLedgerMetrics updates the ledger size gauges.
func (m *Metrics) UpdateLedgerMetrics(owners, entries int, endBlock uint64) {
	if m == nil {
		return
	}
	m.ledgerOwners.Set(float64(owners))
	m.ledgerAssets.Set(float64(entries))
	m.endBlock.Set(float64(endBlock))
}

// RecordRun records the outcome and duration of a replay run.
func (m *Metrics) RecordRun(err error, durationSeconds float64) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status(err)).Inc()
	m.runDuration.Observe(durationSeconds)
}

// RecordSinkWrite records a snapshot write attempt for the named sink.
func (m *Metrics) RecordSinkWrite(sink string, err error) {
	if m == nil {
		return
	}
	m.sinkWrites.WithLabelValues(sink, status(err)).Inc()
}
