package observability

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghalamif/enosebridge/internal/ports"
)

// Metric names used across the bridge.
const (
	MetricRecordsIngested     = "enose_records_ingested_total"
	MetricRecordsMalformed    = "enose_records_malformed_total"
	MetricPersistSuccess      = "enose_persist_success_total"
	MetricPersistFailure      = "enose_persist_failure_total"
	MetricForwardFailures     = "enose_gui_forward_failures_total"
	MetricCommandsDispatched  = "enose_commands_dispatched_total"
	MetricCommandsUnknown     = "enose_commands_unknown_total"
	MetricSweeps              = "enose_sweeps_total"
	MetricHistoryRecords      = "enose_history_records"
	MetricCommandQueueLength  = "enose_command_queue_length"
	MetricPersistLatency      = "enose_persist_latency_seconds"
	MetricSweepDuration       = "enose_sweep_duration_seconds"
	MetricDeviceCommandsSent  = "enose_device_commands_sent_total"
	MetricStatusAnnouncements = "enose_status_announcements_total"
)

type PromObs struct {
	logger   *slog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the bridge metrics on the default registry.
func NewPromObs(logger *slog.Logger) *PromObs {
	return NewPromObsWithRegistry(prometheus.DefaultRegisterer, logger)
}

func NewPromObsWithRegistry(reg prometheus.Registerer, logger *slog.Logger) *PromObs {
	if logger == nil {
		logger = slog.Default()
	}

	counters := map[string]prometheus.Counter{}
	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
		counters[name] = c
		return c
	}
	gauges := map[string]prometheus.Gauge{}
	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
		gauges[name] = g
		return g
	}

	persistLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    MetricPersistLatency,
		Help:    "Latency of a single record write against the time-series backend.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    MetricSweepDuration,
		Help:    "Duration of a full history re-persist sweep.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	})

	reg.MustRegister(
		counter(MetricRecordsIngested, "Records parsed and appended to history."),
		counter(MetricRecordsMalformed, "Marker lines dropped because they failed to parse."),
		counter(MetricPersistSuccess, "Record writes accepted by the time-series backend."),
		counter(MetricPersistFailure, "Record writes rejected or unreachable."),
		counter(MetricForwardFailures, "Record lines that could not be relayed to the display client."),
		counter(MetricCommandsDispatched, "Device commands enqueued for the serial relay."),
		counter(MetricCommandsUnknown, "Unrecognized command payloads."),
		counter(MetricSweeps, "History re-persist sweeps triggered from the display client."),
		counter(MetricDeviceCommandsSent, "Commands written to the serial link."),
		counter(MetricStatusAnnouncements, "Status tokens pushed to the display client."),
		gauge(MetricHistoryRecords, "Records held in the in-memory history."),
		gauge(MetricCommandQueueLength, "Commands waiting for the serial relay."),
		persistLatency,
		sweepDuration,
	)

	return &PromObs{
		logger:   logger,
		counters: counters,
		gauges:   gauges,
		histos: map[string]prometheus.Observer{
			MetricPersistLatency: persistLatency,
			MetricSweepDuration:  sweepDuration,
		},
	}
}

func (p *PromObs) LogDebug(msg string, fields ...ports.Field) {
	p.logger.Debug(msg, attrs(fields)...)
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.logger.Info(msg, attrs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.logger.Error(msg, append(attrs(fields), slog.Any("error", err))...)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.logger.Error(msg, append(attrs(fields), slog.Any("error", err), slog.Bool("critical", true))...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordMalformed(line string, err error) {
	p.IncCounter(MetricRecordsMalformed, 1)
	p.logger.Warn("malformed sensor line", slog.String("line", line), slog.Any("error", err))
}

func attrs(fields []ports.Field) []any {
	out := make([]any, 0, len(fields)+2)
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
