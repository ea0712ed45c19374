package enosebridge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghalamif/enosebridge/internal/adapters/display"
	"github.com/ghalamif/enosebridge/internal/adapters/history"
	"github.com/ghalamif/enosebridge/internal/adapters/mqttmirror"
	"github.com/ghalamif/enosebridge/internal/adapters/observability"
	"github.com/ghalamif/enosebridge/internal/adapters/queue"
	"github.com/ghalamif/enosebridge/internal/adapters/serial"
	"github.com/ghalamif/enosebridge/internal/adapters/sink"
	"github.com/ghalamif/enosebridge/internal/app/config"
	"github.com/ghalamif/enosebridge/internal/app/gateway"
	"github.com/ghalamif/enosebridge/internal/app/parser"
	"github.com/ghalamif/enosebridge/internal/app/pipeline"
	"github.com/ghalamif/enosebridge/internal/domain"
	"github.com/ghalamif/enosebridge/internal/ports"
)

// ErrNotStarted is returned by operations that need a running bridge.
var ErrNotStarted = errors.New("enosebridge: bridge not started")

// Option customizes the dependencies used by Bridge.
type Option func(*overrides)

type overrides struct {
	writer        RecordWriter
	observability Observability
	history       HistoryStore
	queue         CommandQueue
	opener        PortOpener
}

// WithRecordWriter replaces the configured time-series backend.
func WithRecordWriter(w RecordWriter) Option {
	return func(o *overrides) {
		o.writer = w
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) Option {
	return func(o *overrides) {
		o.observability = obs
	}
}

// WithHistory lets callers share or inspect the history store.
func WithHistory(h HistoryStore) Option {
	return func(o *overrides) {
		o.history = h
	}
}

// WithCommandQueue injects a custom command queue.
func WithCommandQueue(q CommandQueue) Option {
	return func(o *overrides) {
		o.queue = q
	}
}

// WithPortOpener replaces the serial port opener, e.g. with a device simulator.
func WithPortOpener(fn PortOpener) Option {
	return func(o *overrides) {
		o.opener = fn
	}
}

// Bridge wires the ingestion server, command server, device relay and
// persistence gateway, and exposes simple lifecycle hooks for embedding the
// bridge inside any Go service.
type Bridge struct {
	cfg     *Config
	obs     ports.Observability
	history ports.HistoryStore
	queue   ports.CommandQueue
	writer  ports.RecordWriter
	opener  serial.Opener
	db      *sql.DB

	mu          sync.Mutex
	started     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mirror      *mqttmirror.Mirror
	ingest      *pipeline.IngestServer
	command     *pipeline.CommandServer
	ingestLn    net.Listener
	commandLn   net.Listener
	metricsSrv  *http.Server
	gaugeStopCh chan struct{}
}

// New bootstraps the default adapters (configured time-series writer,
// in-memory history, unbounded command queue, serial opener, Prometheus
// observability). Options override any of them.
func New(cfg *Config, opts ...Option) (*Bridge, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var o overrides
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	obs := o.observability
	if obs == nil {
		obs = observability.NewPromObs(observability.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format))
	}

	hist := o.history
	if hist == nil {
		hist = history.NewMemHistory()
	}

	q := o.queue
	if q == nil {
		q = queue.NewCommandQueue()
	}

	opener := o.opener
	if opener == nil {
		opener = serial.Open
	}

	var (
		db     *sql.DB
		writer = o.writer
		err    error
	)
	if writer == nil {
		writer, db, err = newWriter(cfg)
		if err != nil {
			return nil, err
		}
	}

	return &Bridge{
		cfg:     cfg,
		obs:     obs,
		history: hist,
		queue:   q,
		writer:  writer,
		opener:  opener,
		db:      db,
	}, nil
}

func newWriter(cfg *Config) (RecordWriter, *sql.DB, error) {
	switch cfg.Persistence.Backend {
	case config.BackendTimescale:
		if cfg.Timescale.Migrate {
			if err := sink.Migrate(cfg.Timescale.ConnString); err != nil {
				return nil, nil, err
			}
		}
		db, err := sql.Open("postgres", cfg.Timescale.ConnString)
		if err != nil {
			return nil, nil, err
		}
		return sink.NewTimescaleWriter(db), db, nil
	case config.BackendInflux, "":
		w, err := sink.NewInfluxWriter(cfg.Influx, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("influx writer: %w", err)
		}
		return w, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown persistence backend %q", cfg.Persistence.Backend)
	}
}

// Start binds the listeners and launches every component. It returns
// immediately; call Run to block on a context instead. A component that
// cannot start is logged and skipped while the others keep running.
func (b *Bridge) Start() error {
	if b == nil {
		return fmt.Errorf("bridge is nil")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return fmt.Errorf("bridge already started")
	}
	b.started = true

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	var (
		announcers = statusFanout{display.NewBroadcaster(b.cfg.Display.StatusAddr, b.obs)}
		forwarders = []ports.RecordForwarder{display.NewForwarder(b.cfg.Display.DataAddr)}
	)
	if b.cfg.MQTT.Enabled() {
		m := mqttmirror.Dial(b.cfg.MQTT, b.obs)
		if err := m.Start(); err != nil {
			b.obs.LogError("mqtt mirror disabled", err)
		} else {
			b.mirror = m
			announcers = append(announcers, m)
			forwarders = append(forwarders, m)
		}
	}

	gw := gateway.New(b.writer, announcers, b.obs)
	p := parser.New(parser.WithMarker(b.cfg.Ingest.Marker))
	ingest := pipeline.NewIngestServer(b.cfg.Ingest.Addr, p, b.history, gw, b.obs, forwarders...)
	command := pipeline.NewCommandServer(b.cfg.Command.Addr, b.queue, b.history, gw, b.obs)
	relay := pipeline.NewDeviceRelay(b.cfg.Serial, b.opener, b.queue, b.obs)
	b.ingest, b.command = ingest, command

	if ln, err := ingest.Listen(); err != nil {
		b.obs.LogCritical("ingest server not started", err, ports.F("addr", b.cfg.Ingest.Addr))
	} else {
		b.ingestLn = ln
		b.spawn("ingest server", func() error { return ingest.Serve(ctx, ln) })
	}

	if ln, err := command.Listen(); err != nil {
		b.obs.LogCritical("command server not started", err, ports.F("addr", b.cfg.Command.Addr))
	} else {
		b.commandLn = ln
		b.spawn("command server", func() error { return command.Serve(ctx, ln) })
	}

	b.spawn("device relay", func() error { return relay.Run(ctx) })

	b.startMetrics()
	return nil
}

func (b *Bridge) spawn(name string, fn func() error) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := fn(); err != nil {
			b.obs.LogCritical(name+" stopped", err)
		}
	}()
}

// Run starts the bridge and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.Shutdown(shutdownCtx)
}

// Shutdown stops the listeners and relay, the metrics server, the broker
// mirror and the DB connection. Ingest and Dispatch return ErrNotStarted
// afterwards.
func (b *Bridge) Shutdown(ctx context.Context) error {
	var errs []error

	b.mu.Lock()
	cancel, gaugeStop, metricsSrv, mirror, db := b.cancel, b.gaugeStopCh, b.metricsSrv, b.mirror, b.db
	b.cancel, b.gaugeStopCh, b.metricsSrv, b.mirror, b.db = nil, nil, nil, nil, nil
	b.ingest, b.command = nil, nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
		done := make(chan struct{})
		go func() {
			b.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("waiting for components: %w", ctx.Err()))
		}
	}

	if gaugeStop != nil {
		close(gaugeStop)
	}

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if mirror != nil {
		mirror.Close()
	}

	if db != nil {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Ingest feeds one wire line through the same path as a device connection.
// It reports whether the line produced a record.
func (b *Bridge) Ingest(ctx context.Context, line string) (bool, error) {
	b.mu.Lock()
	srv := b.ingest
	b.mu.Unlock()
	if srv == nil {
		return false, ErrNotStarted
	}
	return srv.HandleLine(ctx, line), nil
}

// Dispatch acts on a command as if it had arrived on the command endpoint.
func (b *Bridge) Dispatch(ctx context.Context, cmd Command) error {
	b.mu.Lock()
	srv := b.command
	b.mu.Unlock()
	if srv == nil {
		return ErrNotStarted
	}
	srv.Dispatch(ctx, cmd)
	return nil
}

// History returns a snapshot of every record received since start.
func (b *Bridge) History() []Record {
	return b.history.Snapshot()
}

// IngestAddr is the bound ingest listener address, empty if it failed to bind.
func (b *Bridge) IngestAddr() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return listenerAddr(b.ingestLn)
}

// CommandAddr is the bound command listener address, empty if it failed to bind.
func (b *Bridge) CommandAddr() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return listenerAddr(b.commandLn)
}

func listenerAddr(ln net.Listener) string {
	if ln == nil {
		return ""
	}
	return ln.Addr().String()
}

func (b *Bridge) startMetrics() {
	b.gaugeStopCh = make(chan struct{})
	go b.recordGauges(b.gaugeStopCh, time.Second)

	if b.cfg.Metrics.Addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:    b.cfg.Metrics.Addr,
		Handler: mux,
	}
	b.metricsSrv = srv

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.obs.LogError("metrics server exited", err)
		}
	}()
}

func (b *Bridge) recordGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			b.obs.SetGauge(observability.MetricHistoryRecords, float64(b.history.Len()))
			b.obs.SetGauge(observability.MetricCommandQueueLength, float64(b.queue.Len()))
		}
	}
}

// statusFanout announces to every destination in order.
type statusFanout []ports.StatusAnnouncer

func (f statusFanout) Announce(ctx context.Context, sig domain.StatusSignal) {
	for _, a := range f {
		a.Announce(ctx, sig)
	}
}
