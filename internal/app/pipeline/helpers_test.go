package pipeline

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ghalamif/enosebridge/internal/adapters/display"
	"github.com/ghalamif/enosebridge/internal/adapters/history"
	"github.com/ghalamif/enosebridge/internal/adapters/queue"
	"github.com/ghalamif/enosebridge/internal/adapters/serial"
	"github.com/ghalamif/enosebridge/internal/adapters/sink"
	"github.com/ghalamif/enosebridge/internal/app/gateway"
	"github.com/ghalamif/enosebridge/internal/app/parser"
	"github.com/ghalamif/enosebridge/internal/domain"
	"github.com/ghalamif/enosebridge/internal/ports"
)

// harness wires the servers to loopback display collectors and a fake
// time-series endpoint.
type harness struct {
	history *history.MemHistory
	queue   *queue.CommandQueue
	gateway *gateway.Gateway
	obs     *countingObs

	influxHits   *atomic.Int64
	influxBodies chan string
	data         <-chan string
	status       <-chan string

	ingestAddr  string
	commandAddr string
}

func newHarness(t *testing.T, influxStatus int) *harness {
	t.Helper()

	h := &harness{
		history:      history.NewMemHistory(),
		queue:        queue.NewCommandQueue(),
		obs:          &countingObs{},
		influxHits:   &atomic.Int64{},
		influxBodies: make(chan string, 64),
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.influxHits.Add(1)
		b, _ := io.ReadAll(r.Body)
		h.influxBodies <- string(b)
		w.WriteHeader(influxStatus)
	}))
	t.Cleanup(srv.Close)

	writer, err := sink.NewInfluxWriter(sink.InfluxConfig{
		URL:    srv.URL,
		Token:  "test",
		Org:    "ITS",
		Bucket: "Cuz",
	}, srv.Client())
	if err != nil {
		t.Fatalf("influx writer: %v", err)
	}

	dataAddr, data := collect(t)
	statusAddr, status := collect(t)
	h.data, h.status = data, status

	h.gateway = gateway.New(writer, display.NewBroadcaster(statusAddr, h.obs), h.obs)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	ingest := NewIngestServer("", parser.New(), h.history, h.gateway, h.obs, display.NewForwarder(dataAddr))
	ingestLn := loopback(t)
	h.ingestAddr = ingestLn.Addr().String()

	command := NewCommandServer("", h.queue, h.history, h.gateway, h.obs)
	commandLn := loopback(t)
	h.commandAddr = commandLn.Addr().String()

	wg.Add(2)
	go func() { defer wg.Done(); _ = ingest.Serve(ctx, ingestLn) }()
	go func() { defer wg.Done(); _ = command.Serve(ctx, commandLn) }()
	return h
}

func loopback(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return ln
}

// collect accepts connections and reports each connection's full payload in
// accept order.
func collect(t *testing.T) (string, <-chan string) {
	t.Helper()
	ln := loopback(t)
	t.Cleanup(func() { ln.Close() })

	out := make(chan string, 64)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			b, _ := io.ReadAll(conn)
			conn.Close()
			out <- string(b)
		}
	}()
	return ln.Addr().String(), out
}

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for payload")
		return ""
	}
}

func expectSilence(t *testing.T, ch <-chan string, d time.Duration) {
	t.Helper()
	select {
	case s := <-ch:
		t.Fatalf("unexpected payload %q", s)
	case <-time.After(d):
	}
}

// send opens a connection, writes payload and closes, the way the device and
// the display client do.
func send(t *testing.T, addr, payload string) {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	if _, err := io.WriteString(conn, payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type countingObs struct {
	mu        sync.Mutex
	malformed int
	critical  int
	counters  map[string]float64
}

func (o *countingObs) LogDebug(string, ...ports.Field)        {}
func (o *countingObs) LogInfo(string, ...ports.Field)         {}
func (o *countingObs) LogError(string, error, ...ports.Field) {}
func (o *countingObs) LogCritical(string, error, ...ports.Field) {
	o.mu.Lock()
	o.critical++
	o.mu.Unlock()
}
func (o *countingObs) IncCounter(name string, v float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counters == nil {
		o.counters = map[string]float64{}
	}
	o.counters[name] += v
}
func (o *countingObs) ObserveLatency(string, float64) {}
func (o *countingObs) SetGauge(string, float64)       {}
func (o *countingObs) RecordMalformed(string, error) {
	o.mu.Lock()
	o.malformed++
	o.mu.Unlock()
}

func (o *countingObs) counter(name string) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counters[name]
}

func (o *countingObs) malformedCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.malformed
}

// fakePort records relay writes. failAfter > 0 makes the nth write fail.
type fakePort struct {
	mu        sync.Mutex
	written   []string
	drains    int
	failAfter int
	closed    bool
	lines     chan string
}

func newFakePort() *fakePort {
	return &fakePort{lines: make(chan string, 16)}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAfter > 0 && len(p.written)+1 >= p.failAfter {
		return 0, io.ErrClosedPipe
	}
	p.written = append(p.written, string(b))
	p.lines <- string(b)
	return len(b), nil
}

func (p *fakePort) Drain() error {
	p.mu.Lock()
	p.drains++
	p.mu.Unlock()
	return nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *fakePort) opener() serial.Opener {
	return func(serial.Config) (serial.Port, error) { return p, nil }
}

type okWriter struct{}

func (okWriter) WriteRecord(context.Context, domain.SensorRecord) error { return nil }
func (okWriter) Name() string                                           { return "ok" }

func dialKeep(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	return conn
}
