package display

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/ghalamif/enosebridge/internal/adapters/observability"
	"github.com/ghalamif/enosebridge/internal/domain"
	"github.com/ghalamif/enosebridge/internal/ports"
)

// collect accepts connections on a loopback listener and reports each
// connection's full payload.
func collect(t *testing.T) (string, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	out := make(chan string, 16)
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
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for payload")
		return ""
	}
}

func TestBroadcasterWritesLiteralToken(t *testing.T) {
	addr, got := collect(t)
	b := NewBroadcaster(addr, &nopObs{})

	b.Announce(context.Background(), domain.StatusOK)
	if s := receive(t, got); s != "INFLUX:OK" {
		t.Fatalf("unexpected token %q", s)
	}

	b.Announce(context.Background(), domain.StatusError)
	if s := receive(t, got); s != "INFLUX:ERROR" {
		t.Fatalf("unexpected token %q", s)
	}
}

func TestBroadcasterSwallowsUnreachable(t *testing.T) {
	obs := &nopObs{}
	b := NewBroadcaster(closedAddr(t), obs)

	b.Announce(context.Background(), domain.StatusOK)
	if obs.debug != 1 {
		t.Fatalf("expected failure to be logged at debug level once, got %d", obs.debug)
	}
}

func TestBroadcasterCountsDeliveredTokensOnly(t *testing.T) {
	addr, got := collect(t)
	obs := &nopObs{}

	NewBroadcaster(addr, obs).Announce(context.Background(), domain.StatusOK)
	receive(t, got)
	if n := obs.counters[observability.MetricStatusAnnouncements]; n != 1 {
		t.Fatalf("expected one delivered announcement, got %v", n)
	}

	NewBroadcaster(closedAddr(t), obs).Announce(context.Background(), domain.StatusError)
	if n := obs.counters[observability.MetricStatusAnnouncements]; n != 1 {
		t.Fatalf("dropped announcement must not be counted, got %v", n)
	}
}

func TestForwarderAppendsNewline(t *testing.T) {
	addr, got := collect(t)
	f := NewForwarder(addr)

	line := "SENSOR:1.0,2.0,3.0,4.0,5.0,6.0,7.0,0,1"
	if err := f.Forward(context.Background(), line); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if s := receive(t, got); s != line+"\n" {
		t.Fatalf("unexpected payload %q", s)
	}
}

func TestForwarderReportsUnreachable(t *testing.T) {
	f := NewForwarder(closedAddr(t))
	if err := f.Forward(context.Background(), "SENSOR:x"); err == nil {
		t.Fatalf("expected dial error")
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.ApplyDefaults()
	if c.DataAddr != "127.0.0.1:8085" || c.StatusAddr != "127.0.0.1:8087" {
		t.Fatalf("unexpected defaults %+v", c)
	}
}

func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

type nopObs struct {
	debug    int
	counters map[string]float64
}

func (n *nopObs) LogDebug(string, ...ports.Field)           { n.debug++ }
func (n *nopObs) LogInfo(string, ...ports.Field)            {}
func (n *nopObs) LogError(string, error, ...ports.Field)    {}
func (n *nopObs) LogCritical(string, error, ...ports.Field) {}
func (n *nopObs) IncCounter(name string, v float64) {
	if n.counters == nil {
		n.counters = make(map[string]float64)
	}
	n.counters[name] += v
}
func (n *nopObs) ObserveLatency(string, float64) {}
func (n *nopObs) SetGauge(string, float64)       {}
func (n *nopObs) RecordMalformed(string, error)  {}
