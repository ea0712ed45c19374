// Package display talks to the visualization client. Both endpoints are
// outbound, one short-lived TCP connection per message.
package display

import (
	"context"
	"fmt"
	"net"

	"github.com/ghalamif/enosebridge/internal/adapters/observability"
	"github.com/ghalamif/enosebridge/internal/domain"
	"github.com/ghalamif/enosebridge/internal/ports"
)

// Config holds the two display client endpoints.
type Config struct {
	DataAddr   string `yaml:"data_addr"`
	StatusAddr string `yaml:"status_addr"`
}

func (c *Config) ApplyDefaults() {
	if c.DataAddr == "" {
		c.DataAddr = "127.0.0.1:8085"
	}
	if c.StatusAddr == "" {
		c.StatusAddr = "127.0.0.1:8087"
	}
}

// Broadcaster pushes status tokens. It never queues or retries.
type Broadcaster struct {
	addr   string
	dialer net.Dialer
	obs    ports.Observability
}

func NewBroadcaster(addr string, obs ports.Observability) *Broadcaster {
	return &Broadcaster{addr: addr, obs: obs}
}

// Announce writes sig to the status endpoint. Every failure is swallowed;
// only delivered tokens are counted.
func (b *Broadcaster) Announce(ctx context.Context, sig domain.StatusSignal) {
	if err := send(ctx, &b.dialer, b.addr, string(sig)); err != nil {
		b.obs.LogDebug("status announce skipped",
			ports.F("addr", b.addr),
			ports.F("status", string(sig)),
			ports.F("error", err.Error()))
		return
	}
	b.obs.IncCounter(observability.MetricStatusAnnouncements, 1)
}

// Forwarder relays accepted record lines to the data endpoint.
type Forwarder struct {
	addr   string
	dialer net.Dialer
}

func NewForwarder(addr string) *Forwarder {
	return &Forwarder{addr: addr}
}

// Forward sends line, newline-terminated, on a fresh connection.
func (f *Forwarder) Forward(ctx context.Context, line string) error {
	if err := send(ctx, &f.dialer, f.addr, line+"\n"); err != nil {
		return fmt.Errorf("forward to display %s: %w", f.addr, err)
	}
	return nil
}

func send(ctx context.Context, d *net.Dialer, addr, payload string) error {
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Write([]byte(payload))
	return err
}

var (
	_ ports.StatusAnnouncer = (*Broadcaster)(nil)
	_ ports.RecordForwarder = (*Forwarder)(nil)
)
