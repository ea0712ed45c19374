package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/ghalamif/enosebridge/internal/adapters/observability"
	"github.com/ghalamif/enosebridge/internal/adapters/serial"
	"github.com/ghalamif/enosebridge/internal/ports"
)

// DeviceRelay is the single consumer of the command queue and the sole owner
// of the serial link.
type DeviceRelay struct {
	cfg   serial.Config
	open  serial.Opener
	queue ports.CommandQueue
	obs   ports.Observability
}

func NewDeviceRelay(cfg serial.Config, open serial.Opener, queue ports.CommandQueue, obs ports.Observability) *DeviceRelay {
	if open == nil {
		open = serial.Open
	}
	return &DeviceRelay{cfg: cfg, open: open, queue: queue, obs: obs}
}

// Run opens the link and drains the queue until ctx is cancelled. A failed
// open, write or flush ends the relay for good; commands enqueued afterwards
// are never delivered.
func (r *DeviceRelay) Run(ctx context.Context) error {
	r.obs.LogInfo("opening serial link", ports.F("port", r.cfg.Port), ports.F("baud", r.cfg.BaudRate))
	port, err := r.open(r.cfg)
	if err != nil {
		return fmt.Errorf("device relay: %w", err)
	}
	defer port.Close()
	r.obs.LogInfo("serial link connected", ports.F("port", r.cfg.Port))

	for {
		cmd, err := r.queue.Dequeue(ctx)
		if err != nil {
			return nil
		}
		if err := writeFull(port, []byte(cmd.String()+"\n")); err != nil {
			return fmt.Errorf("device relay write %s: %w", cmd, err)
		}
		if err := port.Drain(); err != nil {
			return fmt.Errorf("device relay flush %s: %w", cmd, err)
		}
		r.obs.IncCounter(observability.MetricDeviceCommandsSent, 1)
		r.obs.LogInfo("command sent to device", ports.F("command", cmd.String()))
	}
}

func writeFull(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		b = b[n:]
	}
	return nil
}
