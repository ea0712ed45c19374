package enosebridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrChannelWriterClosed is returned when a channel writer is written to after being closed.
var ErrChannelWriterClosed = errors.New("enosebridge: channel writer closed")

// RecordHandler persists one record. Returning an error reports INFLUX:ERROR
// to the display client.
type RecordHandler func(ctx context.Context, rec Record) error

// NewCallbackWriter adapts a RecordHandler into a full RecordWriter so callers
// can plug arbitrary functions without defining structs.
func NewCallbackWriter(name string, fn RecordHandler) RecordWriter {
	if name == "" {
		name = "callback"
	}
	return &callbackWriter{name: name, fn: fn}
}

// NewChannelWriter exposes persisted records via a channel; it returns the
// writer, the read-only channel, and a close function that the caller should
// invoke during shutdown. A write blocks until the record is received, the
// writer is closed or ctx ends.
func NewChannelWriter(name string, buffer int) (RecordWriter, <-chan Record, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan Record, buffer)
	w := &channelWriter{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return w, ch, func() { w.close() }
}

type callbackWriter struct {
	name string
	fn   RecordHandler
}

func (w *callbackWriter) WriteRecord(ctx context.Context, rec Record) error {
	if w.fn == nil {
		return fmt.Errorf("callback writer %q: nil handler", w.name)
	}
	return w.fn(ctx, rec)
}

func (w *callbackWriter) Name() string { return w.name }

type channelWriter struct {
	name   string
	ch     chan Record
	closed chan struct{}
	mu     sync.RWMutex
	once   sync.Once
}

func (w *channelWriter) WriteRecord(ctx context.Context, rec Record) error {
	// Held for reading so close cannot race a send on ch.
	w.mu.RLock()
	defer w.mu.RUnlock()

	select {
	case <-w.closed:
		return ErrChannelWriterClosed
	default:
	}

	select {
	case <-w.closed:
		return ErrChannelWriterClosed
	case <-ctx.Done():
		return ctx.Err()
	case w.ch <- rec:
		return nil
	}
}

func (w *channelWriter) Name() string { return w.name }

func (w *channelWriter) close() {
	w.once.Do(func() {
		close(w.closed)
		w.mu.Lock()
		close(w.ch)
		w.mu.Unlock()
	})
}
