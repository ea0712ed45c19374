package enosebridge

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"
)

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
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for payload")
		return ""
	}
}

func receiveRecord(t *testing.T, ch <-chan Record) Record {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for record")
		return Record{}
	}
}

type stubWriter struct{}

func (s *stubWriter) WriteRecord(context.Context, Record) error { return nil }
func (s *stubWriter) Name() string                              { return "stub" }

type stubHistory struct{}

func (s *stubHistory) Append(Record)      {}
func (s *stubHistory) Snapshot() []Record { return nil }
func (s *stubHistory) Len() int           { return 0 }

type stubQueue struct{}

func (s *stubQueue) Enqueue(Command) {}
func (s *stubQueue) Dequeue(ctx context.Context) (Command, error) {
	<-ctx.Done()
	return "", ctx.Err()
}
func (s *stubQueue) Len() int { return 0 }

type stubObservability struct{}

func (s *stubObservability) LogDebug(string, ...Field)           {}
func (s *stubObservability) LogInfo(string, ...Field)            {}
func (s *stubObservability) LogError(string, error, ...Field)    {}
func (s *stubObservability) LogCritical(string, error, ...Field) {}
func (s *stubObservability) IncCounter(string, float64)          {}
func (s *stubObservability) ObserveLatency(string, float64)      {}
func (s *stubObservability) SetGauge(string, float64)            {}
func (s *stubObservability) RecordMalformed(string, error)       {}

type fakePort struct {
	mu    sync.Mutex
	lines chan string
}

func newFakePort() *fakePort { return &fakePort{lines: make(chan string, 8)} }

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines <- string(b)
	return len(b), nil
}
func (p *fakePort) Drain() error { return nil }
func (p *fakePort) Close() error { return nil }

func (p *fakePort) opener() PortOpener {
	return func(SerialConfig) (SerialPort, error) { return p, nil }
}
