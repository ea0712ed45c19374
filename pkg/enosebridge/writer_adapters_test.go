package enosebridge

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewCallbackWriter(t *testing.T) {
	var received []Record
	w := NewCallbackWriter("cb", func(_ context.Context, rec Record) error {
		received = append(received, rec)
		return nil
	})

	input := Record{NO2GM: 3.14, State: 1, Timestamp: 42}
	if err := w.WriteRecord(context.Background(), input); err != nil {
		t.Fatalf("WriteRecord returned error: %v", err)
	}
	if len(received) != 1 || received[0] != input {
		t.Fatalf("mismatched record payload: %+v vs %+v", received, input)
	}
	if w.Name() != "cb" {
		t.Fatalf("unexpected name %s", w.Name())
	}
}

func TestNewCallbackWriterNilHandler(t *testing.T) {
	w := NewCallbackWriter("", nil)
	if err := w.WriteRecord(context.Background(), Record{}); err == nil {
		t.Fatalf("expected error when callback is nil")
	}
	if w.Name() != "callback" {
		t.Fatalf("expected default name, got %s", w.Name())
	}
}

func TestNewChannelWriter(t *testing.T) {
	w, ch, closeFn := NewChannelWriter("chan", 0)
	defer closeFn()

	input := Record{COGM: 7, Timestamp: 1}
	errCh := make(chan error, 1)

	go func() {
		errCh <- w.WriteRecord(context.Background(), input)
	}()

	var got Record
	select {
	case got = <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel record")
	}

	if err := <-errCh; err != nil {
		t.Fatalf("WriteRecord returned error: %v", err)
	}
	if got != input {
		t.Fatalf("unexpected record: %+v", got)
	}

	closeFn()
	if err := w.WriteRecord(context.Background(), input); !errors.Is(err, ErrChannelWriterClosed) {
		t.Fatalf("expected ErrChannelWriterClosed, got %v", err)
	}
}

func TestChannelWriterHonoursContext(t *testing.T) {
	w, _, closeFn := NewChannelWriter("chan", 0)
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := w.WriteRecord(ctx, Record{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestChannelWriterCloseUnblocksWriter(t *testing.T) {
	w, _, closeFn := NewChannelWriter("chan", 0)

	errCh := make(chan error, 1)
	go func() { errCh <- w.WriteRecord(context.Background(), Record{}) }()

	time.Sleep(10 * time.Millisecond)
	closeFn()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrChannelWriterClosed) {
			t.Fatalf("expected ErrChannelWriterClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("close did not unblock writer")
	}
}
