package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ghalamif/enosebridge/internal/domain"
)

func TestCommandQueueFIFO(t *testing.T) {
	q := NewCommandQueue()
	q.Enqueue(domain.CmdStartSampling)
	q.Enqueue(domain.CmdStopSampling)

	ctx := context.Background()
	first, err := q.Dequeue(ctx)
	if err != nil || first != domain.CmdStartSampling {
		t.Fatalf("unexpected first command %q err=%v", first, err)
	}
	second, err := q.Dequeue(ctx)
	if err != nil || second != domain.CmdStopSampling {
		t.Fatalf("unexpected second command %q err=%v", second, err)
	}
	if q.Len() != 0 {
		t.Fatalf("queue should be empty, got %d", q.Len())
	}
}

func TestCommandQueueIsUnbounded(t *testing.T) {
	q := NewCommandQueue()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10_000; i++ {
			q.Enqueue(domain.CmdStartSampling)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("enqueue blocked without a consumer")
	}
	if q.Len() != 10_000 {
		t.Fatalf("expected 10000 queued commands, got %d", q.Len())
	}
}

func TestCommandQueueDequeueWaitsForProducer(t *testing.T) {
	q := NewCommandQueue()
	got := make(chan domain.Command, 1)

	go func() {
		cmd, err := q.Dequeue(context.Background())
		if err == nil {
			got <- cmd
		}
	}()

	time.Sleep(20 * time.Millisecond)
	q.Enqueue(domain.CmdStopSampling)

	select {
	case cmd := <-got:
		if cmd != domain.CmdStopSampling {
			t.Fatalf("unexpected command %q", cmd)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dequeue")
	}
}

func TestCommandQueueDequeueCancelled(t *testing.T) {
	q := NewCommandQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := q.Dequeue(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestCommandQueuePreservesPerProducerOrder(t *testing.T) {
	q := NewCommandQueue()

	const producers, each = 4, 100
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				q.Enqueue(domain.Command(fmt.Sprintf("%d:%03d", p, i)))
			}
		}(p)
	}
	wg.Wait()

	last := make(map[byte]string)
	for i := 0; i < producers*each; i++ {
		cmd, err := q.Dequeue(context.Background())
		if err != nil {
			t.Fatalf("dequeue %d: %v", i, err)
		}
		s := cmd.String()
		if prev, ok := last[s[0]]; ok && s <= prev {
			t.Fatalf("producer %c out of order: %s after %s", s[0], s, prev)
		}
		last[s[0]] = s
	}
}
