package queue

import (
	"context"
	"sync"

	"github.com/ghalamif/enosebridge/internal/domain"
	"github.com/ghalamif/enosebridge/internal/ports"
)

// CommandQueue is an unbounded FIFO with any number of producers and a single
// consumer. Producers never block; there is no backpressure when the consumer
// stalls or has exited.
type CommandQueue struct {
	mu    sync.Mutex
	data  []domain.Command
	ready chan struct{}
}

func NewCommandQueue() *CommandQueue {
	return &CommandQueue{ready: make(chan struct{}, 1)}
}

func (q *CommandQueue) Enqueue(cmd domain.Command) {
	q.mu.Lock()
	q.data = append(q.data, cmd)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Dequeue blocks until a command is available or ctx is done.
func (q *CommandQueue) Dequeue(ctx context.Context) (domain.Command, error) {
	for {
		if cmd, ok := q.pop(); ok {
			return cmd, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-q.ready:
		}
	}
}

func (q *CommandQueue) pop() (domain.Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return "", false
	}
	cmd := q.data[0]
	q.data[0] = ""
	q.data = q.data[1:]
	if len(q.data) == 0 {
		q.data = nil
	}
	return cmd, true
}

func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

var _ ports.CommandQueue = (*CommandQueue)(nil)
