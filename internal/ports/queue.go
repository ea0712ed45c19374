package ports

import (
	"context"

	"github.com/ghalamif/enosebridge/internal/domain"
)

// CommandQueue carries device commands from the command server to the device
// relay. Enqueue never blocks; Dequeue blocks until a command is available or
// ctx is done.
type CommandQueue interface {
	Enqueue(cmd domain.Command)
	Dequeue(ctx context.Context) (domain.Command, error)
	Len() int
}
