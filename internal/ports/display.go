package ports

import (
	"context"

	"github.com/ghalamif/enosebridge/internal/domain"
)

// StatusAnnouncer pushes a persistence outcome. It is advisory: failures are
// swallowed by the implementation.
type StatusAnnouncer interface {
	Announce(ctx context.Context, sig domain.StatusSignal)
}

// RecordForwarder relays an accepted raw line to a display-side consumer.
type RecordForwarder interface {
	Forward(ctx context.Context, line string) error
}
