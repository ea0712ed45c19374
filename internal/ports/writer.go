package ports

import (
	"context"

	"github.com/ghalamif/enosebridge/internal/domain"
)

// RecordWriter performs one durable write of a record against the time-series
// backend. Implementations must not retry.
type RecordWriter interface {
	WriteRecord(ctx context.Context, rec domain.SensorRecord) error
	Name() string
}
