package ports

import "github.com/ghalamif/enosebridge/internal/domain"

// HistoryStore is the session-wide, append-only log of accepted records.
type HistoryStore interface {
	Append(rec domain.SensorRecord)
	Snapshot() []domain.SensorRecord
	Len() int
}
