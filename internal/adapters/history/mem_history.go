package history

import (
	"sync"

	"github.com/ghalamif/enosebridge/internal/domain"
	"github.com/ghalamif/enosebridge/internal/ports"
)

// MemHistory is an unbounded, append-only, in-memory record log. Every
// operation holds the lock for its own duration only.
type MemHistory struct {
	mu   sync.Mutex
	data []domain.SensorRecord
}

func NewMemHistory() *MemHistory {
	return &MemHistory{}
}

func (h *MemHistory) Append(rec domain.SensorRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data = append(h.data, rec)
}

// Snapshot returns a copy of the log as of the call.
func (h *MemHistory) Snapshot() []domain.SensorRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.SensorRecord, len(h.data))
	copy(out, h.data)
	return out
}

func (h *MemHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.data)
}

var _ ports.HistoryStore = (*MemHistory)(nil)
