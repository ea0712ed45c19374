package gateway

import (
	"context"
	"time"

	"github.com/ghalamif/enosebridge/internal/adapters/observability"
	"github.com/ghalamif/enosebridge/internal/domain"
	"github.com/ghalamif/enosebridge/internal/ports"
)

// Gateway turns records into backend writes and reports every outcome on the
// status channel.
type Gateway struct {
	writer    ports.RecordWriter
	announcer ports.StatusAnnouncer
	obs       ports.Observability
}

func New(writer ports.RecordWriter, announcer ports.StatusAnnouncer, obs ports.Observability) *Gateway {
	return &Gateway{writer: writer, announcer: announcer, obs: obs}
}

// Persist makes exactly one write attempt and reports whether the backend
// accepted it. The outcome is announced either way.
func (g *Gateway) Persist(ctx context.Context, rec domain.SensorRecord) bool {
	start := time.Now()
	err := g.writer.WriteRecord(ctx, rec)
	g.obs.ObserveLatency(observability.MetricPersistLatency, time.Since(start).Seconds())

	ok := err == nil
	g.announce(ctx, domain.StatusFor(ok))

	if ok {
		g.obs.IncCounter(observability.MetricPersistSuccess, 1)
		g.obs.LogInfo("record persisted",
			ports.F("backend", g.writer.Name()),
			ports.F("ts", rec.Timestamp))
	} else {
		g.obs.IncCounter(observability.MetricPersistFailure, 1)
		g.obs.LogError("record persist failed", err,
			ports.F("backend", g.writer.Name()),
			ports.F("ts", rec.Timestamp))
	}
	return ok
}

// SweepResult summarizes a bulk re-persist.
type SweepResult struct {
	Total     int
	Succeeded int
}

func (r SweepResult) OK() bool { return r.Succeeded == r.Total }

// Sweep persists every record once, in order, then announces a single
// aggregate status. Records already written are written again.
func (g *Gateway) Sweep(ctx context.Context, records []domain.SensorRecord) SweepResult {
	start := time.Now()
	res := SweepResult{Total: len(records)}
	for _, rec := range records {
		if g.Persist(ctx, rec) {
			res.Succeeded++
		}
	}

	g.announce(ctx, domain.StatusFor(res.OK()))
	g.obs.IncCounter(observability.MetricSweeps, 1)
	g.obs.ObserveLatency(observability.MetricSweepDuration, time.Since(start).Seconds())
	g.obs.LogInfo("history sweep complete",
		ports.F("saved", res.Succeeded),
		ports.F("total", res.Total))
	return res
}

func (g *Gateway) announce(ctx context.Context, sig domain.StatusSignal) {
	if g.announcer == nil {
		return
	}
	g.announcer.Announce(ctx, sig)
}
