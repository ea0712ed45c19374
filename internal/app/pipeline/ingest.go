package pipeline

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/ghalamif/enosebridge/internal/adapters/observability"
	"github.com/ghalamif/enosebridge/internal/app/gateway"
	"github.com/ghalamif/enosebridge/internal/app/parser"
	"github.com/ghalamif/enosebridge/internal/ports"
)

// IngestServer accepts device connections and fans every parsed record out to
// the history, the persistence gateway and the display forwarders.
type IngestServer struct {
	addr       string
	parser     *parser.Parser
	history    ports.HistoryStore
	gateway    *gateway.Gateway
	forwarders []ports.RecordForwarder
	obs        ports.Observability
}

func NewIngestServer(addr string, p *parser.Parser, history ports.HistoryStore, gw *gateway.Gateway, obs ports.Observability, forwarders ...ports.RecordForwarder) *IngestServer {
	return &IngestServer{
		addr:       addr,
		parser:     p,
		history:    history,
		gateway:    gw,
		forwarders: forwarders,
		obs:        obs,
	}
}

// Listen binds the configured address. Pass the listener to Serve.
func (s *IngestServer) Listen() (net.Listener, error) {
	return listen(s.addr, "ingest")
}

// Serve runs the accept loop on ln until ctx is cancelled.
func (s *IngestServer) Serve(ctx context.Context, ln net.Listener) error {
	s.obs.LogInfo("ingest server listening", ports.F("addr", ln.Addr().String()))
	return serveLoop(ctx, ln, "ingest", s.handleConn)
}

func (s *IngestServer) handleConn(ctx context.Context, conn net.Conn) {
	remote := conn.RemoteAddr().String()
	s.obs.LogInfo("device connected", ports.F("remote", remote))

	r := bufio.NewReader(conn)
	for {
		raw, err := r.ReadString('\n')
		if raw != "" {
			s.HandleLine(ctx, raw)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.obs.LogError("device read failed", err, ports.F("remote", remote))
			}
			s.obs.LogInfo("device disconnected", ports.F("remote", remote))
			return
		}
	}
}

// HandleLine runs one wire line through the ingest path and reports whether it
// produced a record. Connection handlers call it per line; embedders may call
// it directly.
func (s *IngestServer) HandleLine(ctx context.Context, raw string) bool {
	line := strings.TrimSpace(raw)
	if !s.parser.IsSensorLine(line) {
		return false
	}
	s.obs.LogDebug("sensor line", ports.F("line", line))

	rec, err := s.parser.Parse(line)
	if err != nil {
		s.obs.RecordMalformed(line, err)
		return false
	}

	s.history.Append(rec)
	s.obs.IncCounter(observability.MetricRecordsIngested, 1)

	s.gateway.Persist(ctx, rec)

	for _, f := range s.forwarders {
		if err := f.Forward(ctx, line); err != nil {
			s.obs.IncCounter(observability.MetricForwardFailures, 1)
			s.obs.LogError("display forward failed", err)
		}
	}
	return true
}
