package pipeline

import (
	"context"
	"io"
	"net"

	"github.com/ghalamif/enosebridge/internal/adapters/observability"
	"github.com/ghalamif/enosebridge/internal/app/gateway"
	"github.com/ghalamif/enosebridge/internal/domain"
	"github.com/ghalamif/enosebridge/internal/ports"
)

// CommandServer accepts one command per display-client connection.
type CommandServer struct {
	addr    string
	queue   ports.CommandQueue
	history ports.HistoryStore
	gateway *gateway.Gateway
	obs     ports.Observability
}

func NewCommandServer(addr string, queue ports.CommandQueue, history ports.HistoryStore, gw *gateway.Gateway, obs ports.Observability) *CommandServer {
	return &CommandServer{
		addr:    addr,
		queue:   queue,
		history: history,
		gateway: gw,
		obs:     obs,
	}
}

// Listen binds the configured address. Pass the listener to Serve.
func (s *CommandServer) Listen() (net.Listener, error) {
	return listen(s.addr, "command")
}

func (s *CommandServer) Serve(ctx context.Context, ln net.Listener) error {
	s.obs.LogInfo("command server listening", ports.F("addr", ln.Addr().String()))
	return serveLoop(ctx, ln, "command", s.handleConn)
}

// handleConn reads until the peer closes its side; the payload is the command.
// Nothing is written back.
func (s *CommandServer) handleConn(ctx context.Context, conn net.Conn) {
	payload, err := io.ReadAll(conn)
	if err != nil {
		if ctx.Err() == nil {
			s.obs.LogError("command read failed", err, ports.F("remote", conn.RemoteAddr().String()))
		}
		return
	}
	s.Dispatch(ctx, domain.ParseCommand(string(payload)))
}

// Dispatch acts on a normalized command.
func (s *CommandServer) Dispatch(ctx context.Context, cmd domain.Command) {
	switch {
	case cmd.IsDeviceCommand():
		s.queue.Enqueue(cmd)
		s.obs.IncCounter(observability.MetricCommandsDispatched, 1)
		s.obs.LogInfo("command queued for device", ports.F("command", cmd.String()))
	case cmd.IsSweep():
		s.obs.LogInfo("history sweep requested", ports.F("command", cmd.String()))
		s.gateway.Sweep(ctx, s.history.Snapshot())
	default:
		s.obs.IncCounter(observability.MetricCommandsUnknown, 1)
		s.obs.LogInfo("unknown command", ports.F("command", cmd.String()))
	}
}
