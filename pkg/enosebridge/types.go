package enosebridge

import (
	"github.com/ghalamif/enosebridge/internal/adapters/serial"
	"github.com/ghalamif/enosebridge/internal/domain"
	"github.com/ghalamif/enosebridge/internal/ports"
)

// Record is one parsed sensor reading. It mirrors internal/domain.SensorRecord
// so custom adapters can reference it.
type Record = domain.SensorRecord

// Command is a normalized control token from the display client.
type Command = domain.Command

// StatusSignal is the persistence outcome pushed to the display client.
type StatusSignal = domain.StatusSignal

// RecordWriter persists a single record to any downstream system.
type RecordWriter = ports.RecordWriter

// HistoryStore keeps every record received since start.
type HistoryStore = ports.HistoryStore

// CommandQueue carries device commands from the command server to the relay.
type CommandQueue = ports.CommandQueue

// Observability emits metrics and logs about ingestion, persistence and commands.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// SerialPort is the device link the relay writes to.
type SerialPort = serial.Port

// PortOpener opens the device link; swap it to drive a simulator.
type PortOpener = serial.Opener

const (
	CmdStartSampling = domain.CmdStartSampling
	CmdStopSampling  = domain.CmdStopSampling
	CmdSaveInflux    = domain.CmdSaveInflux
	CmdSaveDatabase  = domain.CmdSaveDatabase

	StatusOK    = domain.StatusOK
	StatusError = domain.StatusError
)

// ParseCommand normalizes a raw command payload.
func ParseCommand(payload string) Command {
	return domain.ParseCommand(payload)
}
