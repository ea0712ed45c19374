package enosebridge

import (
	"context"

	base "github.com/ghalamif/enosebridge/pkg/enosebridge"
)

// Re-exported errors for convenience.
var (
	ErrNotStarted          = base.ErrNotStarted
	ErrChannelWriterClosed = base.ErrChannelWriterClosed
)

// Type aliases so consumers can import github.com/ghalamif/enosebridge directly.
type (
	Config            = base.Config
	LogConfig         = base.LogConfig
	IngestConfig      = base.IngestConfig
	CommandConfig     = base.CommandConfig
	PersistenceConfig = base.PersistenceConfig
	MetricsConfig     = base.MetricsConfig
	DisplayConfig     = base.DisplayConfig
	SerialConfig      = base.SerialConfig
	InfluxConfig      = base.InfluxConfig
	TimescaleConfig   = base.TimescaleConfig
	MQTTConfig        = base.MQTTConfig
	Bridge            = base.Bridge
	Option            = base.Option
	Record            = base.Record
	Command           = base.Command
	StatusSignal      = base.StatusSignal
	RecordWriter      = base.RecordWriter
	RecordHandler     = base.RecordHandler
	HistoryStore      = base.HistoryStore
	CommandQueue      = base.CommandQueue
	Observability     = base.Observability
	Field             = base.Field
	SerialPort        = base.SerialPort
	PortOpener        = base.PortOpener
)

const (
	BackendInflux    = base.BackendInflux
	BackendTimescale = base.BackendTimescale

	CmdStartSampling = base.CmdStartSampling
	CmdStopSampling  = base.CmdStopSampling
	CmdSaveInflux    = base.CmdSaveInflux
	CmdSaveDatabase  = base.CmdSaveDatabase

	StatusOK    = base.StatusOK
	StatusError = base.StatusError
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

// Bridge runtime and options.
func New(cfg *Config, opts ...Option) (*Bridge, error) {
	return base.New(cfg, opts...)
}

func WithRecordWriter(w RecordWriter) Option {
	return base.WithRecordWriter(w)
}

func WithObservability(obs Observability) Option {
	return base.WithObservability(obs)
}

func WithHistory(h HistoryStore) Option {
	return base.WithHistory(h)
}

func WithCommandQueue(q CommandQueue) Option {
	return base.WithCommandQueue(q)
}

func WithPortOpener(fn PortOpener) Option {
	return base.WithPortOpener(fn)
}

// Writer adapters.
func NewCallbackWriter(name string, fn RecordHandler) RecordWriter {
	return base.NewCallbackWriter(name, fn)
}

func NewChannelWriter(name string, buffer int) (RecordWriter, <-chan Record, func()) {
	return base.NewChannelWriter(name, buffer)
}

// Client helpers.
func ParseCommand(payload string) Command {
	return base.ParseCommand(payload)
}

func SendCommand(ctx context.Context, addr, command string) error {
	return base.SendCommand(ctx, addr, command)
}

func ListSerialPorts() ([]string, error) {
	return base.ListSerialPorts()
}
