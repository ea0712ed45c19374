package enosebridge

import (
	"github.com/ghalamif/enosebridge/internal/adapters/display"
	"github.com/ghalamif/enosebridge/internal/adapters/mqttmirror"
	"github.com/ghalamif/enosebridge/internal/adapters/serial"
	"github.com/ghalamif/enosebridge/internal/adapters/sink"
	"github.com/ghalamif/enosebridge/internal/app/config"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	LogConfig         = config.LogConfig
	IngestConfig      = config.IngestConfig
	CommandConfig     = config.CommandConfig
	PersistenceConfig = config.PersistenceConfig
	MetricsConfig     = config.MetricsConfig
	// DisplayConfig points at the display client's data and status listeners.
	DisplayConfig = display.Config
	// SerialConfig describes the device link.
	SerialConfig    = serial.Config
	InfluxConfig    = sink.InfluxConfig
	TimescaleConfig = sink.TimescaleConfig
	// MQTTConfig enables the optional broker mirror when Broker is set.
	MQTTConfig = mqttmirror.Config
)

const (
	BackendInflux    = config.BackendInflux
	BackendTimescale = config.BackendTimescale
)

// LoadConfig loads YAML from disk using the internal config reader. An empty
// path yields the defaults plus environment overrides.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}
