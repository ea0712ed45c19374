package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/ghalamif/enosebridge/internal/adapters/display"
	"github.com/ghalamif/enosebridge/internal/adapters/mqttmirror"
	"github.com/ghalamif/enosebridge/internal/adapters/serial"
	"github.com/ghalamif/enosebridge/internal/adapters/sink"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendInflux    = "influx"
	BackendTimescale = "timescale"
)

// Environment variables that override file values. They are also read from a
// .env file in the working directory when one exists.
const (
	EnvInfluxToken  = "ENOSE_INFLUX_TOKEN"
	EnvInfluxURL    = "ENOSE_INFLUX_URL"
	EnvSerialPort   = "ENOSE_SERIAL_PORT"
	EnvTimescaleDSN = "ENOSE_TIMESCALE_DSN"
	EnvMQTTBroker   = "ENOSE_MQTT_BROKER"
	EnvMQTTPassword = "ENOSE_MQTT_PASSWORD"
	dotEnvFile      = ".env"
)

type Config struct {
	Log         LogConfig            `yaml:"log"`
	Ingest      IngestConfig         `yaml:"ingest"`
	Command     CommandConfig        `yaml:"command"`
	Display     display.Config       `yaml:"display"`
	Serial      serial.Config        `yaml:"serial"`
	Persistence PersistenceConfig    `yaml:"persistence"`
	Influx      sink.InfluxConfig    `yaml:"influx"`
	Timescale   sink.TimescaleConfig `yaml:"timescale"`
	MQTT        mqttmirror.Config    `yaml:"mqtt"`
	Metrics     MetricsConfig        `yaml:"metrics"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type IngestConfig struct {
	Addr   string `yaml:"addr"`
	Marker string `yaml:"marker"`
}

type CommandConfig struct {
	Addr string `yaml:"addr"`
}

type PersistenceConfig struct {
	Backend string `yaml:"backend"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads the YAML file at path. An empty path yields the built-in
// defaults, still subject to environment overrides.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(dotEnvFile); err != nil {
		return nil, err
	}

	var raw []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return Parse(raw)
}

// Parse decodes raw YAML and applies overrides, defaults and validation.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a validated configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

func (c *Config) applyEnv() {
	override(&c.Influx.Token, EnvInfluxToken)
	override(&c.Influx.URL, EnvInfluxURL)
	override(&c.Serial.Port, EnvSerialPort)
	override(&c.Timescale.ConnString, EnvTimescaleDSN)
	override(&c.MQTT.Broker, EnvMQTTBroker)
	override(&c.MQTT.Password, EnvMQTTPassword)
}

func override(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Ingest.Addr == "" {
		c.Ingest.Addr = "0.0.0.0:8081"
	}
	if c.Ingest.Marker == "" {
		c.Ingest.Marker = "SENSOR:"
	}
	if c.Command.Addr == "" {
		c.Command.Addr = "0.0.0.0:8082"
	}
	if c.Persistence.Backend == "" {
		c.Persistence.Backend = BackendInflux
	}
	c.Persistence.Backend = strings.ToLower(c.Persistence.Backend)
	if c.Influx.Org == "" {
		c.Influx.Org = "ITS"
	}
	if c.Influx.Bucket == "" {
		c.Influx.Bucket = "Cuz"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}

	c.Display.ApplyDefaults()
	c.Serial.ApplyDefaults()
	c.Influx.ApplyDefaults()
	if c.MQTT.Enabled() {
		c.MQTT.ApplyDefaults()
	}
}

func (c *Config) validate() error {
	if c.Ingest.Addr == "" {
		return fmt.Errorf("ingest.addr is required")
	}
	if c.Command.Addr == "" {
		return fmt.Errorf("command.addr is required")
	}
	if err := c.Serial.Validate(); err != nil {
		return fmt.Errorf("serial config: %w", err)
	}
	switch c.Persistence.Backend {
	case BackendInflux:
		if err := c.Influx.Validate(); err != nil {
			return fmt.Errorf("influx config: %w", err)
		}
	case BackendTimescale:
		if c.Timescale.ConnString == "" {
			return fmt.Errorf("timescale.conn_string is required when persistence.backend is %q", BackendTimescale)
		}
	default:
		return fmt.Errorf("persistence.backend must be %q or %q, got %q", BackendInflux, BackendTimescale, c.Persistence.Backend)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
