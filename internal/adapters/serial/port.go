package serial

import (
	"errors"
	"fmt"
	"time"

	goserial "go.bug.st/serial"
)

// Config describes the device serial link.
type Config struct {
	Port     string        `yaml:"port"`
	BaudRate int           `yaml:"baud_rate"`
	Timeout  time.Duration `yaml:"timeout"`
}

func (c *Config) ApplyDefaults() {
	if c.Port == "" {
		c.Port = "COM12"
	}
	if c.BaudRate == 0 {
		c.BaudRate = 9600
	}
	if c.Timeout == 0 {
		c.Timeout = 100 * time.Millisecond
	}
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.BaudRate <= 0 {
		return errors.New("baud_rate must be > 0")
	}
	if c.Timeout < 0 {
		return errors.New("timeout must be >= 0")
	}
	return nil
}

// Port is the subset of a serial port the relay writes to. Drain blocks until
// the output buffer has been transmitted.
type Port interface {
	Write(p []byte) (int, error)
	Drain() error
	Close() error
}

// Opener opens the device link. Tests substitute their own.
type Opener func(cfg Config) (Port, error)

// Open opens cfg.Port at the configured line speed with 8N1 framing.
func Open(cfg Config) (Port, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p, err := goserial.Open(cfg.Port, &goserial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   goserial.NoParity,
		StopBits: goserial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", cfg.Port, err)
	}
	if err := p.SetReadTimeout(cfg.Timeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("serial %s read timeout: %w", cfg.Port, err)
	}
	return p, nil
}

// Ports lists the serial ports visible to the host.
func Ports() ([]string, error) {
	return goserial.GetPortsList()
}

var _ Opener = Open
