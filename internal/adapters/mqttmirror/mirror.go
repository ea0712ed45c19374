// Package mqttmirror republishes accepted record lines and status tokens to an
// MQTT broker. It is an extra display-side destination and is best effort.
package mqttmirror

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ghalamif/enosebridge/internal/domain"
	"github.com/ghalamif/enosebridge/internal/ports"
)

var errPublishTimeout = errors.New("mqttmirror: publish timed out")

// Config holds broker details. The mirror is disabled when Broker is empty.
type Config struct {
	Broker         string        `yaml:"broker"`
	ClientID       string        `yaml:"client_id"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	TopicPrefix    string        `yaml:"topic_prefix"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

func (c *Config) Enabled() bool { return c.Broker != "" }

func (c *Config) ApplyDefaults() {
	if c.ClientID == "" {
		c.ClientID = "enose-bridge"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "enose"
	}
	c.TopicPrefix = strings.TrimSuffix(c.TopicPrefix, "/")
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 2 * time.Second
	}
}

type Mirror struct {
	client       mqtt.Client
	recordsTopic string
	statusTopic  string
	timeout      time.Duration
	obs          ports.Observability
	broker       string
}

// Dial builds a mirror whose client has not connected yet. Call Start before
// publishing.
func Dial(cfg Config, obs ports.Observability) *Mirror {
	cfg.ApplyDefaults()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		obs.LogError("mqtt mirror connection lost", err, ports.F("broker", cfg.Broker))
	})

	m := New(mqtt.NewClient(opts), cfg, obs)
	m.broker = cfg.Broker
	return m
}

// Start connects the underlying client.
func (m *Mirror) Start() error {
	if token := m.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect mqtt broker %s: %w", m.broker, token.Error())
	}
	return nil
}

// New wraps an already connected client.
func New(client mqtt.Client, cfg Config, obs ports.Observability) *Mirror {
	cfg.ApplyDefaults()
	return &Mirror{
		client:       client,
		recordsTopic: cfg.TopicPrefix + "/records",
		statusTopic:  cfg.TopicPrefix + "/status",
		timeout:      cfg.PublishTimeout,
		obs:          obs,
	}
}

func (m *Mirror) Forward(_ context.Context, line string) error {
	return m.publish(m.recordsTopic, line)
}

func (m *Mirror) Announce(_ context.Context, sig domain.StatusSignal) {
	if err := m.publish(m.statusTopic, string(sig)); err != nil {
		m.obs.LogDebug("mqtt status mirror skipped", ports.F("error", err.Error()))
	}
}

func (m *Mirror) publish(topic, payload string) error {
	token := m.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(m.timeout) {
		return errPublishTimeout
	}
	return token.Error()
}

func (m *Mirror) Close() {
	m.client.Disconnect(250)
}

var (
	_ ports.StatusAnnouncer = (*Mirror)(nil)
	_ ports.RecordForwarder = (*Mirror)(nil)
)
