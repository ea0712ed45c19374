package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ghalamif/enosebridge/internal/domain"
	"github.com/ghalamif/enosebridge/internal/ports"
)

// InfluxConfig describes an InfluxDB v2 write endpoint.
type InfluxConfig struct {
	URL         string        `yaml:"url"`
	Token       string        `yaml:"token"`
	Org         string        `yaml:"org"`
	Bucket      string        `yaml:"bucket"`
	Measurement string        `yaml:"measurement"`
	AuthScheme  string        `yaml:"auth_scheme"`
	Timeout     time.Duration `yaml:"timeout"`
}

func (c *InfluxConfig) ApplyDefaults() {
	if c.URL == "" {
		c.URL = "http://localhost:8086/api/v2/write"
	}
	if c.Measurement == "" {
		c.Measurement = "gas_data"
	}
	if c.AuthScheme == "" {
		c.AuthScheme = "Token"
	}
}

func (c *InfluxConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	if _, err := url.Parse(c.URL); err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if c.Org == "" {
		return fmt.Errorf("org is required")
	}
	if c.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0")
	}
	return nil
}

// InfluxWriter posts one line-protocol point per record.
type InfluxWriter struct {
	endpoint    string
	auth        string
	measurement string
	client      *http.Client
}

func NewInfluxWriter(cfg InfluxConfig, client *http.Client) (*InfluxWriter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("org", cfg.Org)
	q.Set("bucket", cfg.Bucket)
	q.Set("precision", "ns")
	u.RawQuery = q.Encode()

	if client == nil {
		// Zero timeout means none, matching the bridge's untimed network I/O.
		client = &http.Client{Timeout: cfg.Timeout}
	}

	var auth string
	if cfg.Token != "" {
		auth = cfg.AuthScheme + " " + cfg.Token
	}

	return &InfluxWriter{
		endpoint:    u.String(),
		auth:        auth,
		measurement: cfg.Measurement,
		client:      client,
	}, nil
}

func (w *InfluxWriter) Name() string { return "influxdb" }

func (w *InfluxWriter) WriteRecord(ctx context.Context, rec domain.SensorRecord) error {
	body := FormatLine(w.measurement, rec)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, strings.NewReader(body))
	if err != nil {
		return err
	}
	if w.auth != "" {
		req.Header.Set("Authorization", w.auth)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("influx write: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("influx write: HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// FormatLine renders rec as a single line-protocol point. Field names and
// order are fixed; integer channels are written without the "i" suffix so the
// backend stores every field as a float.
func FormatLine(measurement string, rec domain.SensorRecord) string {
	var b strings.Builder
	b.Grow(160)
	b.WriteString(measurement)
	b.WriteString(" no2_gm=")
	b.WriteString(formatFloat(rec.NO2GM))
	b.WriteString(",ethanol_gm=")
	b.WriteString(formatFloat(rec.EthanolGM))
	b.WriteString(",voc_gm=")
	b.WriteString(formatFloat(rec.VOCGM))
	b.WriteString(",co_gm=")
	b.WriteString(formatFloat(rec.COGM))
	b.WriteString(",co_mics=")
	b.WriteString(formatFloat(rec.COMics))
	b.WriteString(",ethanol_mics=")
	b.WriteString(formatFloat(rec.EthanolMics))
	b.WriteString(",voc_mics=")
	b.WriteString(formatFloat(rec.VOCMics))
	b.WriteString(",state=")
	b.WriteString(strconv.FormatInt(int64(rec.State), 10))
	b.WriteString(",level=")
	b.WriteString(strconv.FormatInt(int64(rec.Level), 10))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(rec.Timestamp, 10))
	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var _ ports.RecordWriter = (*InfluxWriter)(nil)
