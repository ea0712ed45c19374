package parser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ghalamif/enosebridge/internal/domain"
)

// DefaultMarker prefixes every sensor line sent by the device.
const DefaultMarker = "SENSOR:"

var (
	// ErrNotSensorLine marks input without the marker prefix. Callers ignore it.
	ErrNotSensorLine = errors.New("parser: not a sensor line")
	// ErrMalformed marks a sensor line that cannot become a record.
	ErrMalformed = errors.New("parser: malformed sensor line")
	// ErrClock is returned when the receipt time has no int64 nanosecond form.
	ErrClock = errors.New("parser: clock reading out of range")
)

// Representable range of time.Time.UnixNano.
var (
	minStamp = time.Unix(0, math.MinInt64)
	maxStamp = time.Unix(0, math.MaxInt64)
)

// Parser turns wire lines into records. It is safe for concurrent use; the
// timestamps it hands out never go backwards.
type Parser struct {
	marker string
	now    func() time.Time

	mu   sync.Mutex
	last int64
}

type Option func(*Parser)

// WithMarker overrides DefaultMarker.
func WithMarker(marker string) Option {
	return func(p *Parser) {
		if marker != "" {
			p.marker = marker
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

func New(opts ...Option) *Parser {
	p := &Parser{marker: DefaultMarker, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// IsSensorLine reports whether line carries the marker prefix.
func (p *Parser) IsSensorLine(line string) bool {
	return strings.HasPrefix(line, p.marker)
}

// Parse converts one trimmed line into a record.
func (p *Parser) Parse(line string) (domain.SensorRecord, error) {
	if !p.IsSensorLine(line) {
		return domain.SensorRecord{}, ErrNotSensorLine
	}

	payload := line[len(p.marker):]
	if i := strings.IndexByte(payload, ':'); i >= 0 {
		payload = payload[:i]
	}

	parts := strings.Split(payload, ",")
	if len(parts) < domain.FieldCount {
		return domain.SensorRecord{}, fmt.Errorf("%w: got %d fields, want %d", ErrMalformed, len(parts), domain.FieldCount)
	}

	var floats [7]float64
	for i := range floats {
		v, err := parseDecimal(parts[i])
		if err != nil {
			return domain.SensorRecord{}, fmt.Errorf("%w: field %d: %v", ErrMalformed, i+1, err)
		}
		floats[i] = v
	}
	state, err := strconv.ParseInt(parts[7], 10, 32)
	if err != nil {
		return domain.SensorRecord{}, fmt.Errorf("%w: state: %v", ErrMalformed, err)
	}
	level, err := strconv.ParseInt(parts[8], 10, 32)
	if err != nil {
		return domain.SensorRecord{}, fmt.Errorf("%w: level: %v", ErrMalformed, err)
	}

	ts, err := p.stamp()
	if err != nil {
		return domain.SensorRecord{}, err
	}

	return domain.SensorRecord{
		NO2GM:       floats[0],
		EthanolGM:   floats[1],
		VOCGM:       floats[2],
		COGM:        floats[3],
		COMics:      floats[4],
		EthanolMics: floats[5],
		VOCMics:     floats[6],
		State:       int32(state),
		Level:       int32(level),
		Timestamp:   ts,
	}, nil
}

// stamp returns a strictly increasing receipt time; no two records of one
// parser share a timestamp.
func (p *Parser) stamp() (int64, error) {
	now := p.now()
	if now.Before(minStamp) || now.After(maxStamp) {
		return 0, ErrClock
	}
	ns := now.UnixNano()

	p.mu.Lock()
	defer p.mu.Unlock()
	if ns <= p.last {
		if p.last == math.MaxInt64 {
			return 0, ErrClock
		}
		ns = p.last + 1
	}
	p.last = ns
	return ns, nil
}

// parseDecimal parses a float channel. Hex literals are not valid readings.
func parseDecimal(s string) (float64, error) {
	digits := strings.TrimLeft(s, "+-")
	if len(digits) > 1 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		return 0, fmt.Errorf("hex literal %q", s)
	}
	return strconv.ParseFloat(s, 64)
}
