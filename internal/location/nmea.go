// ABOUTME: NMEA 0183 location source for serial GPS receivers and gpsd
// ABOUTME: Parses RMC and GGA sentences and batches fixes per requested interval

package location

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/harper/beacon/internal/models"
)

const knotsToMetersPerSecond = 0.514444

// uereMeters is the nominal range error HDOP is scaled by to estimate accuracy.
const uereMeters = 5.0

// dialTimeout bounds settings checks and connects for TCP sources.
const dialTimeout = 5 * time.Second

// NMEA reads sentences from a device, file, or tcp://host:port stream.
type NMEA struct {
	target string
	now    func() time.Time

	mu  sync.Mutex
	sub *nmeaSub
}

// NewNMEA returns a source reading from target.
func NewNMEA(target string) *NMEA {
	return &NMEA{target: target, now: time.Now}
}

// Name returns the source description.
func (n *NMEA) Name() string {
	return "nmea:" + n.target
}

func (n *NMEA) tcpAddr() (string, bool) {
	return strings.CutPrefix(n.target, "tcp://")
}

// CheckSettings verifies the device exists and is readable, or that the
// TCP endpoint accepts connections.
func (n *NMEA) CheckSettings(ctx context.Context) error {
	rc, err := n.open(ctx)
	if err != nil {
		return err
	}
	return rc.Close()
}

func (n *NMEA) open(ctx context.Context) (io.ReadCloser, error) {
	if addr, ok := n.tcpAddr(); ok {
		d := net.Dialer{Timeout: dialTimeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDisabled, n.target, err)
		}
		return conn, nil
	}

	f, err := os.Open(n.target)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s does not exist", ErrDisabled, n.target)
	case errors.Is(err, fs.ErrPermission):
		return nil, fmt.Errorf("%w: %s", ErrPermission, n.target)
	case err != nil:
		return nil, fmt.Errorf("open %s: %w", n.target, err)
	}
	return f, nil
}

// RequestUpdates opens the source and delivers the fixes read during each
// interval. Intervals without a valid fix deliver nothing. The stream is
// held by one subscription at a time; a second request before Remove
// returns ErrAlreadySubscribed.
func (n *NMEA) RequestUpdates(req Request, cb Callback) (Subscription, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sub != nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadySubscribed, n.target)
	}

	rc, err := n.open(context.Background())
	if err != nil {
		return nil, err
	}
	interval := req.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	gate := newDistanceGate(req.MinDistance)
	sub := &nmeaSub{
		owner:  n,
		rc:     rc,
		ticker: newTickerSub(),
		read:   make(chan struct{}),
	}
	n.sub = sub
	go sub.readLoop(&SentenceParser{Now: n.now})
	go sub.ticker.run(interval, func() {
		if fixes := gate.filter(sub.drain()); len(fixes) > 0 {
			cb(fixes)
		}
	})
	return sub, nil
}

func (n *NMEA) release(sub *nmeaSub) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sub == sub {
		n.sub = nil
	}
}

type nmeaSub struct {
	owner  *NMEA
	rc     io.ReadCloser
	ticker *tickerSub
	read   chan struct{}

	mu      sync.Mutex
	pending []models.Fix
}

func (s *nmeaSub) readLoop(p *SentenceParser) {
	defer close(s.read)
	scanner := bufio.NewScanner(s.rc)
	for scanner.Scan() {
		fix, ok, err := p.Parse(scanner.Text())
		if err != nil || !ok {
			continue
		}
		s.mu.Lock()
		s.pending = append(s.pending, fix)
		s.mu.Unlock()
	}
}

func (s *nmeaSub) drain() []models.Fix {
	s.mu.Lock()
	defer s.mu.Unlock()
	fixes := s.pending
	s.pending = nil
	return fixes
}

// Remove closes the stream and stops deliveries. The source can be
// requested again afterwards.
func (s *nmeaSub) Remove() error {
	err := s.rc.Close()
	<-s.read
	_ = s.ticker.Remove()
	s.owner.release(s)
	if errors.Is(err, os.ErrClosed) || errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

// SentenceParser turns a stream of NMEA lines into fixes. RMC sentences
// carry the position; the HDOP of the latest GGA sentence sets the
// accuracy of the fixes that follow it.
type SentenceParser struct {
	Now  func() time.Time
	hdop float64
}

// ParseSentence converts one NMEA line into a fix without GGA context.
func ParseSentence(line string, now func() time.Time) (models.Fix, bool, error) {
	p := &SentenceParser{Now: now}
	return p.Parse(line)
}

// Parse converts one line into a fix. ok is false for sentences that carry
// no valid position.
func (p *SentenceParser) Parse(line string) (models.Fix, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return models.Fix{}, false, nil
	}
	s, err := nmea.Parse(line)
	if err != nil {
		return models.Fix{}, false, fmt.Errorf("parse nmea: %w", err)
	}

	switch s.DataType() {
	case nmea.TypeGGA:
		g := s.(nmea.GGA)
		if g.FixQuality == nmea.Invalid {
			p.hdop = 0
		} else {
			p.hdop = g.HDOP
		}
		return models.Fix{}, false, nil
	case nmea.TypeRMC:
	default:
		return models.Fix{}, false, nil
	}

	m := s.(nmea.RMC)
	if m.Validity != nmea.ValidRMC {
		return models.Fix{}, false, nil
	}
	if err := models.ValidateCoordinates(m.Latitude, m.Longitude); err != nil {
		return models.Fix{}, false, err
	}

	fix := models.Fix{
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
		Speed:     m.Speed * knotsToMetersPerSecond,
		Accuracy:  p.hdop * uereMeters,
		Time:      p.Now(),
	}
	if m.Date.Valid && m.Time.Valid {
		fix.Time = fixTime(m.Date, m.Time)
	}
	return fix, true, nil
}

func fixTime(d nmea.Date, t nmea.Time) time.Time {
	year := 2000 + d.YY
	if d.YY >= 80 {
		year = 1900 + d.YY
	}
	return time.Date(year, time.Month(d.MM), d.DD,
		t.Hour, t.Minute, t.Second, t.Millisecond*int(time.Millisecond), time.UTC)
}
