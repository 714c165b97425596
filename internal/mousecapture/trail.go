// Package mousecapture maintains a rolling kinematic trail of recent
// mouse movement and derives endpoint/pattern summaries on read
// (spec.md §4.5).
package mousecapture

import (
	"math"
	"sync"
	"time"

	"github.com/brennhill/fallbackweave/internal/locator"
)

// Config controls sampling cadence and retention.
type Config struct {
	SampleRate           time.Duration // minimum time between samples
	MovementThreshold    float64       // minimum px movement to sample
	MaxTrailLength       int
	RetentionWindow      time.Duration
	HesitationThreshold  time.Duration
	DirectionChangeAngle float64 // degrees
}

// DefaultConfig matches spec.md §4.5 defaults.
func DefaultConfig() Config {
	return Config{
		SampleRate:           50 * time.Millisecond,
		MovementThreshold:    3,
		MaxTrailLength:       100,
		RetentionWindow:      5 * time.Second,
		HesitationThreshold:  200 * time.Millisecond,
		DirectionChangeAngle: 45,
	}
}

// Layer is the Mouse Capture Layer.
type Layer struct {
	cfg Config

	mu     sync.Mutex
	points []locator.MousePoint
	lastAt time.Time
	downAt *locator.Point // mousedown point, used as the endpoint fallback
}

// New builds a Layer. A zero Config uses DefaultConfig.
func New(cfg Config) *Layer {
	d := DefaultConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = d.SampleRate
	}
	if cfg.MovementThreshold <= 0 {
		cfg.MovementThreshold = d.MovementThreshold
	}
	if cfg.MaxTrailLength <= 0 {
		cfg.MaxTrailLength = d.MaxTrailLength
	}
	if cfg.RetentionWindow <= 0 {
		cfg.RetentionWindow = d.RetentionWindow
	}
	if cfg.HesitationThreshold <= 0 {
		cfg.HesitationThreshold = d.HesitationThreshold
	}
	if cfg.DirectionChangeAngle <= 0 {
		cfg.DirectionChangeAngle = d.DirectionChangeAngle
	}
	return &Layer{cfg: cfg}
}

// OnMouseMove samples a passively observed mousemove event, subject to
// the cadence/distance gate (spec.md §4.5).
func (l *Layer) OnMouseMove(x, y float64, t time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.points) > 0 {
		last := l.points[len(l.points)-1]
		if t.Sub(last.T) < l.cfg.SampleRate {
			return
		}
		if dist(last.X, last.Y, x, y) < l.cfg.MovementThreshold {
			return
		}
	}

	p := locator.MousePoint{X: x, Y: y, T: t}
	if len(l.points) > 0 {
		last := l.points[len(l.points)-1]
		dt := t.Sub(last.T).Seconds()
		if dt > 0 {
			p.Velocity = dist(last.X, last.Y, x, y) / dt
			p.Acceleration = (p.Velocity - last.Velocity) / dt
		}
	}

	l.points = append(l.points, p)
	if len(l.points) > l.cfg.MaxTrailLength {
		l.points = l.points[len(l.points)-l.cfg.MaxTrailLength:]
	}
	l.prune(t)
}

// OnMouseDown records the press point, used as the endpoint fallback
// when the trail is empty (spec.md §8).
func (l *Layer) OnMouseDown(x, y float64, t time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := locator.Point{X: x, Y: y}
	l.downAt = &p
	l.points = append(l.points, locator.MousePoint{X: x, Y: y, T: t, Pressed: true})
}

// OnMouseUp records the release point.
func (l *Layer) OnMouseUp(x, y float64, t time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.points = append(l.points, locator.MousePoint{X: x, Y: y, T: t, Pressed: true})
}

func (l *Layer) prune(now time.Time) {
	cutoff := now.Add(-l.cfg.RetentionWindow)
	i := 0
	for i < len(l.points) && l.points[i].T.Before(cutoff) {
		i++
	}
	if i > 0 {
		l.points = l.points[i:]
	}
}

// Consume returns the current trail and summary, then clears the buffer
// atomically (spec.md §4.5).
func (l *Layer) Consume() ([]locator.MousePoint, locator.MouseTrailSummary) {
	l.mu.Lock()
	defer l.mu.Unlock()

	points := l.points
	downAt := l.downAt
	l.points = nil
	l.downAt = nil

	summary := Summarize(points, downAt, l.cfg)
	return points, summary
}

// Peek returns the current trail and summary without clearing it.
func (l *Layer) Peek() ([]locator.MousePoint, locator.MouseTrailSummary) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]locator.MousePoint{}, l.points...), Summarize(l.points, l.downAt, l.cfg)
}

func dist(x1, y1, x2, y2 float64) float64 {
	dx, dy := x2-x1, y2-y1
	return math.Sqrt(dx*dx + dy*dy)
}
