// Package orchestrator owns the recording session lifecycle: bringing
// up the capture layers, handling each DOM event end-to-end (snapshot
// evidence, generate and build the fallback chain, buffer the result),
// and exposing the session control surface a host process drives
// (spec.md §4.9, §6).
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/brennhill/fallbackweave/internal/a11y"
	"github.com/brennhill/fallbackweave/internal/chain"
	"github.com/brennhill/fallbackweave/internal/evidence"
	"github.com/brennhill/fallbackweave/internal/locator"
	"github.com/brennhill/fallbackweave/internal/mousecapture"
	"github.com/brennhill/fallbackweave/internal/networkcapture"
	"github.com/brennhill/fallbackweave/internal/transport"
	"github.com/brennhill/fallbackweave/internal/visioncapture"
)

// ActionConsumer receives each captured action as it is produced.
// Called synchronously from HandleDomEvent after the action has been
// buffered; it must not block for long.
type ActionConsumer func(locator.CapturedAction)

// Config bundles the per-layer configuration the orchestrator wires
// together. Each field is normally produced by config.Config's ToX
// conversion methods.
type Config struct {
	EnableVision  bool
	EnableMouse   bool
	EnableNetwork bool

	OCRTimeout      time.Duration // bounds vision snapshot per action (spec.md §6 ocrTimeoutMs)
	SnapshotTimeout time.Duration // default 100ms; HandleDomEvent does not apply it (mouse/network snapshots are synchronous in-memory reads)
	A11yTTL         time.Duration

	Chain   chain.Options
	Buffer  evidence.Config
	Mouse   mousecapture.Config
	Network networkcapture.Config
	Vision  visioncapture.Config
}

// DefaultConfig matches each subsystem's own defaults.
func DefaultConfig() Config {
	return Config{
		EnableVision:    true,
		EnableMouse:     true,
		EnableNetwork:   true,
		OCRTimeout:      3 * time.Second,
		SnapshotTimeout: 100 * time.Millisecond,
		A11yTTL:         a11y.DefaultTTL,
		Chain:           chain.DefaultOptions(),
		Buffer:          evidence.DefaultConfig(),
		Mouse:           mousecapture.DefaultConfig(),
		Network:         networkcapture.DefaultConfig(),
		Vision:          visioncapture.DefaultConfig(),
	}
}

// Orchestrator drives one recording session at a time. A fresh
// Orchestrator starts idle and can be reused for another session once
// the current one reaches completed or error.
type Orchestrator struct {
	transport transport.Transport
	ocr       transport.OCREngine
	cfg       Config
	consumer  ActionConsumer

	log *slog.Logger

	mu          sync.Mutex
	state       locator.SessionState
	sessionID   string
	target      transport.Target
	layerStatus map[string]bool

	a11y    *a11y.View
	mouse   *mousecapture.Layer
	network *networkcapture.Layer
	vision  *visioncapture.Layer
	buffer  *evidence.Buffer
}

// New builds an idle Orchestrator. ocr may be nil; vision is then
// always reported disabled regardless of cfg.EnableVision. log may be
// nil, in which case slog.Default() is used.
func New(t transport.Transport, ocr transport.OCREngine, cfg Config, consumer ActionConsumer, log *slog.Logger) *Orchestrator {
	if cfg.SnapshotTimeout <= 0 {
		cfg.SnapshotTimeout = 100 * time.Millisecond
	}
	if cfg.OCRTimeout <= 0 {
		cfg.OCRTimeout = 3 * time.Second
	}
	if cfg.A11yTTL <= 0 {
		cfg.A11yTTL = a11y.DefaultTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		transport: t,
		ocr:       ocr,
		cfg:       cfg,
		consumer:  consumer,
		log:       log,
		state:     locator.StateIdle,
	}
}

// State reports the current lifecycle state.
func (o *Orchestrator) State() locator.SessionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// BufferStats is the getBufferStats() response (spec.md §6).
type BufferStats struct {
	Count int
	Bytes int64
}

// GetBufferStats reports the Evidence Buffer's current occupancy.
func (o *Orchestrator) GetBufferStats() BufferStats {
	o.mu.Lock()
	buf := o.buffer
	o.mu.Unlock()
	if buf == nil {
		return BufferStats{}
	}
	return BufferStats{Count: buf.Count(), Bytes: buf.Bytes()}
}

// LayerStatus is the getLayerStatus() response (spec.md §6): one entry
// per optional layer, true if enabled and currently active.
type LayerStatus map[string]bool

// GetLayerStatus reports which optional capture layers are active.
func (o *Orchestrator) GetLayerStatus() LayerStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(LayerStatus, len(o.layerStatus))
	for k, v := range o.layerStatus {
		out[k] = v
	}
	return out
}

// onEvict fires when the Evidence Buffer's GC drops an action to stay
// under its size limit. The action was already handed to the consumer
// synchronously in HandleDomEvent, so eviction only shrinks what Stop
// will return — it is not redelivered here, just logged.
func (o *Orchestrator) onEvict(evicted locator.CapturedAction) {
	o.log.Warn("evidence buffer evicted action before session stop",
		"actionId", evicted.ActionID, "eventType", evicted.EventType)
}
