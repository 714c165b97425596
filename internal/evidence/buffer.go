// Package evidence is the Evidence Buffer: a bounded, GC'd FIFO store of
// per-action evidence bundles (spec.md §4.8). The buffer never holds a
// half-built action — every entry carries a complete FallbackChain.
package evidence

import (
	"sync"

	"github.com/brennhill/fallbackweave/internal/locator"
)

// EvictionNotifier is invoked with the evicted action whenever the GC
// pass drops one, so the orchestrator can flush before further captures
// (spec.md §4.8 "evicted action notifies the orchestrator").
type EvictionNotifier func(evicted locator.CapturedAction)

// Config bounds the buffer.
type Config struct {
	SizeLimitBytes int64
	GCThreshold    float64 // occupancy fraction that triggers GC, default 0.80
	GCTarget       float64 // occupancy fraction GC evicts down to, default 0.60
	FixedOverhead  int64   // per-entry byte overhead estimate, mirrors the teacher's per-entry overhead constants
}

// DefaultConfig matches spec.md §4.8 defaults.
func DefaultConfig() Config {
	return Config{
		SizeLimitBytes: 70 * 1024 * 1024,
		GCThreshold:    0.80,
		GCTarget:       0.60,
		FixedOverhead:  500,
	}
}

// Buffer is the bounded, GC'd evidence store.
type Buffer struct {
	cfg     Config
	onEvict EvictionNotifier

	mu      sync.RWMutex
	actions []locator.CapturedAction // FIFO order, oldest first
	bytes   int64
}

// New builds a Buffer. A zero Config uses DefaultConfig. onEvict may be
// nil.
func New(cfg Config, onEvict EvictionNotifier) *Buffer {
	d := DefaultConfig()
	if cfg.SizeLimitBytes <= 0 {
		cfg.SizeLimitBytes = d.SizeLimitBytes
	}
	if cfg.GCThreshold <= 0 {
		cfg.GCThreshold = d.GCThreshold
	}
	if cfg.GCTarget <= 0 {
		cfg.GCTarget = d.GCTarget
	}
	if cfg.FixedOverhead <= 0 {
		cfg.FixedOverhead = d.FixedOverhead
	}
	return &Buffer{cfg: cfg, onEvict: onEvict}
}

func (b *Buffer) entrySize(a locator.CapturedAction) int64 {
	size := b.cfg.FixedOverhead
	for _, s := range a.FallbackChain.Strategies {
		size += int64(len(s.Selector)) + int64(len(s.Type)) + 64
	}
	return size
}

// Put admits an action. Admission is refused only if the entry still
// does not fit under the size limit after a GC pass is attempted (spec.md §4.8
// "accept unless buffer full; on full, trigger GC").
func (b *Buffer) Put(a locator.CapturedAction) error {
	if len(a.FallbackChain.Strategies) == 0 {
		return locator.ErrNotFound
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	size := b.entrySize(a)
	if b.bytes+size > b.cfg.SizeLimitBytes {
		b.gcLocked()
	}
	if b.bytes+size > b.cfg.SizeLimitBytes {
		return locator.ErrBufferFull
	}

	b.actions = append(b.actions, a)
	b.bytes += size

	if float64(b.bytes) >= float64(b.cfg.SizeLimitBytes)*b.cfg.GCThreshold {
		b.gcLocked()
	}
	return nil
}

// gcLocked evicts oldest actions until occupancy is at or below
// GCTarget, notifying onEvict for each dropped action (spec.md §4.8).
// Caller must hold mu.
func (b *Buffer) gcLocked() {
	targetBytes := int64(float64(b.cfg.SizeLimitBytes) * b.cfg.GCTarget)
	dropped := 0
	for b.bytes > targetBytes && dropped < len(b.actions) {
		evicted := b.actions[dropped]
		b.bytes -= b.entrySize(evicted)
		dropped++
		if b.onEvict != nil {
			b.onEvict(evicted)
		}
	}
	if dropped > 0 {
		surviving := make([]locator.CapturedAction, len(b.actions)-dropped)
		copy(surviving, b.actions[dropped:])
		b.actions = surviving
	}
}

// Drain returns all buffered actions in FIFO order and clears the
// buffer atomically (spec.md §8 "put(a); drain(); yields exactly the
// set put, in FIFO order, with no duplicates").
func (b *Buffer) Drain() []locator.CapturedAction {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.actions
	b.actions = nil
	b.bytes = 0
	return out
}

// Count returns the current number of buffered actions.
func (b *Buffer) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.actions)
}

// Bytes returns the current estimated occupancy in bytes.
func (b *Buffer) Bytes() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bytes
}
