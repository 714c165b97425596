// Package visioncapture is the Vision Capture Layer: it screenshots the
// region around a captured action, runs OCR over it, and caches the
// result by a region fingerprint (page URL plus box geometry) so
// repeated captures of the same region within the cache TTL skip a
// redundant round-trip (spec.md §4.6).
package visioncapture

import (
	"context"
	"sync"
	"time"

	"github.com/brennhill/fallbackweave/internal/locator"
	"github.com/brennhill/fallbackweave/internal/transport"
)

// Config controls caching and quality floor behavior.
type Config struct {
	CacheTTL       time.Duration
	ConfidenceFloor float64 // OCR results below this confidence are dropped
	MaxCacheEntries int
}

// DefaultConfig matches spec.md §4.6 defaults.
func DefaultConfig() Config {
	return Config{
		CacheTTL:        2 * time.Second,
		ConfidenceFloor: 60,
		MaxCacheEntries: 200,
	}
}

type cacheEntry struct {
	evidence  locator.VisionEvidence
	expiresAt time.Time
}

// Layer is the Vision Capture Layer.
type Layer struct {
	cfg       Config
	transport transport.Transport
	ocr       transport.OCREngine

	mu       sync.Mutex
	cache    map[string]cacheEntry
	inflight map[string]*sync.WaitGroup
}

// New builds a Layer bound to a transport and OCR engine.
func New(t transport.Transport, ocr transport.OCREngine, cfg Config) *Layer {
	d := DefaultConfig()
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = d.CacheTTL
	}
	if cfg.ConfidenceFloor <= 0 {
		cfg.ConfidenceFloor = d.ConfidenceFloor
	}
	if cfg.MaxCacheEntries <= 0 {
		cfg.MaxCacheEntries = d.MaxCacheEntries
	}
	return &Layer{
		cfg:       cfg,
		transport: t,
		ocr:       ocr,
		cache:     make(map[string]cacheEntry),
		inflight:  make(map[string]*sync.WaitGroup),
	}
}

// Capture returns vision evidence for the region, serving from cache when
// the fingerprint has a live entry and serializing concurrent captures of
// the same fingerprint so only one screenshot+OCR round-trip happens
// (spec.md §4.6 "vision jobs are serialized per fingerprint").
func (l *Layer) Capture(ctx context.Context, target transport.Target, pageURL string, box locator.BBox, now time.Time) (locator.VisionEvidence, error) {
	fp := Fingerprint(pageURL, box)

	if ev, ok := l.fromCache(fp, now); ok {
		return ev, nil
	}

	wg, leader := l.joinOrLead(fp)
	if !leader {
		wg.Wait()
		if ev, ok := l.fromCache(fp, now); ok {
			return ev, nil
		}
	}
	defer func() {
		if leader {
			l.mu.Lock()
			delete(l.inflight, fp)
			l.mu.Unlock()
			wg.Done()
		}
	}()
	if !leader {
		return locator.VisionEvidence{}, locator.ErrNotFound
	}

	image, err := l.screenshot(ctx, target, box)
	if err != nil {
		return locator.VisionEvidence{}, err
	}

	results, err := l.ocr.Recognize(ctx, image)
	if err != nil {
		return locator.VisionEvidence{}, err
	}

	filtered := make([]locator.OCRResult, 0, len(results))
	for _, r := range results {
		if r.Confidence >= l.cfg.ConfidenceFloor {
			filtered = append(filtered, r)
		}
	}

	ev := locator.VisionEvidence{
		Results:     filtered,
		Fingerprint: fp,
		CapturedAt:  now,
	}
	l.store(fp, ev, now)
	return ev, nil
}

func (l *Layer) fromCache(fp string, now time.Time) (locator.VisionEvidence, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.cache[fp]
	if !ok || now.After(entry.expiresAt) {
		return locator.VisionEvidence{}, false
	}
	ev := entry.evidence
	ev.FromCache = true
	return ev, true
}

// joinOrLead returns (wg, true) if the caller is responsible for running
// the capture, or (wg, false) if another goroutine is already in flight
// for this fingerprint and the caller should wait on it.
func (l *Layer) joinOrLead(fp string) (*sync.WaitGroup, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if wg, ok := l.inflight[fp]; ok {
		return wg, false
	}
	wg := &sync.WaitGroup{}
	wg.Add(1)
	l.inflight[fp] = wg
	return wg, true
}

func (l *Layer) store(fp string, ev locator.VisionEvidence, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.cache) >= l.cfg.MaxCacheEntries {
		l.evictOldest()
	}
	l.cache[fp] = cacheEntry{evidence: ev, expiresAt: now.Add(l.cfg.CacheTTL)}
}

// evictOldest drops the entry with the earliest expiry; called with mu
// already held.
func (l *Layer) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for k, v := range l.cache {
		if oldestKey == "" || v.expiresAt.Before(oldest) {
			oldestKey = k
			oldest = v.expiresAt
		}
	}
	if oldestKey != "" {
		delete(l.cache, oldestKey)
	}
}

func (l *Layer) screenshot(ctx context.Context, target transport.Target, box locator.BBox) ([]byte, error) {
	raw, err := l.transport.Send(ctx, target, "page.screenshot", map[string]any{
		"x": box.X, "y": box.Y, "w": box.W, "h": box.H,
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		PNG []byte `json:"png"`
	}
	if err := decode(raw, &out); err != nil {
		return nil, err
	}
	return out.PNG, nil
}
