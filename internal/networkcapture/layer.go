// Package networkcapture is the Network Capture Layer: it tracks
// in-flight and recently completed fetch/XHR requests so the engine can
// derive a page's network-idle state and attach it as supporting
// evidence to a captured action (spec.md §4.7).
package networkcapture

import (
	"regexp"
	"sync"
	"time"

	"github.com/brennhill/fallbackweave/internal/locator"
)

// Config controls retention and the idle predicate.
type Config struct {
	RecentCapacity int           // ring buffer size for completed requests, mirrors the teacher's fixed-capacity waterfall buffer
	IdleWindow     time.Duration // no pending requests for this long => idle
	IgnorePatterns []string      // regexes for URLs to exclude (analytics beacons, websockets, etc.)
}

// DefaultConfig matches spec.md §4.7 defaults.
func DefaultConfig() Config {
	return Config{
		RecentCapacity: 200,
		IdleWindow:     500 * time.Millisecond,
		IgnorePatterns: []string{
			`analytics`, `doubleclick`, `/beacon`, `google-analytics`,
		},
	}
}

// Layer is the Network Capture Layer.
type Layer struct {
	cfg      Config
	ignoreRe []*regexp.Regexp

	mu            sync.RWMutex
	pending       map[string]*locator.TrackedRequest
	recent        []locator.TrackedRequest // ring buffer, most-recent last
	lastActivity  time.Time
	pageLoadState string
}

// New builds a Layer. A zero Config uses DefaultConfig.
func New(cfg Config) *Layer {
	d := DefaultConfig()
	if cfg.RecentCapacity <= 0 {
		cfg.RecentCapacity = d.RecentCapacity
	}
	if cfg.IdleWindow <= 0 {
		cfg.IdleWindow = d.IdleWindow
	}
	if cfg.IgnorePatterns == nil {
		cfg.IgnorePatterns = d.IgnorePatterns
	}
	l := &Layer{cfg: cfg, pending: make(map[string]*locator.TrackedRequest), pageLoadState: "loading"}
	for _, p := range cfg.IgnorePatterns {
		if re, err := regexp.Compile(p); err == nil {
			l.ignoreRe = append(l.ignoreRe, re)
		}
	}
	return l
}

func (l *Layer) ignored(url string) bool {
	for _, re := range l.ignoreRe {
		if re.MatchString(url) {
			return true
		}
	}
	return false
}

// OnRequestStart records a new in-flight fetch/XHR.
func (l *Layer) OnRequestStart(id, url, method, reqType string, at time.Time) {
	if l.ignored(url) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending[id] = &locator.TrackedRequest{
		ID: id, URL: url, Method: method, Type: reqType, StartTime: at, Pending: true,
	}
	l.lastActivity = at
}

// OnRequestComplete moves a pending request to the completed ring buffer.
func (l *Layer) OnRequestComplete(id string, status int, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	req, ok := l.pending[id]
	if !ok {
		return
	}
	delete(l.pending, id)

	req.Pending = false
	req.EndTime = &at
	req.Status = &status
	l.appendRecent(*req)
	l.lastActivity = at
}

// appendRecent appends to the bounded ring buffer, reallocating to
// release the old backing array once capacity is exceeded (mirrors the
// teacher's AddNetworkWaterfallEntries trim-and-copy pattern). Called
// with mu already held.
func (l *Layer) appendRecent(req locator.TrackedRequest) {
	l.recent = append(l.recent, req)
	if len(l.recent) > l.cfg.RecentCapacity {
		kept := make([]locator.TrackedRequest, l.cfg.RecentCapacity)
		copy(kept, l.recent[len(l.recent)-l.cfg.RecentCapacity:])
		l.recent = kept
	}
}

// SetPageLoadState records the document's load state ("loading",
// "interactive", "complete").
func (l *Layer) SetPageLoadState(state string, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pageLoadState = state
	l.lastActivity = at
}

// Snapshot returns the current evidence: pending count, time since the
// page last had network activity (idle time), and page load state
// (spec.md §4.7).
func (l *Layer) Snapshot(now time.Time) locator.NetworkEvidence {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idleMs := int64(0)
	if !l.lastActivity.IsZero() {
		idleMs = now.Sub(l.lastActivity).Milliseconds()
	}
	return locator.NetworkEvidence{
		PendingCount:    len(l.pending),
		NetworkIdleTime: idleMs,
		PageLoadState:   l.pageLoadState,
	}
}

// IsIdle reports whether the page has had zero pending requests for at
// least the configured idle window (spec.md §4.7 "network idle
// predicate").
func (l *Layer) IsIdle(now time.Time) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.pending) > 0 {
		return false
	}
	if l.lastActivity.IsZero() {
		return true
	}
	return now.Sub(l.lastActivity) >= l.cfg.IdleWindow
}

// Recent returns a copy of recently completed requests, most-recent
// last.
func (l *Layer) Recent() []locator.TrackedRequest {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]locator.TrackedRequest, len(l.recent))
	copy(out, l.recent)
	return out
}
