// Package actionability polls a small set of predicates until an
// element is interactable or a timeout elapses (spec.md §4.3).
package actionability

import (
	"context"
	"encoding/json"
	"time"

	"github.com/brennhill/fallbackweave/internal/transport"
)

// Config controls poll cadence and timeout.
type Config struct {
	PollInterval time.Duration
	Timeout      time.Duration
}

// DefaultConfig matches spec.md §4.3 defaults.
func DefaultConfig() Config {
	return Config{PollInterval: 100 * time.Millisecond, Timeout: 30 * time.Second}
}

// Result is the outcome of a wait.
type Result struct {
	Actionable bool
	Reason     string
}

// predicateSnapshot is the shape the transport returns for an
// actionability probe.
type predicateSnapshot struct {
	Exists       bool    `json:"exists"`
	BoxDegenerate bool   `json:"boxDegenerate"`
	TopMost      bool    `json:"topMost"`
	Opacity      float64 `json:"opacity"`
	Inert        bool    `json:"inert"`
}

// Waiter polls actionability predicates via the transport.
type Waiter struct {
	transport transport.Transport
	cfg       Config
}

// New builds a Waiter. A zero Config uses DefaultConfig.
func New(t transport.Transport, cfg Config) *Waiter {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Waiter{transport: t, cfg: cfg}
}

// Wait polls until selector is actionable or ctx/timeout elapses.
func (w *Waiter) Wait(ctx context.Context, target transport.Target, selector string) Result {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		result := w.probe(ctx, target, selector)
		if result.Actionable {
			return result
		}

		select {
		case <-ctx.Done():
			return result
		case <-ticker.C:
		}
	}
}

func (w *Waiter) probe(ctx context.Context, target transport.Target, selector string) Result {
	raw, err := w.transport.Send(ctx, target, "dom.actionability", map[string]string{"selector": selector})
	if err != nil {
		return Result{Actionable: false, Reason: "element not queryable: " + err.Error()}
	}

	var snap predicateSnapshot
	if jsonErr := json.Unmarshal(raw, &snap); jsonErr != nil {
		return Result{Actionable: false, Reason: "malformed actionability response"}
	}

	switch {
	case !snap.Exists:
		return Result{Actionable: false, Reason: "element does not exist"}
	case snap.BoxDegenerate:
		return Result{Actionable: false, Reason: "box model is degenerate"}
	case !snap.TopMost:
		return Result{Actionable: false, Reason: "element is not hit-testable (occluded)"}
	case snap.Opacity <= 0:
		return Result{Actionable: false, Reason: "element has zero opacity"}
	case snap.Inert:
		return Result{Actionable: false, Reason: "element is inert"}
	default:
		return Result{Actionable: true}
	}
}
