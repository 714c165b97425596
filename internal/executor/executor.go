// Package executor implements the Action Executor: given a strategy the
// Decision Engine picked as the winner, it gates on actionability, then
// dispatches the recorded kinematic action and verifies it landed
// (spec.md §4.15).
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/brennhill/fallbackweave/internal/actionability"
	"github.com/brennhill/fallbackweave/internal/locator"
	"github.com/brennhill/fallbackweave/internal/transport"
)

// FailureKind classifies why Execute failed, mirroring spec.md §4.15's
// taxonomy plus the shared error kinds from locator.
type FailureKind string

const (
	FailureNotFound       FailureKind = "not_found"
	FailureNotActionable  FailureKind = "not_actionable"
	FailureTimeout        FailureKind = "timeout"
	FailureAmbiguousMatch FailureKind = "ambiguous_match"
	FailureDispatchFailed FailureKind = "dispatch_failed"
	FailureEvaluatorError FailureKind = "evaluator_error"
)

// Retryable reports whether this failure is worth a fresh attempt
// (spec.md §4.15 "retry eligibility for not_actionable/timeout").
func (k FailureKind) Retryable() bool {
	return k == FailureNotActionable || k == FailureTimeout
}

// Error wraps a FailureKind with a human message and wraps the
// matching locator.Err* sentinel so callers can errors.Is against it.
type Error struct {
	Kind    FailureKind
	Message string
	inner   error
}

func (e *Error) Error() string   { return string(e.Kind) + ": " + e.Message }
func (e *Error) Unwrap() error   { return e.inner }
func (e *Error) Retryable() bool { return e.Kind.Retryable() }

func newError(kind FailureKind, inner error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), inner: inner}
}

// Config controls click interpolation, typing cadence, and
// scroll-into-view margin checking (spec.md §6 executor key group:
// clickDelay, typeDelay, mouseMoveSteps, scrollMargin,
// focusBeforeType, clearBeforeType, verifyAfterAction, actionTimeoutMs).
type Config struct {
	MouseSteps        int           // mouseMoveSteps
	StepDelay         time.Duration // clickDelay, waited between consecutive interpolated steps
	KeyDelay          time.Duration // typeDelay
	ViewportMargin    float64       // scrollMargin
	FocusBeforeType   bool
	ClearBeforeType   bool
	VerifyAfterAction bool
	ActionTimeout     time.Duration
}

// DefaultConfig matches spec.md §4.15 defaults.
func DefaultConfig() Config {
	return Config{
		MouseSteps:        10,
		StepDelay:         10 * time.Millisecond,
		KeyDelay:          10 * time.Millisecond,
		ViewportMargin:    100,
		FocusBeforeType:   true,
		ClearBeforeType:   true,
		VerifyAfterAction: true,
		ActionTimeout:     5 * time.Second,
	}
}

// Executor is the Action Executor.
type Executor struct {
	Transport transport.Transport
	Waiter    *actionability.Waiter
	Cfg       Config

	cursorMu sync.Mutex
	cursor   map[transport.Target]locator.Point
}

// New builds an Executor. A zero Config uses DefaultConfig.
func New(t transport.Transport, waiter *actionability.Waiter, cfg Config) *Executor {
	d := DefaultConfig()
	if cfg.MouseSteps <= 0 {
		cfg.MouseSteps = d.MouseSteps
	}
	if cfg.StepDelay <= 0 {
		cfg.StepDelay = d.StepDelay
	}
	if cfg.KeyDelay <= 0 {
		cfg.KeyDelay = d.KeyDelay
	}
	if cfg.ViewportMargin <= 0 {
		cfg.ViewportMargin = d.ViewportMargin
	}
	return &Executor{Transport: t, Waiter: waiter, Cfg: cfg, cursor: make(map[transport.Target]locator.Point)}
}

// Execute dispatches action against the winning strategy's resolved
// click point / backend node, gating on actionability first and
// verifying afterward (spec.md §4.15).
func (e *Executor) Execute(ctx context.Context, target transport.Target, action locator.CapturedAction, winner locator.LocatorStrategy, clickPoint locator.Point, backendNode string) error {
	if winner.Selector != "" {
		if err := e.ensureInView(ctx, target, winner.Selector); err != nil {
			return err
		}
		wait := e.Waiter.Wait(ctx, target, winner.Selector)
		if !wait.Actionable {
			return newError(FailureNotActionable, locator.ErrNotActionable, "%s", wait.Reason)
		}
	}

	switch action.EventType {
	case locator.EventClick:
		return e.click(ctx, target, clickPoint, false)
	case locator.EventSubmit:
		if err := e.click(ctx, target, clickPoint, false); err != nil {
			return err
		}
		return e.keyPress(ctx, target, '\r')
	case locator.EventTypeText:
		return e.typeText(ctx, target, winner, clickPoint, action.Value)
	case locator.EventSelect:
		return e.selectOption(ctx, target, winner, action.Value)
	case locator.EventScroll:
		return e.scroll(ctx, target, winner)
	default:
		return newError(FailureDispatchFailed, locator.ErrDispatchFailed, "unsupported event type %q for execution", action.EventType)
	}
}

// click interpolates the mouse from wherever it last was straight to
// point over Cfg.MouseSteps steps roughly Cfg.StepDelay apart, then
// presses and releases (spec.md §4.15 "N-step ~10ms-apart mouse
// interpolation"). doubleClick presses twice in quick succession.
func (e *Executor) click(ctx context.Context, target transport.Target, point locator.Point, doubleClick bool) error {
	if err := e.moveTo(ctx, target, point); err != nil {
		return err
	}
	if err := e.pressRelease(ctx, target, point); err != nil {
		return err
	}
	if doubleClick {
		return e.pressRelease(ctx, target, point)
	}
	return nil
}

func (e *Executor) moveTo(ctx context.Context, target transport.Target, to locator.Point) error {
	from := e.cursorPos(target)
	for i := 1; i <= e.Cfg.MouseSteps; i++ {
		frac := float64(i) / float64(e.Cfg.MouseSteps)
		step := locator.Point{X: from.X + (to.X-from.X)*frac, Y: from.Y + (to.Y-from.Y)*frac}
		if _, err := e.Transport.Send(ctx, target, "input.mouseMove", map[string]any{"x": step.X, "y": step.Y}); err != nil {
			return newError(FailureDispatchFailed, locator.ErrDispatchFailed, "mouse move step %d: %v", i, err)
		}
		if i < e.Cfg.MouseSteps {
			select {
			case <-ctx.Done():
				return newError(FailureTimeout, locator.ErrTimeout, "context done mid mouse move")
			case <-time.After(e.Cfg.StepDelay):
			}
		}
	}
	e.setCursorPos(target, to)
	return nil
}

// cursorPos reports where the mouse last landed for target, defaulting
// to the origin before any move has been dispatched.
func (e *Executor) cursorPos(target transport.Target) locator.Point {
	e.cursorMu.Lock()
	defer e.cursorMu.Unlock()
	return e.cursor[target]
}

func (e *Executor) setCursorPos(target transport.Target, p locator.Point) {
	e.cursorMu.Lock()
	defer e.cursorMu.Unlock()
	e.cursor[target] = p
}

func (e *Executor) pressRelease(ctx context.Context, target transport.Target, point locator.Point) error {
	if _, err := e.Transport.Send(ctx, target, "input.mousePress", map[string]any{"x": point.X, "y": point.Y}); err != nil {
		return newError(FailureDispatchFailed, locator.ErrDispatchFailed, "mouse press: %v", err)
	}
	if _, err := e.Transport.Send(ctx, target, "input.mouseRelease", map[string]any{"x": point.X, "y": point.Y}); err != nil {
		return newError(FailureDispatchFailed, locator.ErrDispatchFailed, "mouse release: %v", err)
	}
	return nil
}

// typeText optionally focuses and clears the field (selector-bearing
// strategies only), then types value one character at a time with
// Cfg.KeyDelay between keystrokes (spec.md §4.15 "per-character key
// down/up with optional focus-click/select-all-clear").
func (e *Executor) typeText(ctx context.Context, target transport.Target, winner locator.LocatorStrategy, point locator.Point, value string) error {
	if winner.Selector != "" {
		if e.Cfg.FocusBeforeType {
			if _, err := e.Transport.Send(ctx, target, "input.focus", map[string]any{"selector": winner.Selector}); err != nil {
				return newError(FailureDispatchFailed, locator.ErrDispatchFailed, "focus: %v", err)
			}
		}
		if e.Cfg.ClearBeforeType {
			if _, err := e.Transport.Send(ctx, target, "dom.clear", map[string]any{"selector": winner.Selector}); err != nil {
				return newError(FailureDispatchFailed, locator.ErrDispatchFailed, "clear: %v", err)
			}
		}
	} else if err := e.click(ctx, target, point, false); err != nil {
		return err
	}

	for i, r := range value {
		if err := e.keyPress(ctx, target, r); err != nil {
			return err
		}
		if i < len(value)-1 {
			select {
			case <-ctx.Done():
				return newError(FailureTimeout, locator.ErrTimeout, "context done mid type")
			case <-time.After(e.Cfg.KeyDelay):
			}
		}
	}

	if winner.Selector != "" && e.Cfg.VerifyAfterAction {
		return e.verifyValue(ctx, target, winner.Selector, value)
	}
	return nil
}

func (e *Executor) keyPress(ctx context.Context, target transport.Target, r rune) error {
	if _, err := e.Transport.Send(ctx, target, "input.keyPress", map[string]any{"rune": r}); err != nil {
		return newError(FailureDispatchFailed, locator.ErrDispatchFailed, "key press %q: %v", r, err)
	}
	return nil
}

// verifyValue best-effort reads the field back and compares it against
// what was typed (spec.md §4.15 "type value read-back best-effort"); a
// read failure is swallowed, not reported as an executor failure.
func (e *Executor) verifyValue(ctx context.Context, target transport.Target, selector, want string) error {
	raw, err := e.Transport.Send(ctx, target, "dom.value", map[string]any{"selector": selector})
	if err != nil {
		return nil
	}
	var out struct {
		Value string `json:"value"`
	}
	if json.Unmarshal(raw, &out) != nil {
		return nil
	}
	if out.Value != want {
		return newError(FailureDispatchFailed, locator.ErrDispatchFailed, "typed value mismatch: got %q want %q", out.Value, want)
	}
	return nil
}

func (e *Executor) selectOption(ctx context.Context, target transport.Target, winner locator.LocatorStrategy, value string) error {
	if winner.Selector == "" {
		return newError(FailureNotActionable, locator.ErrNotActionable, "select requires a selector-bearing strategy")
	}
	if _, err := e.Transport.Send(ctx, target, "dom.select", map[string]any{"selector": winner.Selector, "value": value}); err != nil {
		return newError(FailureDispatchFailed, locator.ErrDispatchFailed, "select: %v", err)
	}
	return nil
}

func (e *Executor) scroll(ctx context.Context, target transport.Target, winner locator.LocatorStrategy) error {
	return e.ensureInView(ctx, target, winner.Selector)
}

func (e *Executor) ensureInView(ctx context.Context, target transport.Target, selector string) error {
	if selector == "" {
		return nil
	}
	if _, err := e.Transport.Send(ctx, target, "input.scrollIntoView", map[string]any{"selector": selector}); err != nil {
		return newError(FailureDispatchFailed, locator.ErrDispatchFailed, "scroll into view: %v", err)
	}
	return nil
}
