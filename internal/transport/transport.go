// Package transport defines the Command Transport and OCR ports the
// engine consumes (spec.md §4.1, §6) plus a generic correlation table
// shared by any concrete transport implementation.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brennhill/fallbackweave/internal/locator"
)

// Target identifies one page/frame the transport is attached to.
type Target string

// EventHandler is invoked for out-of-band events delivered by the
// transport (spec.md §4.1 "on(target, event, handler)").
type EventHandler func(target Target, payload json.RawMessage)

// Transport is the opaque RPC channel to the browser automation engine.
// No wire format is mandated (spec.md §6); only this contract is.
type Transport interface {
	Attach(ctx context.Context, target Target) error
	Detach(ctx context.Context, target Target) error
	Send(ctx context.Context, target Target, method string, params any) (json.RawMessage, error)
	On(target Target, event string, handler EventHandler)
}

// OCREngine is the text-extraction port (spec.md §6). Nothing in this
// package bounds concurrent Recognize calls; visioncapture runs at most
// one call per region fingerprint at a time.
type OCREngine interface {
	Recognize(ctx context.Context, image []byte) ([]locator.OCRResult, error)
}

// pendingCommand tracks one in-flight async command awaiting a result
// delivered out-of-band through ApplyResult, generalized from the
// teacher's RegisterCommand/ApplyCommandResult correlation tracker
// (internal/capture/commands.go).
type pendingCommand struct {
	status   string // "pending", "complete", "error", "timeout", "expired", "cancelled"
	result   json.RawMessage
	err      string
	notifyCh chan struct{}
}

// Correlator tracks async command lifecycle by correlation ID without
// dictating the wire format. It keeps one flat table for all targets and
// does not queue or order commands per target.
type Correlator struct {
	mu      sync.Mutex
	pending map[string]*pendingCommand
	seq     atomic.Uint64
}

// NewCorrelator constructs an empty correlation table.
func NewCorrelator() *Correlator {
	return &Correlator{pending: make(map[string]*pendingCommand)}
}

// NextSeq returns the next value of the transport's sequence counter
// (spec.md §4.1 "the transport owns a sequence counter").
func (c *Correlator) NextSeq() uint64 {
	return c.seq.Add(1)
}

// Register creates a pending entry for correlationID.
func (c *Correlator) Register(correlationID string) {
	if correlationID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[correlationID] = &pendingCommand{status: "pending", notifyCh: make(chan struct{})}
}

// Resolve applies a result or error to a pending command and wakes any
// waiter. Once a command leaves "pending" it cannot be overwritten
// (mirrors the teacher's race-avoidance behavior).
func (c *Correlator) Resolve(correlationID, status string, result json.RawMessage, errMsg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cmd, ok := c.pending[correlationID]
	if !ok || cmd.status != "pending" {
		return
	}
	cmd.status = status
	cmd.result = result
	cmd.err = errMsg
	close(cmd.notifyCh)
}

// Wait blocks until correlationID resolves or the context is done,
// returning the result payload or an error.
func (c *Correlator) Wait(ctx context.Context, correlationID string) (json.RawMessage, error) {
	c.mu.Lock()
	cmd, ok := c.pending[correlationID]
	c.mu.Unlock()
	if !ok {
		return nil, locator.ErrNotFound
	}

	select {
	case <-cmd.notifyCh:
	case <-ctx.Done():
		c.expire(correlationID)
		return nil, locator.ErrTimeout
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	defer delete(c.pending, correlationID)

	switch cmd.status {
	case "complete":
		return cmd.result, nil
	case "timeout", "expired":
		return nil, locator.ErrTimeout
	default:
		return nil, locator.ErrTransport
	}
}

func (c *Correlator) expire(correlationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cmd, ok := c.pending[correlationID]; ok && cmd.status == "pending" {
		cmd.status = "expired"
		close(cmd.notifyCh)
	}
}

// RetryIdempotent retries fn up to maxAttempts times with the given
// backoff when it returns a locator.ErrTransport-classified error. All
// transport commands are idempotent-safe to retry (spec.md §4.1).
func RetryIdempotent(ctx context.Context, maxAttempts int, backoff time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		lastErr = fn()
		if lastErr == nil || !errors.Is(lastErr, locator.ErrTransport) {
			return lastErr
		}
	}
	return lastErr
}
