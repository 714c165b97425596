// Package evaluators implements the five Strategy Evaluators (spec.md
// §4.13): at replay time each locator strategy in a fallback chain is
// handed to the evaluator for its type, which re-probes the live page
// and reports whether the strategy still resolves and with what
// confidence. The Decision Engine (internal/decision) owns routing a
// strategy to its evaluator and racing them; this package only knows
// how to evaluate one strategy at a time.
package evaluators

import (
	"time"

	"github.com/brennhill/fallbackweave/internal/locator"
)

// Result is the shared evaluator outcome shape (spec.md §4.13
// "evaluate(target, strategy) -> {found, confidence, backendNode?,
// clickPoint?, duration, error?}").
type Result struct {
	Found       bool
	Confidence  float64
	BackendNode string
	ClickPoint  *locator.Point
	Duration    time.Duration
	Err         error
}

func failed(start time.Time, err error) Result {
	return Result{Found: false, Duration: time.Since(start), Err: err}
}
