package evaluators

import (
	"context"
	"time"

	"github.com/brennhill/fallbackweave/internal/locator"
	"github.com/brennhill/fallbackweave/internal/transport"
)

// Selector evaluates selector_unique and selector_path strategies by
// re-querying the DOM for the recorded selector string (spec.md §4.13
// "Selector Evaluator"). A single match yields the recorded confidence
// and a click point from its bounding box; more than one match is
// ambiguous and the confidence is scaled down by 1/matchCount rather
// than rejected outright, since the element usually still exists.
type Selector struct {
	Transport transport.Transport
}

func (e *Selector) Evaluate(ctx context.Context, target transport.Target, s locator.LocatorStrategy) Result {
	start := time.Now()

	raw, err := e.Transport.Send(ctx, target, "dom.query", map[string]any{"selector": s.Selector})
	if err != nil {
		return failed(start, err)
	}
	var count struct {
		Count int `json:"count"`
	}
	if err := decode(raw, &count); err != nil {
		return failed(start, err)
	}
	if count.Count == 0 {
		return Result{Found: false, Duration: time.Since(start)}
	}

	boxRaw, err := e.Transport.Send(ctx, target, "dom.box", map[string]any{"selector": s.Selector})
	if err != nil {
		return Result{Found: false, Duration: time.Since(start), Err: err}
	}
	var pt locator.Point
	if err := decode(boxRaw, &pt); err != nil {
		return Result{Found: false, Duration: time.Since(start), Err: err}
	}

	conf := s.Confidence
	if count.Count > 1 {
		conf = conf / float64(count.Count)
	}

	return Result{
		Found:      true,
		Confidence: conf,
		ClickPoint: &pt,
		Duration:   time.Since(start),
	}
}
