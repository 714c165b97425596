package evaluators

import (
	"context"
	"time"

	"github.com/brennhill/fallbackweave/internal/locator"
	"github.com/brennhill/fallbackweave/internal/transport"
)

// Coordinates evaluates the always-present coordinates strategy by
// checking that the recorded point still resolves to some element
// (spec.md §4.13 "Coordinates Evaluator": fixed confidence 0.60,
// verification only, no scaling by what is found there).
type Coordinates struct {
	Transport transport.Transport
}

func (e *Coordinates) Evaluate(ctx context.Context, target transport.Target, s locator.LocatorStrategy) Result {
	start := time.Now()

	meta, ok := s.Metadata.(locator.CoordinatesMetadata)
	if !ok {
		return Result{Found: false, Duration: time.Since(start)}
	}

	raw, err := e.Transport.Send(ctx, target, "dom.nodeAtPoint", map[string]any{"x": meta.Point.X, "y": meta.Point.Y})
	if err != nil {
		return failed(start, err)
	}
	var node struct {
		NodeID string `json:"nodeId"`
	}
	if decode(raw, &node) != nil || node.NodeID == "" {
		return Result{Found: false, Duration: time.Since(start)}
	}

	pt := meta.Point
	return Result{
		Found:       true,
		Confidence:  0.60,
		ClickPoint:  &pt,
		BackendNode: node.NodeID,
		Duration:    time.Since(start),
	}
}
