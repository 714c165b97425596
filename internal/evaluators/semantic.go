package evaluators

import (
	"context"
	"fmt"
	"time"

	"github.com/brennhill/fallbackweave/internal/a11y"
	"github.com/brennhill/fallbackweave/internal/locator"
	"github.com/brennhill/fallbackweave/internal/transport"
)

// Semantic evaluates semantic_role and semantic_text strategies against
// the cached accessibility tree (spec.md §4.13 "Semantic Evaluator"). A
// first-match miss forces one tree refresh before giving up, since the
// tree TTL (internal/a11y) can lag a page mutation by up to a second.
type Semantic struct {
	View      *a11y.View
	Transport transport.Transport
}

func (e *Semantic) Evaluate(ctx context.Context, target transport.Target, s locator.LocatorStrategy) Result {
	start := time.Now()

	meta, _ := s.Metadata.(map[string]string)
	role := meta["role"]
	name := meta["name"]
	text := meta["text"]
	placeholder := meta["placeholder"]

	var matches []a11y.Match
	var err error
	switch {
	case role != "":
		matches, err = e.View.FindByRole(ctx, target, a11y.RoleQuery{Role: role, Name: name})
	case text != "":
		matches, err = e.View.FindByText(ctx, target, text, false)
	case placeholder != "":
		matches, err = e.View.FindByLabel(ctx, target, placeholder, false)
	default:
		return Result{Found: false, Duration: time.Since(start)}
	}
	if err != nil {
		return failed(start, err)
	}

	if len(matches) == 0 {
		if rerr := e.View.Refresh(ctx, target); rerr == nil {
			switch {
			case role != "":
				matches, err = e.View.FindByRole(ctx, target, a11y.RoleQuery{Role: role, Name: name})
			case text != "":
				matches, err = e.View.FindByText(ctx, target, text, false)
			case placeholder != "":
				matches, err = e.View.FindByLabel(ctx, target, placeholder, false)
			}
			if err != nil {
				return failed(start, err)
			}
		}
	}
	if len(matches) == 0 {
		return Result{Found: false, Duration: time.Since(start)}
	}

	best := matches[0]
	conf := s.Confidence
	if len(matches) > 1 {
		conf = conf / float64(len(matches))
	}

	result := Result{Found: true, Confidence: conf, BackendNode: best.Node.NodeRef, Duration: time.Since(start)}
	if role != "" {
		if pt, ok := e.resolveClickPoint(ctx, target, role, len(matches)); ok {
			result.ClickPoint = &pt
		}
	}
	return result
}

// resolveClickPoint attempts to recover a concrete click point for a
// role match by re-querying the DOM with a role attribute selector.
// This only works when role uniquely (or near-uniquely) identifies the
// element, which the accessibility-tree match count above already
// approximates.
func (e *Semantic) resolveClickPoint(ctx context.Context, target transport.Target, role string, matchCount int) (locator.Point, bool) {
	if matchCount > 1 {
		return locator.Point{}, false
	}
	sel := fmt.Sprintf("[role=%q]", role)
	raw, err := e.Transport.Send(ctx, target, "dom.box", map[string]any{"selector": sel})
	if err != nil {
		return locator.Point{}, false
	}
	var pt locator.Point
	if err := decode(raw, &pt); err != nil {
		return locator.Point{}, false
	}
	return pt, true
}
