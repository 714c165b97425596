package decision

import (
	"context"

	"github.com/brennhill/fallbackweave/internal/evaluators"
	"github.com/brennhill/fallbackweave/internal/locator"
	"github.com/brennhill/fallbackweave/internal/transport"
)

// Evaluator is the shared shape every strategy evaluator implements
// (spec.md §4.13). The Decision Engine depends on this interface, not
// the concrete evaluators package, so routing stays a simple lookup.
type Evaluator interface {
	Evaluate(ctx context.Context, target transport.Target, s locator.LocatorStrategy) evaluators.Result
}

// Router maps each of the seven strategy types onto the evaluator that
// handles it (spec.md §4.14 "partition chain strategies by evaluator
// routing"). Semantic role and text strategies share one evaluator, as
// do selector_unique and selector_path.
type Router struct {
	Selector       Evaluator
	Semantic       Evaluator
	EvidenceScored Evaluator
	OCR            Evaluator
	Coordinates    Evaluator
}

// NewRouter wires the five evaluator instances into their strategy-type
// routes.
func NewRouter(selector, semantic, evidenceScored, ocr, coordinates Evaluator) *Router {
	return &Router{
		Selector:       selector,
		Semantic:       semantic,
		EvidenceScored: evidenceScored,
		OCR:            ocr,
		Coordinates:    coordinates,
	}
}

// For returns the evaluator responsible for strategy type t, or nil if
// t is not one of the seven known types.
func (r *Router) For(t locator.StrategyType) Evaluator {
	switch t {
	case locator.StrategySelectorUniq, locator.StrategySelectorPath:
		return r.Selector
	case locator.StrategySemanticRole, locator.StrategySemanticText:
		return r.Semantic
	case locator.StrategyEvidenceScore:
		return r.EvidenceScored
	case locator.StrategyOCRText:
		return r.OCR
	case locator.StrategyCoordinates:
		return r.Coordinates
	default:
		return nil
	}
}
