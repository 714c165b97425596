package chain

import (
	"testing"
	"time"

	"github.com/brennhill/fallbackweave/internal/locator"
)

func strat(typ locator.StrategyType, selector string, conf float64) locator.LocatorStrategy {
	return locator.LocatorStrategy{Type: typ, Selector: selector, Confidence: conf}
}

func TestDedupeExactKeepsHigherConfidence(t *testing.T) {
	candidates := []locator.LocatorStrategy{
		strat(locator.StrategySelectorPath, "#a > button", 0.70),
		strat(locator.StrategySelectorPath, "#a > button", 0.75),
	}
	res := Build(candidates, DefaultOptions(), time.Now())
	if len(res.Chain.Strategies) != 1 {
		t.Fatalf("expected exact duplicates to collapse, got %d", len(res.Chain.Strategies))
	}
	if res.Chain.Strategies[0].Confidence != 0.75 {
		t.Errorf("expected higher-confidence duplicate to survive, got %v", res.Chain.Strategies[0].Confidence)
	}
}

func TestDedupeSimilarCollapsesNearDuplicateSelectors(t *testing.T) {
	candidates := []locator.LocatorStrategy{
		strat(locator.StrategySelectorPath, "#app > div > button.submit", 0.70),
		strat(locator.StrategySelectorPath, "#app > div > button.submit2", 0.72),
		strat(locator.StrategyCoordinates, "", 0.60),
	}
	res := Build(candidates, DefaultOptions(), time.Now())
	count := 0
	for _, s := range res.Chain.Strategies {
		if s.Type == locator.StrategySelectorPath {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected near-identical selectors to collapse to 1, got %d", count)
	}
}

func TestCoordinatesCandidateKeptInBuiltChain(t *testing.T) {
	candidates := []locator.LocatorStrategy{
		strat(locator.StrategySelectorUniq, "#submit", 0.85),
		strat(locator.StrategySemanticRole, "", 0.75),
		strat(locator.StrategyCoordinates, "", 0.60),
	}
	res := Build(candidates, DefaultOptions(), time.Now())
	hasCoord := false
	for _, s := range res.Chain.Strategies {
		if s.Type == locator.StrategyCoordinates {
			hasCoord = true
		}
	}
	if !hasCoord {
		t.Fatal("expected coordinates fallback present in built chain")
	}
}

func TestChainValidatesAfterBuild(t *testing.T) {
	candidates := []locator.LocatorStrategy{
		strat(locator.StrategySelectorUniq, "#submit", 0.85),
		strat(locator.StrategySemanticRole, "", 0.75),
		strat(locator.StrategyOCRText, "", 0.70),
		strat(locator.StrategyCoordinates, "", 0.60),
	}
	res := Build(candidates, DefaultOptions(), time.Now())
	if err := res.Chain.Validate(); err != nil {
		t.Fatalf("built chain failed validation: %v", err)
	}
}

func TestPrimaryStrategyTypeMatchesFirst(t *testing.T) {
	candidates := []locator.LocatorStrategy{
		strat(locator.StrategySelectorUniq, "#submit", 0.85),
		strat(locator.StrategyCoordinates, "", 0.60),
	}
	res := Build(candidates, DefaultOptions(), time.Now())
	if len(res.Chain.Strategies) == 0 {
		t.Fatal("expected non-empty chain")
	}
	if res.Chain.PrimaryStrategyType != res.Chain.Strategies[0].Type {
		t.Errorf("primary type %q does not match first strategy %q", res.Chain.PrimaryStrategyType, res.Chain.Strategies[0].Type)
	}
}

func TestBelowConfidenceFloorRejected(t *testing.T) {
	candidates := []locator.LocatorStrategy{
		strat(locator.StrategySelectorUniq, "#submit", 0.85),
		strat(locator.StrategyCoordinates, "", 0.60),
		strat(locator.StrategyOCRText, "", 0.10),
	}
	opts := DefaultOptions()
	opts.MinConfidenceFloor = 0.5
	res := Build(candidates, opts, time.Now())
	for _, s := range res.Chain.Strategies {
		if s.Confidence < 0.5 {
			t.Errorf("expected floor to exclude low-confidence candidate, found %v", s)
		}
	}
	foundReason := false
	for _, r := range res.Rejected {
		if r.Reason == ReasonLowConfidence {
			foundReason = true
		}
	}
	if !foundReason {
		t.Error("expected a low_confidence rejection entry")
	}
}
