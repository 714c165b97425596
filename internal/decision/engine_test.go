package decision

import (
	"context"
	"testing"

	"github.com/brennhill/fallbackweave/internal/evaluators"
	"github.com/brennhill/fallbackweave/internal/locator"
	"github.com/brennhill/fallbackweave/internal/transport"
)

// sequenceEvaluator returns its queued results in order, repeating the
// last one once exhausted, and counts how many times it was called.
type sequenceEvaluator struct {
	results []evaluators.Result
	calls   int
}

func (s *sequenceEvaluator) Evaluate(ctx context.Context, target transport.Target, strat locator.LocatorStrategy) evaluators.Result {
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	return s.results[i]
}

func fixed(r evaluators.Result) *sequenceEvaluator {
	return &sequenceEvaluator{results: []evaluators.Result{r}}
}

type recordingExecutor struct {
	calls int
	err   error
}

func (r *recordingExecutor) Execute(ctx context.Context, target transport.Target, action locator.CapturedAction, winner locator.LocatorStrategy, clickPoint locator.Point, backendNode string) error {
	r.calls++
	return r.err
}

type recordingTelemetry struct {
	events []DecisionEvent
}

func (r *recordingTelemetry) EmitDecision(e DecisionEvent) {
	r.events = append(r.events, e)
}

func chainOf(strategies ...locator.LocatorStrategy) locator.CapturedAction {
	return locator.CapturedAction{ActionID: "a1", FallbackChain: locator.FallbackChain{Strategies: strategies}}
}

func TestDecideSelectsHighestWeightedScore(t *testing.T) {
	router := NewRouter(
		fixed(evaluators.Result{Found: true, Confidence: 0.60}), // selector: 0.85*0.60=0.51
		fixed(evaluators.Result{Found: true, Confidence: 0.95}), // semantic: 0.95*0.95=0.9025
		fixed(evaluators.Result{Found: false}),
		fixed(evaluators.Result{Found: false}),
		fixed(evaluators.Result{Found: true, Confidence: 0.60}), // coordinates: 0.60*0.60=0.36
	)
	exec := &recordingExecutor{}
	tel := &recordingTelemetry{}
	e := New(router, exec, tel, DefaultConfig())

	action := chainOf(
		locator.LocatorStrategy{Type: locator.StrategySelectorUniq, Confidence: 0.85},
		locator.LocatorStrategy{Type: locator.StrategySemanticRole, Confidence: 0.95},
		locator.LocatorStrategy{Type: locator.StrategyCoordinates, Confidence: 0.60},
	)
	res := e.Decide(context.Background(), "t1", action)

	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.UsedStrategyType != locator.StrategySemanticRole {
		t.Errorf("expected semantic_role to win, got %q", res.UsedStrategyType)
	}
	if exec.calls != 1 {
		t.Errorf("expected exactly 1 executor call, got %d", exec.calls)
	}
	if len(tel.events) != 1 || !tel.events[0].Success {
		t.Errorf("expected one successful telemetry event, got %+v", tel.events)
	}
}

func TestDecideReturnsErrorWhenNoneEligible(t *testing.T) {
	router := NewRouter(
		fixed(evaluators.Result{Found: false}),
		fixed(evaluators.Result{Found: false}),
		fixed(evaluators.Result{Found: false}),
		fixed(evaluators.Result{Found: false}),
		fixed(evaluators.Result{Found: false}),
	)
	cfg := DefaultConfig()
	cfg.AllowForcedRefresh = false
	e := New(router, &recordingExecutor{}, &recordingTelemetry{}, cfg)

	action := chainOf(locator.LocatorStrategy{Type: locator.StrategyCoordinates, Confidence: 0.60})
	res := e.Decide(context.Background(), "t1", action)

	if res.Success {
		t.Fatal("expected failure when nothing resolves")
	}
	if res.Err == nil {
		t.Error("expected a not_found error")
	}
}

func TestDecideBelowMinConfidenceIsIneligible(t *testing.T) {
	router := NewRouter(
		fixed(evaluators.Result{Found: false}),
		fixed(evaluators.Result{Found: false}),
		fixed(evaluators.Result{Found: false}),
		fixed(evaluators.Result{Found: false}),
		fixed(evaluators.Result{Found: true, Confidence: 0.30}),
	)
	cfg := DefaultConfig()
	cfg.AllowForcedRefresh = false
	e := New(router, &recordingExecutor{}, &recordingTelemetry{}, cfg)

	action := chainOf(locator.LocatorStrategy{Type: locator.StrategyCoordinates, Confidence: 0.60})
	res := e.Decide(context.Background(), "t1", action)

	if res.Success {
		t.Fatalf("expected failure, confidence 0.30 is below the 0.5 floor, got %+v", res)
	}
}

func TestDecideForcedRefreshGivesSecondChance(t *testing.T) {
	semantic := &sequenceEvaluator{results: []evaluators.Result{
		{Found: false},
		{Found: true, Confidence: 0.90},
	}}
	router := NewRouter(
		fixed(evaluators.Result{Found: false}),
		semantic,
		fixed(evaluators.Result{Found: false}),
		fixed(evaluators.Result{Found: false}),
		fixed(evaluators.Result{Found: false}),
	)
	e := New(router, &recordingExecutor{}, &recordingTelemetry{}, DefaultConfig())

	action := chainOf(locator.LocatorStrategy{Type: locator.StrategySemanticRole, Confidence: 0.95})
	res := e.Decide(context.Background(), "t1", action)

	if !res.Success {
		t.Fatalf("expected the forced-refresh retry to succeed, got %+v", res)
	}
	if semantic.calls != 2 {
		t.Errorf("expected exactly 2 evaluator calls (initial + retry), got %d", semantic.calls)
	}
}

func TestDetectFragileStrategiesNeedsTwoAttempts(t *testing.T) {
	key := locator.StrategyKey{Type: locator.StrategySelectorPath, Selector: ".btn"}
	fragile := DetectFragileStrategies([]History{{Strategy: key, Success: false}})
	if fragile[key] {
		t.Error("expected single attempt to be insufficient for fragile marking")
	}
}

func TestDetectFragileStrategiesOverHalfFailureRate(t *testing.T) {
	key := locator.StrategyKey{Type: locator.StrategySelectorPath, Selector: ".btn"}
	other := locator.StrategyKey{Type: locator.StrategySelectorUniq, Selector: "#stable"}
	fragile := DetectFragileStrategies([]History{
		{Strategy: key, Success: false},
		{Strategy: key, Success: false},
		{Strategy: key, Success: true},
		{Strategy: other, Success: true},
		{Strategy: other, Success: true},
	})
	if !fragile[key] {
		t.Error("expected .btn to be flagged fragile at 2/3 failure rate")
	}
	if fragile[other] {
		t.Error("did not expect #stable to be flagged fragile")
	}
}
