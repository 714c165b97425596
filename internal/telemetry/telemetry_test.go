package telemetry

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/brennhill/fallbackweave/internal/decision"
	"github.com/brennhill/fallbackweave/internal/evaluators"
	"github.com/brennhill/fallbackweave/internal/locator"
)

func TestJSONLLoggerWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLLogger(&buf, nil)

	logger.LogEvent(Event{RunID: "r1", UsedStrategy: locator.StrategySemanticRole, Success: true})
	logger.LogEvent(Event{RunID: "r1", UsedStrategy: locator.StrategyCoordinates, Success: false, Error: "not_found"})

	scanner := bufio.NewScanner(&buf)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSONL lines, got %d", len(lines))
	}

	var first Event
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 1 did not decode as Event: %v", err)
	}
	if first.UsedStrategy != locator.StrategySemanticRole || !first.Success {
		t.Errorf("unexpected first event: %+v", first)
	}
}

func TestToEventCarriesEvaluationsAndRunContext(t *testing.T) {
	de := decision.DecisionEvent{
		ActionID:         "a1",
		UsedStrategyType: locator.StrategySelectorUniq,
		Success:          true,
		Confidence:       0.9,
		Duration:         5 * time.Millisecond,
		Evaluations: []decision.Evaluation{
			{
				Strategy: locator.LocatorStrategy{Type: locator.StrategySelectorUniq},
				Result:   evaluators.Result{Found: true, Confidence: 0.9},
			},
			{
				Strategy: locator.LocatorStrategy{Type: locator.StrategyCoordinates},
				Result:   evaluators.Result{Found: false},
			},
		},
	}

	e := ToEvent(RunContext{RunID: "r9", StepIndex: 3, PageDomain: "example.com"}, de)

	if e.RunID != "r9" || e.StepIndex != 3 || e.PageDomain != "example.com" {
		t.Errorf("run context not carried through: %+v", e)
	}
	if len(e.StrategiesEvaluated) != 2 {
		t.Fatalf("expected 2 strategy outcomes, got %d", len(e.StrategiesEvaluated))
	}
	if e.UsedStrategy != locator.StrategySelectorUniq || !e.Success {
		t.Errorf("winning strategy not carried through: %+v", e)
	}
}

func TestDecisionLoggerEmitDecisionIncrementsStep(t *testing.T) {
	var buf bytes.Buffer
	dl := &DecisionLogger{Logger: NewJSONLLogger(&buf, nil), RunID: "r1"}

	dl.EmitDecision(decision.DecisionEvent{Success: true})
	dl.EmitDecision(decision.DecisionEvent{Success: false})

	scanner := bufio.NewScanner(&buf)
	var steps []int
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		steps = append(steps, e.StepIndex)
	}
	if len(steps) != 2 || steps[0] != 0 || steps[1] != 1 {
		t.Errorf("expected step indices [0 1], got %v", steps)
	}
}
