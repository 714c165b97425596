// Package telemetry implements the Telemetry port (spec.md §6
// "logEvent"): one event emitted per replayed action, summarizing every
// strategy the Decision Engine evaluated plus the one it used.
package telemetry

import (
	"time"

	"github.com/brennhill/fallbackweave/internal/decision"
	"github.com/brennhill/fallbackweave/internal/locator"
)

// StrategyOutcome is one strategy's evaluated outcome, carried in an
// Event's StrategiesEvaluated slice (spec.md §6 "strategiesEvaluated").
type StrategyOutcome struct {
	Type       locator.StrategyType `json:"type"`
	Found      bool                 `json:"found"`
	Confidence float64              `json:"confidence"`
	Duration   time.Duration        `json:"duration"`
	Error      string               `json:"error,omitempty"`
}

// Event is the exact shape of spec.md §6's telemetry port payload.
type Event struct {
	RunID               string               `json:"runId"`
	StepIndex           int                  `json:"stepIndex"`
	ActionType          locator.EventType    `json:"actionType"`
	Timestamp           time.Time            `json:"timestamp"`
	StrategiesEvaluated []StrategyOutcome    `json:"strategiesEvaluated"`
	UsedStrategy        locator.StrategyType `json:"usedStrategy"`
	UsedConfidence      float64              `json:"usedConfidence"`
	Success             bool                 `json:"success"`
	Error               string               `json:"error,omitempty"`
	Duration            time.Duration        `json:"duration"`
	PageDomain          string               `json:"pageDomain,omitempty"`
}

// Logger is the Telemetry port.
type Logger interface {
	LogEvent(Event)
}

// RunContext supplies the per-run/per-step identifiers an Event needs
// that decision.DecisionEvent doesn't carry on its own.
type RunContext struct {
	RunID      string
	StepIndex  int
	PageDomain string
}

// ToEvent converts a Decision Engine outcome plus its run context into
// a telemetry Event (spec.md §6 shape).
func ToEvent(rc RunContext, de decision.DecisionEvent) Event {
	outcomes := make([]StrategyOutcome, len(de.Evaluations))
	for i, ev := range de.Evaluations {
		o := StrategyOutcome{
			Type:       ev.Strategy.Type,
			Found:      ev.Result.Found,
			Confidence: ev.Result.Confidence,
			Duration:   ev.Result.Duration,
		}
		if ev.Result.Err != nil {
			o.Error = ev.Result.Err.Error()
		}
		outcomes[i] = o
	}

	e := Event{
		RunID:               rc.RunID,
		StepIndex:           rc.StepIndex,
		Timestamp:           time.Now(),
		StrategiesEvaluated: outcomes,
		UsedStrategy:        de.UsedStrategyType,
		UsedConfidence:      de.Confidence,
		Success:             de.Success,
		Duration:            de.Duration,
		PageDomain:          rc.PageDomain,
	}
	if de.Err != nil {
		e.Error = de.Err.Error()
	}
	return e
}

// DecisionLogger adapts a Logger to decision.Telemetry so an Engine can
// emit directly into a telemetry sink without internal/decision ever
// importing this package.
type DecisionLogger struct {
	Logger Logger
	RunID  string
	Domain func() string // resolves the current page domain lazily; nil means omit
	step   int
}

// EmitDecision implements decision.Telemetry.
func (d *DecisionLogger) EmitDecision(de decision.DecisionEvent) {
	rc := RunContext{RunID: d.RunID, StepIndex: d.step}
	d.step++
	if d.Domain != nil {
		rc.PageDomain = d.Domain()
	}
	d.Logger.LogEvent(ToEvent(rc, de))
}
