// Package decision implements the Decision Engine: given one captured
// action's fallback chain, it races each strategy's evaluator in
// parallel, picks a winner, executes the corresponding action, and
// reports the outcome (spec.md §4.14). It also carries the additive
// fragile-strategy detector (SPEC_FULL.md §4) grounded on the teacher's
// multi-run selector-failure tracking.
package decision

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brennhill/fallbackweave/internal/evaluators"
	"github.com/brennhill/fallbackweave/internal/locator"
	"github.com/brennhill/fallbackweave/internal/transport"
)

// MinConfidence is the floor a winning evaluation must clear to be
// eligible at all, regardless of its weighted score (spec.md §4.14).
const MinConfidence = 0.5

// Config controls per-decision timing and retry behavior.
type Config struct {
	PerStrategyTimeout time.Duration
	AllowForcedRefresh bool
	MinConfidence      float64
}

// DefaultConfig matches spec.md §4.14 defaults.
func DefaultConfig() Config {
	return Config{
		PerStrategyTimeout: 2 * time.Second,
		AllowForcedRefresh: true,
		MinConfidence:      MinConfidence,
	}
}

// ActionExecutor dispatches the kinematic action once a strategy wins
// (internal/executor implements this; kept as a local interface so
// decision never imports executor and risks a cycle).
type ActionExecutor interface {
	Execute(ctx context.Context, target transport.Target, action locator.CapturedAction, winner locator.LocatorStrategy, clickPoint locator.Point, backendNode string) error
}

// Telemetry receives one event per decision (internal/telemetry
// implements this).
type Telemetry interface {
	EmitDecision(DecisionEvent)
}

// Evaluation is one strategy's evaluator outcome, kept alongside the
// strategy it was evaluated for.
type Evaluation struct {
	Strategy locator.LocatorStrategy
	Result   evaluators.Result
}

// DecisionEvent is what gets sent to Telemetry for one Decide call.
type DecisionEvent struct {
	ActionID         string
	UsedStrategyType locator.StrategyType
	Success          bool
	Confidence       float64
	Duration         time.Duration
	Evaluations      []Evaluation
	Err              error
}

// Result is the Decision Engine's outcome for one captured action
// (spec.md §4.14 "{success, usedStrategyType, confidence, evaluations,
// duration, error?}").
type Result struct {
	Success          bool
	UsedStrategyType locator.StrategyType
	Confidence       float64
	Evaluations      []Evaluation
	Duration         time.Duration
	Err              error
}

// Engine is the Decision Engine.
type Engine struct {
	Router    *Router
	Executor  ActionExecutor
	Telemetry Telemetry
	Cfg       Config
}

// New builds an Engine. A zero Config uses DefaultConfig.
func New(router *Router, executor ActionExecutor, telemetry Telemetry, cfg Config) *Engine {
	d := DefaultConfig()
	if cfg.PerStrategyTimeout <= 0 {
		cfg.PerStrategyTimeout = d.PerStrategyTimeout
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = d.MinConfidence
	}
	return &Engine{Router: router, Executor: executor, Telemetry: telemetry, Cfg: cfg}
}

// Decide evaluates every strategy in action's fallback chain in
// parallel, selects a winner, executes it, and returns the outcome.
func (e *Engine) Decide(ctx context.Context, target transport.Target, action locator.CapturedAction) Result {
	start := time.Now()

	strategies := action.FallbackChain.Strategies
	evals := e.evaluateAll(ctx, target, strategies)

	winner := selectWinner(strategies, evals, e.Cfg.MinConfidence)
	if winner < 0 && e.Cfg.AllowForcedRefresh {
		e.retryNotFound(ctx, target, strategies, evals)
		winner = selectWinner(strategies, evals, e.Cfg.MinConfidence)
	}

	res := Result{Evaluations: toEvaluations(strategies, evals), Duration: time.Since(start)}
	if winner < 0 {
		res.Err = fmt.Errorf("not_found: no strategy in chain resolved above confidence %.2f: %w", e.Cfg.MinConfidence, locator.ErrNotFound)
		e.emit(action.ActionID, res)
		return res
	}

	w := evals[winner]
	res.UsedStrategyType = strategies[winner].Type
	res.Confidence = w.Confidence

	if e.Executor != nil {
		var pt locator.Point
		if w.ClickPoint != nil {
			pt = *w.ClickPoint
		}
		if err := e.Executor.Execute(ctx, target, action, strategies[winner], pt, w.BackendNode); err != nil {
			res.Err = err
			e.emit(action.ActionID, res)
			return res
		}
	}

	res.Success = true
	res.Duration = time.Since(start)
	e.emit(action.ActionID, res)
	return res
}

// evaluateAll races every strategy's evaluator under a shared
// cancellation scope, each bounded by PerStrategyTimeout (spec.md §4.14
// "parallel evaluation with per-strategy timeout").
func (e *Engine) evaluateAll(ctx context.Context, target transport.Target, strategies []locator.LocatorStrategy) []evaluators.Result {
	results := make([]evaluators.Result, len(strategies))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range strategies {
		i, s := i, s
		g.Go(func() error {
			ev := e.Router.For(s.Type)
			if ev == nil {
				results[i] = evaluators.Result{Found: false, Err: fmt.Errorf("evaluator_error: no evaluator for type %q: %w", s.Type, locator.ErrEvaluatorError)}
				return nil
			}
			sctx, cancel := context.WithTimeout(gctx, e.Cfg.PerStrategyTimeout)
			defer cancel()
			results[i] = ev.Evaluate(sctx, target, s)
			return nil
		})
	}
	_ = g.Wait() // individual evaluator errors are carried in Result.Err, not propagated
	return results
}

// retryNotFound re-evaluates strategies that came back not-found (but
// without a hard error) exactly once, giving evaluators with internal
// cache staleness (e.g. the accessibility tree) a second chance after a
// forced refresh (spec.md §4.14 "optional forced-refresh retry").
func (e *Engine) retryNotFound(ctx context.Context, target transport.Target, strategies []locator.LocatorStrategy, evals []evaluators.Result) {
	for i, s := range strategies {
		if evals[i].Found || evals[i].Err != nil {
			continue
		}
		ev := e.Router.For(s.Type)
		if ev == nil {
			continue
		}
		sctx, cancel := context.WithTimeout(ctx, e.Cfg.PerStrategyTimeout)
		evals[i] = ev.Evaluate(sctx, target, s)
		cancel()
	}
}

// selectWinner picks the eligible strategy with the highest
// baseWeight*confidence score, breaking ties by earliest chain position
// (spec.md §4.14). Returns -1 when nothing is eligible.
func selectWinner(strategies []locator.LocatorStrategy, evals []evaluators.Result, minConfidence float64) int {
	best := -1
	bestScore := -1.0
	for i, s := range strategies {
		r := evals[i]
		if !r.Found || r.Confidence < minConfidence {
			continue
		}
		score := locator.BaseWeight[s.Type] * r.Confidence
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

func toEvaluations(strategies []locator.LocatorStrategy, evals []evaluators.Result) []Evaluation {
	out := make([]Evaluation, len(strategies))
	for i := range strategies {
		out[i] = Evaluation{Strategy: strategies[i], Result: evals[i]}
	}
	return out
}

func (e *Engine) emit(actionID string, res Result) {
	if e.Telemetry == nil {
		return
	}
	e.Telemetry.EmitDecision(DecisionEvent{
		ActionID:         actionID,
		UsedStrategyType: res.UsedStrategyType,
		Success:          res.Success,
		Confidence:       res.Confidence,
		Duration:         res.Duration,
		Evaluations:      res.Evaluations,
		Err:              res.Err,
	})
}
