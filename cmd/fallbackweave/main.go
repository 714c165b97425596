// main.go — entry point for the fallbackweave binary. It records one
// browser session against a target URL, writes the captured actions
// and their fallback chains as replay evidence, then replays them back
// through the full Decision Engine / Action Executor pipeline,
// reporting which strategy won each step.
//
// Usage: fallbackweave -url <page> [-config <path>] [-evidence <path>]
//
// Exit codes:
//
//	0 = recording and replay both completed
//	1 = recording or replay failed
//	2 = usage error
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/brennhill/fallbackweave/internal/a11y"
	"github.com/brennhill/fallbackweave/internal/actionability"
	"github.com/brennhill/fallbackweave/internal/config"
	"github.com/brennhill/fallbackweave/internal/decision"
	"github.com/brennhill/fallbackweave/internal/evaluators"
	"github.com/brennhill/fallbackweave/internal/executor"
	"github.com/brennhill/fallbackweave/internal/locator"
	"github.com/brennhill/fallbackweave/internal/orchestrator"
	"github.com/brennhill/fallbackweave/internal/telemetry"
	"github.com/brennhill/fallbackweave/internal/transport"
	"github.com/brennhill/fallbackweave/internal/transport/rodtransport"
	"github.com/brennhill/fallbackweave/internal/visioncapture"
)

var version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("fallbackweave", flag.ContinueOnError)
	url := fs.String("url", "", "page to record a session against (required)")
	configPath := fs.String("config", "", "path to a fallbackweave.yaml config file")
	evidencePath := fs.String("evidence", "fallbackweave-evidence.jsonl", "where to write captured actions + fallback chains")
	telemetryPath := fs.String("telemetry", "fallbackweave-telemetry.jsonl", "where to write replay decision events")
	recordFor := fs.Duration("duration", 10*time.Second, "how long to keep the recording session open")
	showVersion := fs.Bool("version", false, "print the version and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Printf("fallbackweave %s\n", version)
		return 0
	}
	if *url == "" {
		fmt.Fprintln(os.Stderr, "fallbackweave: -url is required")
		return 2
	}

	log := slog.Default()

	cfg, err := config.Load(*configPath, nil)
	if err != nil {
		log.Error("config load failed", "error", err)
		return 1
	}

	rt, err := rodtransport.New(rodtransport.Config{Stealth: true, Logger: log})
	if err != nil {
		log.Error("launching browser failed", "error", err)
		return 1
	}
	defer rt.Close()

	ctx := context.Background()
	target := transport.Target(*url)
	if err := rt.Attach(ctx, target); err != nil {
		log.Error("attaching to page failed", "error", err)
		return 1
	}
	defer rt.Detach(ctx, target)

	actions, err := record(ctx, rt, cfg, target, *recordFor, log)
	if err != nil {
		log.Error("recording session failed", "error", err)
		return 1
	}
	log.Info("recording finished", "actions", len(actions))

	if err := writeEvidence(*evidencePath, actions); err != nil {
		log.Error("writing evidence file failed", "error", err)
		return 1
	}

	if err := replay(ctx, rt, cfg, target, actions, *telemetryPath, log); err != nil {
		log.Error("replay failed", "error", err)
		return 1
	}
	return 0
}

// record drives a fixed-duration recording session. A real embedder
// would wire orchestrator event feeders to the page's own event
// listeners via the transport's On callback; here the session is just
// brought up and torn down to exercise layer init and Stop's drain.
func record(ctx context.Context, rt *rodtransport.Transport, cfg config.Config, target transport.Target, dur time.Duration, log *slog.Logger) ([]locator.CapturedAction, error) {
	orchCfg := orchestrator.Config{
		EnableVision:    cfg.EnableVision,
		EnableMouse:     cfg.EnableMouse,
		EnableNetwork:   cfg.EnableNetwork,
		OCRTimeout:      cfg.OCRTimeout(),
		SnapshotTimeout: 100 * time.Millisecond,
		A11yTTL:         2 * time.Second,
		Chain:           cfg.ToChainOptions(),
		Buffer:          cfg.ToEvidenceConfig(),
		Mouse:           cfg.ToMouseConfig(),
		Network:         cfg.ToNetworkConfig(),
		Vision:          cfg.ToVisionConfig(),
	}
	o := orchestrator.New(rt, transport.NullOCREngine{}, orchCfg, nil, log)

	sessionID, err := o.Start(ctx, target)
	if err != nil {
		return nil, err
	}
	log.Info("recording started", "sessionId", sessionID, "target", target)

	select {
	case <-ctx.Done():
	case <-time.After(dur):
	}

	return o.Stop()
}

// replay re-derives the locator chain's winner for every recorded
// action through the full Decision Engine / Action Executor pipeline,
// logging one telemetry event per step.
func replay(ctx context.Context, rt *rodtransport.Transport, cfg config.Config, target transport.Target, actions []locator.CapturedAction, telemetryPath string, log *slog.Logger) error {
	if len(actions) == 0 {
		log.Warn("nothing to replay")
		return nil
	}

	f, err := os.Create(telemetryPath)
	if err != nil {
		return err
	}
	defer f.Close()

	sink := telemetry.NewJSONLLogger(f, log)
	decisionLogger := &telemetry.DecisionLogger{Logger: sink, RunID: actions[0].ActionID}

	view := a11y.New(rt, 2*time.Second)
	waiter := actionability.New(rt, actionability.DefaultConfig())
	vision := visioncapture.New(rt, transport.NullOCREngine{}, cfg.ToVisionConfig())
	exec := executor.New(rt, waiter, cfg.ToExecutorConfig())

	router := decision.NewRouter(
		&evaluators.Selector{Transport: rt},
		&evaluators.Semantic{View: view, Transport: rt},
		evaluators.NewEvidenceScored(rt),
		&evaluators.OCR{Vision: vision},
		&evaluators.Coordinates{Transport: rt},
	)
	engine := decision.New(router, exec, decisionLogger, cfg.ToDecisionConfig())

	for i, action := range actions {
		result := engine.Decide(ctx, target, action)
		log.Info("replayed action",
			"index", i,
			"actionId", action.ActionID,
			"winner", result.UsedStrategyType,
			"success", result.Success,
		)
	}
	return nil
}

func writeEvidence(path string, actions []locator.CapturedAction) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, a := range actions {
		if err := enc.Encode(a); err != nil {
			return err
		}
	}
	return nil
}
