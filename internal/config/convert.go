package config

import (
	"time"

	"github.com/brennhill/fallbackweave/internal/chain"
	"github.com/brennhill/fallbackweave/internal/decision"
	"github.com/brennhill/fallbackweave/internal/evidence"
	"github.com/brennhill/fallbackweave/internal/executor"
	"github.com/brennhill/fallbackweave/internal/mousecapture"
	"github.com/brennhill/fallbackweave/internal/networkcapture"
	"github.com/brennhill/fallbackweave/internal/visioncapture"
)

// ToEvidenceConfig builds the Evidence Buffer's Config from the
// recognized bufferSizeLimit/bufferGcThreshold keys. GCTarget and
// FixedOverhead are additive tuning the configuration surface doesn't
// expose, so they stay on evidence.DefaultConfig's values.
func (c Config) ToEvidenceConfig() evidence.Config {
	d := evidence.DefaultConfig()
	d.SizeLimitBytes = c.BufferSizeLimit
	d.GCThreshold = c.BufferGcThreshold
	return d
}

// ToMouseConfig builds the Mouse Capture Layer's Config.
func (c Config) ToMouseConfig() mousecapture.Config {
	d := mousecapture.DefaultConfig()
	d.SampleRate = ms(c.SampleRateMs)
	d.MovementThreshold = c.MovementThreshold
	d.MaxTrailLength = c.MaxTrailLength
	d.RetentionWindow = ms(c.RetentionMs)
	return d
}

// ToVisionConfig builds the Vision Capture Layer's Config. OcrTimeoutMs
// is not part of visioncapture.Config — it bounds the context passed to
// Capture by the orchestrator, not the layer's own cache policy.
func (c Config) ToVisionConfig() visioncapture.Config {
	d := visioncapture.DefaultConfig()
	d.ConfidenceFloor = c.OcrConfidenceMin
	d.CacheTTL = ms(c.OcrCacheTtlMs)
	return d
}

// OCRTimeout is the per-capture OCR bound (spec.md §6 ocrTimeoutMs),
// applied by the orchestrator via context.WithTimeout around a
// visioncapture.Layer.Capture call.
func (c Config) OCRTimeout() time.Duration { return ms(c.OcrTimeoutMs) }

// ToNetworkConfig builds the Network Capture Layer's Config.
func (c Config) ToNetworkConfig() networkcapture.Config {
	d := networkcapture.DefaultConfig()
	if len(c.IgnorePatterns) > 0 {
		d.IgnorePatterns = c.IgnorePatterns
	}
	return d
}

// ToChainOptions builds the Chain Builder's Options.
func (c Config) ToChainOptions() chain.Options {
	d := chain.DefaultOptions()
	d.MinConfidenceFloor = c.MinCandidateConfidence
	d.MaxStrategies = c.MaxStrategies
	d.MinDiverseTypes = c.MinDiverseTypes
	d.SimilarityThreshold = c.SimilarityThreshold
	d.RequireCoordinatesFallback = c.AlwaysIncludeCoordinates
	return d
}

// ToDecisionConfig builds the Decision Engine's Config. parallelEvaluation
// and maxRetries beyond one round are not independently wired: the
// engine always fans evaluators out concurrently and performs at most
// one forced-refresh retry pass, so only the timeout, confidence floor,
// and whether that one retry pass is allowed at all are configurable.
func (c Config) ToDecisionConfig() decision.Config {
	d := decision.DefaultConfig()
	d.PerStrategyTimeout = ms(c.EvalTimeoutMs)
	d.MinConfidence = c.MinDecisionConfidence
	d.AllowForcedRefresh = c.RetryOnFailure
	return d
}

// ToExecutorConfig builds the Action Executor's Config.
func (c Config) ToExecutorConfig() executor.Config {
	d := executor.DefaultConfig()
	d.MouseSteps = c.MouseMoveSteps
	d.StepDelay = ms(c.ClickDelayMs)
	d.KeyDelay = ms(c.TypeDelayMs)
	d.ViewportMargin = c.ScrollMargin
	d.FocusBeforeType = c.FocusBeforeType
	d.ClearBeforeType = c.ClearBeforeType
	d.VerifyAfterAction = c.VerifyAfterAction
	d.ActionTimeout = ms(c.ActionTimeoutMs)
	return d
}
