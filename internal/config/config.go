// Package config implements the configuration surface (spec.md §6):
// a priority cascade of defaults < file < environment < explicit
// overrides, producing one flat Config that downstream packages
// convert into their own typed Config/Options values.
package config

import "time"

// Config holds every recognized key from spec.md §6's configuration
// table, flattened into one struct. Each field's yaml struct tag carries
// the original key name.
type Config struct {
	// Layer toggles. DOM is always on and has no switch.
	EnableVision  bool `yaml:"enableVision"`
	EnableMouse   bool `yaml:"enableMouse"`
	EnableNetwork bool `yaml:"enableNetwork"`

	// Evidence Buffer.
	BufferSizeLimit   int64   `yaml:"bufferSizeLimit"`
	BufferGcThreshold float64 `yaml:"bufferGcThreshold"`

	// Mouse Capture Layer.
	SampleRateMs      int     `yaml:"sampleRateMs"`
	MovementThreshold float64 `yaml:"movementThreshold"`
	MaxTrailLength    int     `yaml:"maxTrailLength"`
	RetentionMs       int     `yaml:"retentionMs"`

	// Vision Capture Layer.
	OcrConfidenceMin float64 `yaml:"ocrConfidenceMin"`
	OcrTimeoutMs     int     `yaml:"ocrTimeoutMs"`
	OcrCacheTtlMs    int     `yaml:"ocrCacheTtlMs"`

	// Network Capture Layer.
	IgnorePatterns []string `yaml:"ignorePatterns"`

	// Chain Builder.
	MinCandidateConfidence  float64 `yaml:"minCandidateConfidence"`
	MaxStrategies           int     `yaml:"maxStrategies"`
	MinDiverseTypes         int     `yaml:"minDiverseTypes"`
	SimilarityThreshold     float64 `yaml:"similarityThreshold"`
	AlwaysIncludeCoordinates bool   `yaml:"alwaysIncludeCoordinates"`

	// Decision Engine.
	EvalTimeoutMs         int     `yaml:"evalTimeoutMs"`
	MinDecisionConfidence float64 `yaml:"minDecisionConfidence"`
	ParallelEvaluation    bool    `yaml:"parallelEvaluation"`
	RetryOnFailure        bool    `yaml:"retryOnFailure"`
	MaxRetries            int     `yaml:"maxRetries"`

	// Action Executor.
	ClickDelayMs      int  `yaml:"clickDelay"`
	TypeDelayMs       int  `yaml:"typeDelay"`
	MouseMoveSteps    int  `yaml:"mouseMoveSteps"`
	ScrollMargin      float64 `yaml:"scrollMargin"`
	FocusBeforeType   bool `yaml:"focusBeforeType"`
	ClearBeforeType   bool `yaml:"clearBeforeType"`
	VerifyAfterAction bool `yaml:"verifyAfterAction"`
	ActionTimeoutMs   int  `yaml:"actionTimeoutMs"`
}

// Defaults returns the documented defaults (spec.md §4 per-component
// defaults, collected here as the base of the cascade).
func Defaults() Config {
	return Config{
		EnableVision:  true,
		EnableMouse:   true,
		EnableNetwork: true,

		BufferSizeLimit:   70 * 1024 * 1024,
		BufferGcThreshold: 0.80,

		SampleRateMs:      50,
		MovementThreshold: 3,
		MaxTrailLength:    100,
		RetentionMs:       5000,

		OcrConfidenceMin: 60,
		OcrTimeoutMs:     3000,
		OcrCacheTtlMs:    2000,

		IgnorePatterns: []string{`analytics`, `doubleclick`, `/beacon`, `google-analytics`},

		MinCandidateConfidence:   0,
		MaxStrategies:            7,
		MinDiverseTypes:          3,
		SimilarityThreshold:      0.9,
		AlwaysIncludeCoordinates: true,

		EvalTimeoutMs:         2000,
		MinDecisionConfidence: 0.5,
		ParallelEvaluation:    true,
		RetryOnFailure:        true,
		MaxRetries:            1,

		ClickDelayMs:      10,
		TypeDelayMs:       10,
		MouseMoveSteps:    10,
		ScrollMargin:      100,
		FocusBeforeType:   true,
		ClearBeforeType:   true,
		VerifyAfterAction: true,
		ActionTimeoutMs:   5000,
	}
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
