package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Overrides holds values an embedder wants to force regardless of file
// or environment — the cascade's highest-priority tier (ground: the
// teacher's FlagOverrides, generalized from CLI flags to "explicit
// caller overrides" since this module has no CLI surface).
type Overrides struct {
	EnableVision  *bool
	EnableMouse   *bool
	EnableNetwork *bool
}

// Load builds the final Config via defaults < file < env < overrides.
// path may be empty, in which case the file tier is skipped.
func Load(path string, overrides *Overrides) (Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := loadFile(&cfg, path); err != nil {
			return cfg, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	loadEnv(&cfg)

	if overrides != nil {
		applyOverrides(&cfg, overrides)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// loadFile merges a YAML document into cfg, in place. yaml.Unmarshal
// only assigns fields present in the document, so keys the file omits
// keep whatever cfg already held (ground: teacher's loadJSONFile
// treating os.IsNotExist as fine, and its per-field pointer-merge
// idiom — here achieved by decoding straight into the already-defaulted
// struct instead of a separate pointer-shadow type).
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// envPrefix namespaces every recognized environment variable.
const envPrefix = "FALLBACKWEAVE_"

// loadEnv applies FALLBACKWEAVE_<KEY> overrides for the boolean layer
// toggles and the handful of scalar keys most likely to be tuned per
// deployment without a file (ground: teacher's GASOLINE_* env vars).
func loadEnv(cfg *Config) {
	if v, ok := envBool("ENABLE_VISION"); ok {
		cfg.EnableVision = v
	}
	if v, ok := envBool("ENABLE_MOUSE"); ok {
		cfg.EnableMouse = v
	}
	if v, ok := envBool("ENABLE_NETWORK"); ok {
		cfg.EnableNetwork = v
	}
	if v, ok := envFloat("MIN_DECISION_CONFIDENCE"); ok {
		cfg.MinDecisionConfidence = v
	}
	if v, ok := envInt("EVAL_TIMEOUT_MS"); ok {
		cfg.EvalTimeoutMs = v
	}
	if v, ok := envInt("BUFFER_SIZE_LIMIT"); ok {
		cfg.BufferSizeLimit = int64(v)
	}
}

func envBool(suffix string) (bool, bool) {
	v, ok := lookupEnv(suffix)
	if !ok {
		return false, false
	}
	return v == "1" || strings.EqualFold(v, "true"), true
}

func envInt(suffix string) (int, bool) {
	v, ok := lookupEnv(suffix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func envFloat(suffix string) (float64, bool) {
	v, ok := lookupEnv(suffix)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}

func lookupEnv(suffix string) (string, bool) {
	v := os.Getenv(envPrefix + suffix)
	if v == "" {
		return "", false
	}
	return v, true
}

func applyOverrides(cfg *Config, o *Overrides) {
	if o.EnableVision != nil {
		cfg.EnableVision = *o.EnableVision
	}
	if o.EnableMouse != nil {
		cfg.EnableMouse = *o.EnableMouse
	}
	if o.EnableNetwork != nil {
		cfg.EnableNetwork = *o.EnableNetwork
	}
}

// Validate checks that configuration values are within acceptable
// ranges (ground: teacher's Config.Validate).
func (c Config) Validate() error {
	if c.BufferSizeLimit <= 0 {
		return fmt.Errorf("bufferSizeLimit must be positive, got %d", c.BufferSizeLimit)
	}
	if c.BufferGcThreshold <= 0 || c.BufferGcThreshold > 1 {
		return fmt.Errorf("bufferGcThreshold must be in (0,1], got %f", c.BufferGcThreshold)
	}
	if c.MinDecisionConfidence < 0 || c.MinDecisionConfidence > 1 {
		return fmt.Errorf("minDecisionConfidence must be in [0,1], got %f", c.MinDecisionConfidence)
	}
	if c.MaxStrategies <= 0 {
		return fmt.Errorf("maxStrategies must be positive, got %d", c.MaxStrategies)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("maxRetries must be non-negative, got %d", c.MaxRetries)
	}
	return nil
}
