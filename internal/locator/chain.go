package locator

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// stringifyMetadata produces a stable string key for dedupe when no
// selector string is present on the strategy.
func stringifyMetadata(meta any) string {
	b, err := json.Marshal(meta)
	if err != nil {
		return fmt.Sprintf("%v", meta)
	}
	return string(b)
}

// SortByConfidenceDesc sorts strategies descending by confidence,
// in place, and is stable so equal-confidence ties keep their relative
// order (spec.md §4.11 step 7, §8 "ordered such that confidence[i] >=
// confidence[i+1]").
func SortByConfidenceDesc(strategies []LocatorStrategy) {
	sort.SliceStable(strategies, func(i, j int) bool {
		return strategies[i].Confidence > strategies[j].Confidence
	})
}

// NewFallbackChain builds a chain from already-ordered, already-built
// strategies, setting PrimaryStrategyType from the first entry.
func NewFallbackChain(strategies []LocatorStrategy, recordedAt time.Time) FallbackChain {
	chain := FallbackChain{Strategies: strategies, RecordedAt: recordedAt}
	if len(strategies) > 0 {
		chain.PrimaryStrategyType = strategies[0].Type
	}
	return chain
}

// Validate checks the chain-level invariants from spec.md §3/§8.
func (c FallbackChain) Validate() error {
	if len(c.Strategies) < 2 {
		hasCoord := false
		for _, s := range c.Strategies {
			if s.Type == StrategyCoordinates {
				hasCoord = true
			}
		}
		if !hasCoord {
			return fmt.Errorf("invalid_chain: chain has %d strategies and no coordinates fallback", len(c.Strategies))
		}
	}
	if len(c.Strategies) > 7 {
		return fmt.Errorf("invalid_chain: chain exceeds 7 strategies (%d)", len(c.Strategies))
	}

	seen := make(map[string]bool, len(c.Strategies))
	hasStrong := false
	hasCoordAnywhere := false
	for i, s := range c.Strategies {
		if !s.Type.Valid() {
			return fmt.Errorf("invalid_chain: unknown strategy type %q", s.Type)
		}
		key := s.DedupeKey()
		if seen[key] {
			return fmt.Errorf("invalid_chain: duplicate dedupe key %q", key)
		}
		seen[key] = true

		if i > 0 && s.Confidence > c.Strategies[i-1].Confidence {
			return fmt.Errorf("invalid_chain: strategy %d confidence %.3f exceeds predecessor %.3f", i, s.Confidence, c.Strategies[i-1].Confidence)
		}
		if s.Confidence >= 0.7 {
			hasStrong = true
		}
		if s.Type == StrategyCoordinates {
			hasCoordAnywhere = true
		}
	}
	if !hasStrong && !hasCoordAnywhere {
		return fmt.Errorf("invalid_chain: no strategy has confidence >= 0.7 and no coordinates strategy present")
	}
	if len(c.Strategies) > 0 && c.PrimaryStrategyType != c.Strategies[0].Type {
		return fmt.Errorf("invalid_chain: primaryStrategyType %q does not match first strategy %q", c.PrimaryStrategyType, c.Strategies[0].Type)
	}
	return nil
}

// StrategyKey identifies a (type, selector) pair across replay runs, used
// by fragile-strategy detection (SPEC_FULL.md §4 additions).
type StrategyKey struct {
	Type     StrategyType
	Selector string
}
