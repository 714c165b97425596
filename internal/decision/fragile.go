package decision

import "github.com/brennhill/fallbackweave/internal/locator"

// History is one past Decide outcome, reduced to what fragile-strategy
// detection needs: which (type, selector) was used and whether it held.
type History struct {
	Strategy locator.StrategyKey
	Success  bool
}

// DetectFragileStrategies flags (type, selector) pairs that failed in
// more than half of their attempts across history, once a pair has at
// least two recorded attempts (SPEC_FULL.md §4 addition, grounded on the
// teacher's internal/recording/playback_engine.go
// DetectFragileSelectors, which applies the same ">50% of runs" rule
// to cross-session selector failures).
func DetectFragileStrategies(history []History) map[locator.StrategyKey]bool {
	fragile := make(map[locator.StrategyKey]bool)

	attempts := make(map[locator.StrategyKey]int)
	failures := make(map[locator.StrategyKey]int)
	for _, h := range history {
		attempts[h.Strategy]++
		if !h.Success {
			failures[h.Strategy]++
		}
	}

	for key, total := range attempts {
		if total < 2 {
			continue
		}
		if float64(failures[key])/float64(total) > 0.5 {
			fragile[key] = true
		}
	}
	return fragile
}
