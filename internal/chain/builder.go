// Package chain builds a ranked FallbackChain from scored candidates:
// dedupe (exact and near-duplicate), priority ordering, diversity and
// coordinates-fallback enforcement, and a final confidence sort
// (spec.md §4.11).
package chain

import (
	"time"

	"github.com/brennhill/fallbackweave/internal/locator"
)

// RejectReason is an observability code for a dropped candidate.
type RejectReason string

const (
	ReasonDuplicate     RejectReason = "duplicate"
	ReasonSimilar       RejectReason = "similar"
	ReasonLowConfidence RejectReason = "low_confidence"
	ReasonCapacity      RejectReason = "capacity"
	ReasonTypeCovered   RejectReason = "type_covered"
	ReasonInvalid       RejectReason = "invalid"
)

// Rejected pairs a dropped candidate with why it was dropped.
type Rejected struct {
	Strategy locator.LocatorStrategy
	Reason   RejectReason
}

// Options configures chain construction.
type Options struct {
	PreferredTypes             []locator.StrategyType // ordered first among equals, caller-supplied
	RequiredTypes              []locator.StrategyType // must be present in the final chain if any candidate of that type exists
	MinDiverseTypes            int                    // default 3
	MaxStrategies              int                    // default 7
	SimilarityThreshold        float64                // default 0.9
	MinConfidenceFloor         float64                // below this a candidate is rejected outright, default 0 (no floor besides the chain invariant)
	RequireCoordinatesFallback bool                   // default true
}

// DefaultOptions matches spec.md §4.11 defaults.
func DefaultOptions() Options {
	return Options{
		MinDiverseTypes:            3,
		MaxStrategies:              7,
		SimilarityThreshold:        0.9,
		RequireCoordinatesFallback: true,
	}
}

// Result is the built chain plus the rejected candidates for
// observability.
type Result struct {
	Chain    locator.FallbackChain
	Rejected []Rejected
}

// Build runs the full chain-builder pipeline over scored candidates.
func Build(candidates []locator.LocatorStrategy, opts Options, recordedAt time.Time) Result {
	d := DefaultOptions()
	if opts.MinDiverseTypes <= 0 {
		opts.MinDiverseTypes = d.MinDiverseTypes
	}
	if opts.MaxStrategies <= 0 {
		opts.MaxStrategies = d.MaxStrategies
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = d.SimilarityThreshold
	}

	var rejected []Rejected
	pool := candidates
	if opts.MinConfidenceFloor > 0 {
		var belowFloor []Rejected
		pool = nil
		for _, c := range candidates {
			if c.Confidence < opts.MinConfidenceFloor {
				belowFloor = append(belowFloor, Rejected{Strategy: c, Reason: ReasonLowConfidence})
				continue
			}
			pool = append(pool, c)
		}
		rejected = append(rejected, belowFloor...)
	}

	kept, rejExact := dedupeExact(pool)
	rejected = append(rejected, rejExact...)

	kept, rejSimilar := dedupeSimilar(kept, opts.SimilarityThreshold)
	rejected = append(rejected, rejSimilar...)

	ordered := orderByPriority(kept, opts.PreferredTypes)

	kept, rejCapacity := enforceDiversity(ordered, opts.MinDiverseTypes, opts.MaxStrategies)
	rejected = append(rejected, rejCapacity...)

	if opts.RequireCoordinatesFallback {
		kept = enforceCoordinatesFallback(kept, pool)
	}

	kept = enforceRequiredTypes(kept, pool, opts.RequiredTypes)

	locator.SortByConfidenceDesc(kept)
	return Result{Chain: locator.NewFallbackChain(kept, recordedAt), Rejected: rejected}
}

// dedupeExact keys on type + (selector | stringified metadata); on
// collision keeps the higher-confidence candidate (spec.md §4.11 step 1).
func dedupeExact(candidates []locator.LocatorStrategy) ([]locator.LocatorStrategy, []Rejected) {
	best := make(map[string]locator.LocatorStrategy)
	order := make([]string, 0, len(candidates))
	var rejected []Rejected

	for _, c := range candidates {
		key := c.DedupeKey()
		existing, ok := best[key]
		if !ok {
			best[key] = c
			order = append(order, key)
			continue
		}
		if c.Confidence > existing.Confidence {
			rejected = append(rejected, Rejected{Strategy: existing, Reason: ReasonDuplicate})
			best[key] = c
		} else {
			rejected = append(rejected, Rejected{Strategy: c, Reason: ReasonDuplicate})
		}
	}

	out := make([]locator.LocatorStrategy, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out, rejected
}

// dedupeSimilar collapses two selector-bearing strategies whose selector
// strings have normalized similarity at or above threshold, keeping the
// higher-confidence one; non-selector strategies bypass this (spec.md
// §4.11 step 2).
func dedupeSimilar(candidates []locator.LocatorStrategy, threshold float64) ([]locator.LocatorStrategy, []Rejected) {
	var rejected []Rejected
	kept := make([]locator.LocatorStrategy, 0, len(candidates))

	for _, c := range candidates {
		if c.Selector == "" {
			kept = append(kept, c)
			continue
		}
		collided := false
		for i, k := range kept {
			if k.Selector == "" {
				continue
			}
			if NormalizedSimilarity(c.Selector, k.Selector) >= threshold {
				collided = true
				if c.Confidence > k.Confidence {
					rejected = append(rejected, Rejected{Strategy: k, Reason: ReasonSimilar})
					kept[i] = c
				} else {
					rejected = append(rejected, Rejected{Strategy: c, Reason: ReasonSimilar})
				}
				break
			}
		}
		if !collided {
			kept = append(kept, c)
		}
	}
	return kept, rejected
}

// orderByPriority places caller-preferred types first (in the order
// given), then the remainder by descending confidence (spec.md §4.11
// step 3). The final sort re-applies pure confidence order afterward, so
// this step only affects tie-breaking through diversity/capacity
// enforcement.
func orderByPriority(candidates []locator.LocatorStrategy, preferred []locator.StrategyType) []locator.LocatorStrategy {
	rank := make(map[locator.StrategyType]int, len(preferred))
	for i, t := range preferred {
		rank[t] = i
	}

	out := append([]locator.LocatorStrategy{}, candidates...)
	locator.SortByConfidenceDesc(out)

	preferredOut := make([]locator.LocatorStrategy, 0, len(out))
	restOut := make([]locator.LocatorStrategy, 0, len(out))
	for _, c := range out {
		if _, ok := rank[c.Type]; ok {
			preferredOut = append(preferredOut, c)
		} else {
			restOut = append(restOut, c)
		}
	}
	return append(preferredOut, restOut...)
}

// enforceDiversity selects up to maxStrategies candidates from ordered
// (already priority/confidence ranked), requiring at least minDiverse
// distinct categories among {semantic, selector, vision, evidence,
// coordinates} in the selection. Missing categories are filled by
// promoting the highest-confidence candidate of that category from the
// remainder, evicting the lowest-confidence already-selected entry to
// make room (spec.md §4.11 step 4).
func enforceDiversity(ordered []locator.LocatorStrategy, minDiverse, maxStrategies int) ([]locator.LocatorStrategy, []Rejected) {
	var rejected []Rejected

	selected := ordered
	if len(selected) > maxStrategies {
		for _, s := range selected[maxStrategies:] {
			rejected = append(rejected, Rejected{Strategy: s, Reason: ReasonCapacity})
		}
		selected = append([]locator.LocatorStrategy{}, selected[:maxStrategies]...)
	} else {
		selected = append([]locator.LocatorStrategy{}, selected...)
	}

	present := map[string]bool{}
	for _, c := range selected {
		present[c.Type.Category()] = true
	}

	for _, cat := range []string{"semantic", "selector", "vision", "evidence", "coordinates"} {
		if len(present) >= minDiverse {
			break
		}
		if present[cat] {
			continue
		}
		best := highestConfidenceUnselected(ordered, selected, cat)
		if best == nil {
			continue
		}
		if len(selected) < maxStrategies {
			selected = append(selected, *best)
		} else {
			lowestIdx := lowestConfidenceIndex(selected)
			rejected = append(rejected, Rejected{Strategy: selected[lowestIdx], Reason: ReasonTypeCovered})
			selected[lowestIdx] = *best
		}
		present[cat] = true
	}

	return selected, rejected
}

func highestConfidenceUnselected(ordered, selected []locator.LocatorStrategy, category string) *locator.LocatorStrategy {
	isSelected := make(map[string]bool, len(selected))
	for _, s := range selected {
		isSelected[s.DedupeKey()] = true
	}
	var best *locator.LocatorStrategy
	for i := range ordered {
		if ordered[i].Type.Category() != category {
			continue
		}
		if isSelected[ordered[i].DedupeKey()] {
			continue
		}
		if best == nil || ordered[i].Confidence > best.Confidence {
			best = &ordered[i]
		}
	}
	return best
}

func lowestConfidenceIndex(strategies []locator.LocatorStrategy) int {
	idx := 0
	for i, s := range strategies {
		if s.Confidence < strategies[idx].Confidence {
			idx = i
		}
	}
	return idx
}

// enforceCoordinatesFallback ensures a coordinates strategy is present,
// replacing the lowest-confidence entry with the coordinate candidate
// from the full candidate pool if one exists and none survived so far
// (spec.md §4.11 step 5).
func enforceCoordinatesFallback(kept, allCandidates []locator.LocatorStrategy) []locator.LocatorStrategy {
	for _, c := range kept {
		if c.Type == locator.StrategyCoordinates {
			return kept
		}
	}
	var coordCandidate *locator.LocatorStrategy
	for i := range allCandidates {
		if allCandidates[i].Type == locator.StrategyCoordinates {
			coordCandidate = &allCandidates[i]
			break
		}
	}
	if coordCandidate == nil || len(kept) == 0 {
		return kept
	}

	out := append([]locator.LocatorStrategy{}, kept...)
	out[lowestConfidenceIndex(out)] = *coordCandidate
	return out
}

// enforceRequiredTypes promotes the highest-confidence candidate of any
// caller-marked required type that is missing from kept, evicting the
// lowest-confidence non-required entry to make room (spec.md §4.11 step
// 6).
func enforceRequiredTypes(kept, allCandidates []locator.LocatorStrategy, required []locator.StrategyType) []locator.LocatorStrategy {
	out := append([]locator.LocatorStrategy{}, kept...)
	for _, rt := range required {
		present := false
		for _, c := range out {
			if c.Type == rt {
				present = true
				break
			}
		}
		if present {
			continue
		}
		var best *locator.LocatorStrategy
		for i := range allCandidates {
			if allCandidates[i].Type != rt {
				continue
			}
			if best == nil || allCandidates[i].Confidence > best.Confidence {
				best = &allCandidates[i]
			}
		}
		if best == nil || len(out) == 0 {
			continue
		}
		out[lowestConfidenceIndex(out)] = *best
	}
	return out
}
