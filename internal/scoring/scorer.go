// Package scoring implements the Strategy Scorer: a pure, stateless
// function mapping a raw locator candidate plus its element context to a
// final confidence in [0,1] (spec.md §4.10).
package scoring

import (
	"regexp"
)

// Kind classifies the raw source of a candidate so the scorer can apply
// the right rule.
type Kind string

const (
	KindID               Kind = "id"
	KindTestID           Kind = "testid"
	KindClass            Kind = "class"
	KindAttribute        Kind = "attribute"
	KindXPath            Kind = "xpath"
	KindCSSPath          Kind = "csspath"
	KindSemanticRoleOnly Kind = "semantic_role_only"
	KindSemanticNamed    Kind = "semantic_named"
	KindOCR              Kind = "ocr"
	KindEvidenceScored   Kind = "evidence_scored"
	KindCoordinates      Kind = "coordinates"
)

// ElementContext describes the element a candidate was derived from.
type ElementContext struct {
	HasID             bool
	HasTestID         bool
	HasAccessibleName bool
	IsFormElement     bool
	IsInShadowDOM     bool
	Role              string
}

// Candidate is a raw, unscored locator candidate.
type Candidate struct {
	Kind             Kind
	Selector         string
	AttributeName    string  // populated for KindAttribute
	StableClassCount int     // surviving classes after dynamic/state filtering, for KindClass
	OCRConfidence    float64 // 0..100, for KindOCR
	RawConfidence    float64 // caller-estimated confidence where no other rule applies
}

var dynamicIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(ember|react|ng-|_)`),
	regexp.MustCompile(`^[a-z]{1,2}\d+$`),
}

var stableAttributes = map[string]bool{
	"name": true, "type": true, "href": true, "src": true,
	"alt": true, "title": true, "placeholder": true,
}

func isDynamicID(id string) bool {
	for _, re := range dynamicIDPatterns {
		if re.MatchString(id) {
			return true
		}
	}
	return false
}

// Score returns the final confidence for a candidate, and false if the
// candidate must be rejected outright (spec.md §4.10).
func Score(c Candidate, ctx ElementContext) (float64, bool) {
	switch c.Kind {
	case KindID:
		if isDynamicID(c.Selector) {
			return 0.5, true
		}
		return 0.85, true

	case KindTestID:
		return 0.95, true

	case KindClass:
		switch {
		case c.StableClassCount >= 2:
			return 0.85, true
		case c.StableClassCount == 1:
			return 0.85 * 0.8, true
		default:
			return 0, false
		}

	case KindAttribute:
		if !stableAttributes[c.AttributeName] || len(c.Selector) > 100 {
			return 0, false
		}
		return 0.80, true

	case KindXPath, KindCSSPath:
		return 0.75, true

	case KindSemanticRoleOnly:
		return 0.75, true

	case KindSemanticNamed:
		if !ctx.HasAccessibleName {
			return 0.75, true
		}
		return 0.95, true

	case KindOCR:
		return clamp01(c.OCRConfidence / 100), true

	case KindEvidenceScored:
		return clamp01(c.RawConfidence), true

	case KindCoordinates:
		return 0.60, true

	default:
		return clamp01(c.RawConfidence), true
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
