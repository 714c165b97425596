package chain

import (
	"fmt"
	"strings"

	"github.com/brennhill/fallbackweave/internal/domcapture"
	"github.com/brennhill/fallbackweave/internal/locator"
	"github.com/brennhill/fallbackweave/internal/scoring"
)

// stableAttributeOrder is the allowlist from spec.md §4.10, iterated in a
// fixed order so candidate generation is deterministic.
var stableAttributeOrder = []string{"name", "type", "href", "src", "alt", "title", "placeholder"}

// EvidenceScoredMetadata is carried by the mouse-derived evidence_scored
// candidate so the Evidence Scored Evaluator (§4.13) can re-probe around
// the recorded endpoint at replay time.
type EvidenceScoredMetadata struct {
	Endpoint         locator.Point        `json:"endpoint"`
	TrailTail        []locator.MousePoint `json:"trailTail"`
	Pattern          locator.MousePattern `json:"pattern"`
	AttributeProfile map[string]string    `json:"attributeProfile"`
}

// GenerateInput is the raw evidence a chain generation pass has to work
// with. Fields may be nil/empty; generators simply produce nothing for
// missing input (spec.md §4.12).
type GenerateInput struct {
	Dom              locator.ElementDescriptor
	Vision           *locator.VisionEvidence
	Mouse            *locator.MouseEvidence
	LiveOCRAvailable bool // suppresses the vision-estimate candidate when a real OCR result is already present
}

// Generate produces the full candidate family for one captured action:
// selector-derived, semantic, vision-estimated, mouse-derived, and the
// always-present coordinates candidate, each scored via the Strategy
// Scorer (spec.md §4.12).
func Generate(in GenerateInput) []locator.LocatorStrategy {
	ctx := scoring.ElementContext{
		HasID:             in.Dom.ID != "",
		HasTestID:         in.Dom.TestID != "",
		HasAccessibleName: in.Dom.AccessibleName != "",
		IsFormElement:     in.Dom.FormContext != nil,
		IsInShadowDOM:     in.Dom.IsInShadowDOM,
		Role:              in.Dom.Role,
	}

	var out []locator.LocatorStrategy
	add := func(cand scoring.Candidate, typ locator.StrategyType, selector string, meta any) {
		conf, ok := scoring.Score(cand, ctx)
		if !ok {
			return
		}
		out = append(out, locator.LocatorStrategy{Type: typ, Selector: selector, Confidence: conf, Metadata: meta})
	}

	generateFromSelectors(in.Dom, add)
	generateFromSemanticView(in.Dom, add)
	generateFromVision(in, add)
	generateFromMouse(in.Dom, in.Mouse, add)

	// Always: a coordinates candidate from the descriptor's click point
	// (spec.md §4.12 "Always").
	add(scoring.Candidate{Kind: scoring.KindCoordinates}, locator.StrategyCoordinates, "", locator.CoordinatesMetadata{Point: in.Dom.ClickPoint})

	return out
}

type adder func(cand scoring.Candidate, typ locator.StrategyType, selector string, meta any)

func generateFromSelectors(dom locator.ElementDescriptor, add adder) {
	if dom.ID != "" {
		sel := "#" + dom.ID
		add(scoring.Candidate{Kind: scoring.KindID, Selector: dom.ID}, locator.StrategySelectorUniq, sel, nil)
	}
	if dom.TestID != "" {
		sel := fmt.Sprintf("[data-testid=%s]", dom.TestID)
		add(scoring.Candidate{Kind: scoring.KindTestID, Selector: dom.TestID}, locator.StrategySelectorUniq, sel, nil)
	}
	if stable := domcapture.StableClasses(dom.ClassList); len(stable) > 0 {
		sel := "." + strings.Join(stable, ".")
		add(scoring.Candidate{Kind: scoring.KindClass, StableClassCount: len(stable)}, locator.StrategySelectorPath, sel, nil)
	}
	for _, name := range stableAttributeOrder {
		val, ok := dom.Attributes[name]
		if !ok || val == "" {
			continue
		}
		sel := fmt.Sprintf("[%s=%q]", name, val)
		add(scoring.Candidate{Kind: scoring.KindAttribute, AttributeName: name, Selector: sel}, locator.StrategySelectorPath, sel, nil)
	}
	if dom.XPath != "" {
		add(scoring.Candidate{Kind: scoring.KindXPath}, locator.StrategySelectorPath, dom.XPath, map[string]string{"form": "xpath"})
	}
	if dom.SelectorPath != "" {
		add(scoring.Candidate{Kind: scoring.KindCSSPath}, locator.StrategySelectorPath, dom.SelectorPath, map[string]string{"form": "csspath"})
	}
}

func generateFromSemanticView(dom locator.ElementDescriptor, add adder) {
	if dom.Role != "" && dom.AccessibleName != "" {
		add(scoring.Candidate{Kind: scoring.KindSemanticNamed}, locator.StrategySemanticRole, "",
			map[string]string{"role": dom.Role, "name": dom.AccessibleName})
	} else if dom.Role != "" {
		add(scoring.Candidate{Kind: scoring.KindSemanticRoleOnly}, locator.StrategySemanticRole, "",
			map[string]string{"role": dom.Role})
	}
	if dom.Text != "" {
		add(scoring.Candidate{Kind: scoring.KindSemanticNamed, RawConfidence: 0.80}, locator.StrategySemanticText, "",
			map[string]string{"text": dom.Text})
	}
	if dom.Placeholder != "" {
		add(scoring.Candidate{Kind: scoring.KindSemanticNamed, RawConfidence: 0.75}, locator.StrategySemanticText, "",
			map[string]string{"placeholder": dom.Placeholder})
	}
}

// generateFromVision produces an OCR-match estimate of the accessible
// name or visible text only when no live OCR result is already present
// (spec.md §4.12 "From vision").
func generateFromVision(in GenerateInput, add adder) {
	if in.LiveOCRAvailable {
		return
	}
	text := in.Dom.AccessibleName
	if text == "" {
		text = in.Dom.Text
	}
	if text == "" {
		return
	}
	add(scoring.Candidate{Kind: scoring.KindOCR, OCRConfidence: 70}, locator.StrategyOCRText, "", locator.OCRMetadata{
		Text:       text,
		BBox:       in.Dom.BoundingRect,
		OCRConf:    70,
		LiveSource: false,
	})
}

func generateFromMouse(dom locator.ElementDescriptor, mouse *locator.MouseEvidence, add adder) {
	if mouse == nil {
		return
	}
	tail := mouse.Trail
	if len(tail) > 5 {
		tail = tail[len(tail)-5:]
	}
	meta := EvidenceScoredMetadata{
		Endpoint:  mouse.Summary.Endpoint,
		TrailTail: tail,
		Pattern:   mouse.Summary.Pattern,
		AttributeProfile: map[string]string{
			"tagName": dom.TagName,
			"id":      dom.ID,
			"class":   strings.Join(dom.ClassList, " "),
		},
	}
	add(scoring.Candidate{Kind: scoring.KindEvidenceScored, RawConfidence: 0.65}, locator.StrategyEvidenceScore, "", meta)
}
