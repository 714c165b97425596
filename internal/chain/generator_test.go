package chain

import (
	"testing"

	"github.com/brennhill/fallbackweave/internal/locator"
)

func TestGenerateAlwaysIncludesCoordinates(t *testing.T) {
	out := Generate(GenerateInput{Dom: locator.ElementDescriptor{TagName: "div"}})
	found := false
	for _, s := range out {
		if s.Type == locator.StrategyCoordinates {
			found = true
		}
	}
	if !found {
		t.Fatal("expected coordinates candidate always present")
	}
}

func TestGenerateFromSelectorsProducesIDAndTestID(t *testing.T) {
	out := Generate(GenerateInput{Dom: locator.ElementDescriptor{
		TagName: "button", ID: "submit", TestID: "submit-btn",
	}})
	var hasSelector bool
	for _, s := range out {
		if s.Type == locator.StrategySelectorUniq {
			hasSelector = true
		}
	}
	if !hasSelector {
		t.Error("expected at least one selector_unique candidate from id/testid")
	}
}

func TestGenerateSkipsVisionWhenLiveOCRAvailable(t *testing.T) {
	dom := locator.ElementDescriptor{TagName: "button", AccessibleName: "Submit"}
	withLive := Generate(GenerateInput{Dom: dom, LiveOCRAvailable: true})
	withoutLive := Generate(GenerateInput{Dom: dom, LiveOCRAvailable: false})

	count := func(strategies []locator.LocatorStrategy) int {
		n := 0
		for _, s := range strategies {
			if s.Type == locator.StrategyOCRText {
				n++
			}
		}
		return n
	}
	if count(withLive) != 0 {
		t.Error("expected no OCR-estimate candidate when live OCR is available")
	}
	if count(withoutLive) != 1 {
		t.Error("expected an OCR-estimate candidate when no live OCR is available")
	}
}

func TestGenerateFromMouseOnlyWhenEvidencePresent(t *testing.T) {
	dom := locator.ElementDescriptor{TagName: "button"}
	withoutMouse := Generate(GenerateInput{Dom: dom})
	withMouse := Generate(GenerateInput{Dom: dom, Mouse: &locator.MouseEvidence{
		Summary: locator.MouseTrailSummary{Pattern: locator.PatternDirect},
	}})

	has := func(strategies []locator.LocatorStrategy) bool {
		for _, s := range strategies {
			if s.Type == locator.StrategyEvidenceScore {
				return true
			}
		}
		return false
	}
	if has(withoutMouse) {
		t.Error("expected no evidence_scored candidate without mouse evidence")
	}
	if !has(withMouse) {
		t.Error("expected an evidence_scored candidate with mouse evidence present")
	}
}
