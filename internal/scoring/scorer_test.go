package scoring

import "testing"

func TestDynamicIDLosesConfidence(t *testing.T) {
	conf, ok := Score(Candidate{Kind: KindID, Selector: "ember482"}, ElementContext{})
	if !ok {
		t.Fatal("dynamic id should be scored, not rejected")
	}
	if conf >= 0.85 {
		t.Errorf("expected dynamic id to lose confidence vs stable id, got %v", conf)
	}
}

func TestStableIDScoresFull(t *testing.T) {
	conf, ok := Score(Candidate{Kind: KindID, Selector: "submit-button"}, ElementContext{})
	if !ok || conf != 0.85 {
		t.Errorf("got %v, %v", conf, ok)
	}
}

func TestTestIDHasHighFloor(t *testing.T) {
	conf, ok := Score(Candidate{Kind: KindTestID, Selector: "submit-btn"}, ElementContext{})
	if !ok || conf != 0.95 {
		t.Errorf("got %v, %v", conf, ok)
	}
}

func TestClassScalesWithStableCount(t *testing.T) {
	two, _ := Score(Candidate{Kind: KindClass, StableClassCount: 2}, ElementContext{})
	one, _ := Score(Candidate{Kind: KindClass, StableClassCount: 1}, ElementContext{})
	_, okZero := Score(Candidate{Kind: KindClass, StableClassCount: 0}, ElementContext{})

	if two <= one {
		t.Errorf("expected 2 stable classes to outscore 1, got %v vs %v", two, one)
	}
	if okZero {
		t.Error("expected 0 stable classes to be rejected")
	}
}

func TestAttributeRequiresAllowlistAndLength(t *testing.T) {
	_, okBadName := Score(Candidate{Kind: KindAttribute, AttributeName: "data-random", Selector: "x"}, ElementContext{})
	if okBadName {
		t.Error("expected non-allowlisted attribute to be rejected")
	}

	longVal := make([]byte, 101)
	for i := range longVal {
		longVal[i] = 'a'
	}
	_, okTooLong := Score(Candidate{Kind: KindAttribute, AttributeName: "title", Selector: string(longVal)}, ElementContext{})
	if okTooLong {
		t.Error("expected attribute selector over 100 chars to be rejected")
	}

	conf, ok := Score(Candidate{Kind: KindAttribute, AttributeName: "placeholder", Selector: "Search"}, ElementContext{})
	if !ok || conf != 0.80 {
		t.Errorf("got %v, %v", conf, ok)
	}
}

func TestSemanticNamedRequiresAccessibleNameForFullWeight(t *testing.T) {
	withName, _ := Score(Candidate{Kind: KindSemanticNamed}, ElementContext{HasAccessibleName: true})
	withoutName, _ := Score(Candidate{Kind: KindSemanticNamed}, ElementContext{HasAccessibleName: false})
	if withName <= withoutName {
		t.Errorf("expected named semantic with accessible name to outscore one without, got %v vs %v", withName, withoutName)
	}
	if withoutName != 0.75 {
		t.Errorf("expected role-only fallback of 0.75, got %v", withoutName)
	}
}

func TestOCRScalesByConfidenceOver100(t *testing.T) {
	conf, ok := Score(Candidate{Kind: KindOCR, OCRConfidence: 80}, ElementContext{})
	if !ok || conf != 0.8 {
		t.Errorf("got %v, %v", conf, ok)
	}
}

func TestCoordinatesFixedAt060(t *testing.T) {
	conf, ok := Score(Candidate{Kind: KindCoordinates}, ElementContext{})
	if !ok || conf != 0.60 {
		t.Errorf("got %v, %v", conf, ok)
	}
}
