package evidence

import (
	"testing"
	"time"

	"github.com/brennhill/fallbackweave/internal/locator"
)

func makeAction(id string) locator.CapturedAction {
	return locator.CapturedAction{
		ActionID:  id,
		Timestamp: time.Now(),
		EventType: locator.EventClick,
		FallbackChain: locator.FallbackChain{
			Strategies: []locator.LocatorStrategy{
				{Type: locator.StrategySelectorUniq, Selector: "#btn", Confidence: 0.85},
				{Type: locator.StrategyCoordinates, Confidence: 0.60},
			},
			PrimaryStrategyType: locator.StrategySelectorUniq,
			RecordedAt:          time.Now(),
		},
	}
}

func TestPutRejectsIncompleteAction(t *testing.T) {
	b := New(DefaultConfig(), nil)
	if err := b.Put(locator.CapturedAction{ActionID: "a1"}); err == nil {
		t.Fatal("expected error admitting an action with no fallback chain")
	}
}

func TestDrainYieldsFIFOWithNoDuplicates(t *testing.T) {
	b := New(DefaultConfig(), nil)
	for _, id := range []string{"a1", "a2", "a3"} {
		if err := b.Put(makeAction(id)); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}
	drained := b.Drain()
	if len(drained) != 3 {
		t.Fatalf("expected 3 actions, got %d", len(drained))
	}
	for i, id := range []string{"a1", "a2", "a3"} {
		if drained[i].ActionID != id {
			t.Errorf("position %d: want %s got %s", i, id, drained[i].ActionID)
		}
	}
	if b.Count() != 0 {
		t.Errorf("expected buffer empty after drain, got %d", b.Count())
	}
}

func TestGCEvictsDownToTargetAndNotifies(t *testing.T) {
	var evicted []string
	cfg := Config{SizeLimitBytes: 1000, GCThreshold: 0.80, GCTarget: 0.60, FixedOverhead: 100}
	b := New(cfg, func(a locator.CapturedAction) {
		evicted = append(evicted, a.ActionID)
	})

	for i := 0; i < 20; i++ {
		id := string(rune('a' + i))
		_ = b.Put(makeAction(id)) // some may be evicted along the way, ignore per-call error
	}

	if len(evicted) == 0 {
		t.Fatal("expected GC to have evicted at least one action under pressure")
	}
	if float64(b.Bytes()) > float64(cfg.SizeLimitBytes)*cfg.GCThreshold {
		t.Errorf("expected occupancy at or below GC threshold after pressure, got %d/%d", b.Bytes(), cfg.SizeLimitBytes)
	}
}

func TestByteOccupancyNeverExceedsCeilingAfterPut(t *testing.T) {
	cfg := Config{SizeLimitBytes: 500, GCThreshold: 0.80, GCTarget: 0.60, FixedOverhead: 50}
	b := New(cfg, nil)
	for i := 0; i < 50; i++ {
		id := string(rune('a' + i%26))
		_ = b.Put(makeAction(id))
		if b.Bytes() > cfg.SizeLimitBytes {
			t.Fatalf("occupancy %d exceeded ceiling %d after put", b.Bytes(), cfg.SizeLimitBytes)
		}
	}
}
