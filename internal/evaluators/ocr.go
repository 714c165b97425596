package evaluators

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/brennhill/fallbackweave/internal/chain"
	"github.com/brennhill/fallbackweave/internal/locator"
	"github.com/brennhill/fallbackweave/internal/transport"
	"github.com/brennhill/fallbackweave/internal/visioncapture"
)

// proximityTolerance is the pixel radius within which a recognized
// result's recorded position still counts as "the same place" (spec.md
// §4.13 "position-proximity boost within 100px tolerance").
const proximityTolerance = 100.0

// fuzzyMatchFloor is the minimum normalized-similarity score accepted as
// a fuzzy match (spec.md §4.13 "fuzzy Levenshtein threshold 0.8").
const fuzzyMatchFloor = 0.8

type matchKind int

const (
	matchNone matchKind = iota
	matchFuzzy
	matchNormalized
	matchContains
	matchExact
)

func (k matchKind) quality() float64 {
	switch k {
	case matchExact:
		return 1.0
	case matchContains:
		return 0.85
	case matchNormalized:
		return 0.70
	case matchFuzzy:
		return 0.55
	default:
		return 0
	}
}

// OCR evaluates ocr_text strategies by re-running vision capture over
// the recorded region and matching the recorded text against the fresh
// OCR results, escalating through exact, substring, normalized-case and
// finally fuzzy matching (spec.md §4.13 "OCR Evaluator").
type OCR struct {
	Vision *visioncapture.Layer
}

func (e *OCR) Evaluate(ctx context.Context, target transport.Target, s locator.LocatorStrategy) Result {
	start := time.Now()

	meta, ok := s.Metadata.(locator.OCRMetadata)
	if !ok || meta.Text == "" {
		return Result{Found: false, Duration: time.Since(start)}
	}

	ev, err := e.Vision.Capture(ctx, target, "", meta.BBox, time.Now())
	if err != nil {
		return failed(start, err)
	}

	var best *locator.OCRResult
	var bestKind matchKind
	for i := range ev.Results {
		r := &ev.Results[i]
		kind := classify(meta.Text, r.Text)
		if kind == matchNone {
			continue
		}
		if best == nil || kind > bestKind {
			best, bestKind = r, kind
		}
	}
	if best == nil {
		return Result{Found: false, Duration: time.Since(start)}
	}

	proximity := 1.0
	recordedCenter := locator.Point{X: meta.BBox.X + meta.BBox.W/2, Y: meta.BBox.Y + meta.BBox.H/2}
	foundCenter := locator.Point{X: best.BBox.X + best.BBox.W/2, Y: best.BBox.Y + best.BBox.H/2}
	d := math.Hypot(recordedCenter.X-foundCenter.X, recordedCenter.Y-foundCenter.Y)
	if d > proximityTolerance {
		proximity = proximityTolerance / d
	}

	f := clamp01((best.Confidence/100)*0.4 + bestKind.quality()*0.4 + proximity*0.2)
	conf := 0.70 + 0.20*f

	return Result{
		Found:      true,
		Confidence: clamp01(conf),
		ClickPoint: &foundCenter,
		Duration:   time.Since(start),
	}
}

func classify(want, got string) matchKind {
	if want == got {
		return matchExact
	}
	if strings.Contains(got, want) || strings.Contains(want, got) {
		return matchContains
	}
	if strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(got)) {
		return matchNormalized
	}
	if chain.NormalizedSimilarity(strings.ToLower(want), strings.ToLower(got)) >= fuzzyMatchFloor {
		return matchFuzzy
	}
	return matchNone
}
