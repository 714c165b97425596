package evaluators

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/brennhill/fallbackweave/internal/chain"
	"github.com/brennhill/fallbackweave/internal/locator"
	"github.com/brennhill/fallbackweave/internal/transport"
)

// patternBias scales the mouse-trail-alignment term by how much a
// recorded approach pattern should be trusted to still point at the
// same element (spec.md §4.13 "evidence_scored ... mouse-trail
// alignment with pattern-based bias").
var patternBias = map[locator.MousePattern]float64{
	locator.PatternDirect:     1.0,
	locator.PatternCurved:     0.9,
	locator.PatternHesitant:   0.8,
	locator.PatternCorrective: 0.7,
	locator.PatternSearching:  0.6,
	locator.PatternUnknown:    0.5,
}

// EvidenceScored evaluates evidence_scored strategies by probing a
// concentric-ring grid of points around the recorded mouse endpoint and
// scoring whatever element answers at each point against the recorded
// element profile (spec.md §4.13 "Evidence Scored Evaluator").
type EvidenceScored struct {
	Transport transport.Transport

	RadiusStep    float64 // px between rings, default 50
	PointsPerRing int     // default 8
	Rings         int     // default 3
	Threshold     float64 // minimum confidence to report found, default 0.4
}

// NewEvidenceScored builds an EvidenceScored evaluator with spec.md
// §4.13 defaults.
func NewEvidenceScored(t transport.Transport) *EvidenceScored {
	return &EvidenceScored{
		Transport:     t,
		RadiusStep:    50,
		PointsPerRing: 8,
		Rings:         3,
		Threshold:     0.4,
	}
}

type probeCandidate struct {
	nodeID   string
	tagName  string
	id       string
	classes  []string
	x, y     float64
	minDist  float64
}

func (e *EvidenceScored) Evaluate(ctx context.Context, target transport.Target, s locator.LocatorStrategy) Result {
	start := time.Now()

	meta, ok := s.Metadata.(chain.EvidenceScoredMetadata)
	if !ok {
		return Result{Found: false, Duration: time.Since(start)}
	}

	candidates := make(map[string]*probeCandidate)
	e.probe(ctx, target, meta.Endpoint.X, meta.Endpoint.Y, meta.Endpoint, candidates)
	for ring := 1; ring <= e.rings(); ring++ {
		radius := float64(ring) * e.radiusStep()
		for i := 0; i < e.pointsPerRing(); i++ {
			angle := 2 * math.Pi * float64(i) / float64(e.pointsPerRing())
			x := meta.Endpoint.X + radius*math.Cos(angle)
			y := meta.Endpoint.Y + radius*math.Sin(angle)
			e.probe(ctx, target, x, y, meta.Endpoint, candidates)
		}
	}
	if len(candidates) == 0 {
		return Result{Found: false, Duration: time.Since(start)}
	}

	var best *probeCandidate
	var bestScore float64
	for _, c := range candidates {
		score := e.score(c, meta)
		if best == nil || score > bestScore {
			best, bestScore = c, score
		}
	}
	if bestScore < e.Threshold {
		return Result{Found: false, Duration: time.Since(start)}
	}
	return Result{
		Found:       true,
		Confidence:  bestScore,
		ClickPoint:  &locator.Point{X: best.x, Y: best.y},
		BackendNode: best.nodeID,
		Duration:    time.Since(start),
	}
}

func (e *EvidenceScored) probe(ctx context.Context, target transport.Target, x, y float64, endpoint locator.Point, out map[string]*probeCandidate) {
	raw, err := e.Transport.Send(ctx, target, "dom.nodeAtPoint", map[string]any{"x": x, "y": y})
	if err != nil {
		return
	}
	var node struct {
		TagName string `json:"tagName"`
		NodeID  string `json:"nodeId"`
		ID      string `json:"id"`
		Class   string `json:"class"`
	}
	if decode(raw, &node) != nil || node.NodeID == "" {
		return
	}
	d := math.Hypot(x-endpoint.X, y-endpoint.Y)
	existing, ok := out[node.NodeID]
	if !ok {
		out[node.NodeID] = &probeCandidate{
			nodeID:  node.NodeID,
			tagName: node.TagName,
			id:      node.ID,
			classes: strings.Fields(node.Class),
			x:       x, y: y,
			minDist: d,
		}
		return
	}
	if d < existing.minDist {
		existing.x, existing.y, existing.minDist = x, y, d
	}
}

func (e *EvidenceScored) score(c *probeCandidate, meta chain.EvidenceScoredMetadata) float64 {
	var total float64

	if meta.AttributeProfile["tagName"] != "" && strings.EqualFold(c.tagName, meta.AttributeProfile["tagName"]) {
		total += 0.25
	}
	if meta.AttributeProfile["id"] != "" && c.id == meta.AttributeProfile["id"] {
		total += 0.20
	}
	if recordedClasses := strings.Fields(meta.AttributeProfile["class"]); len(recordedClasses) > 0 {
		total += 0.15 * classOverlap(recordedClasses, c.classes)
	}

	maxRadius := e.radiusStep() * float64(e.rings())
	proximity := 1 - c.minDist/maxRadius
	if proximity < 0 {
		proximity = 0
	}
	total += 0.20 * proximity

	bias := patternBias[meta.Pattern]
	if bias == 0 {
		bias = patternBias[locator.PatternUnknown]
	}
	total += 0.20 * trailAlignment(meta.TrailTail, c.x, c.y) * bias

	return clamp01(total)
}

// trailAlignment is the cosine of the last recorded trail segment's
// direction against the vector from the trail's last point to the
// candidate center, rescaled from [-1,1] to [0,1] (spec.md §4.13). Fewer
// than two trail points carry no direction, so the term contributes nothing.
func trailAlignment(tail []locator.MousePoint, cx, cy float64) float64 {
	if len(tail) < 2 {
		return 0
	}
	last := tail[len(tail)-1]
	prev := tail[len(tail)-2]
	dirX, dirY := last.X-prev.X, last.Y-prev.Y
	toX, toY := cx-last.X, cy-last.Y
	dirMag := math.Hypot(dirX, dirY)
	toMag := math.Hypot(toX, toY)
	if dirMag == 0 || toMag == 0 {
		return 0
	}
	cos := (dirX*toX + dirY*toY) / (dirMag * toMag)
	return (cos + 1) / 2
}

func classOverlap(recorded, current []string) float64 {
	if len(recorded) == 0 {
		return 0
	}
	have := make(map[string]bool, len(current))
	for _, c := range current {
		have[c] = true
	}
	matched := 0
	for _, c := range recorded {
		if have[c] {
			matched++
		}
	}
	return float64(matched) / float64(len(recorded))
}

func (e *EvidenceScored) radiusStep() float64 {
	if e.RadiusStep <= 0 {
		return 50
	}
	return e.RadiusStep
}

func (e *EvidenceScored) pointsPerRing() int {
	if e.PointsPerRing <= 0 {
		return 8
	}
	return e.PointsPerRing
}

func (e *EvidenceScored) rings() int {
	if e.Rings <= 0 {
		return 3
	}
	return e.Rings
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
