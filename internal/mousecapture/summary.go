package mousecapture

import (
	"math"
	"time"

	"github.com/brennhill/fallbackweave/internal/locator"
)

// Summarize computes the derived-on-read metrics described in spec.md
// §4.5 and §8: with zero points, pattern is "unknown", totalDistance is
// 0, and the endpoint falls back to the mousedown point (or the origin
// if even that is absent).
func Summarize(points []locator.MousePoint, downAt *locator.Point, cfg Config) locator.MouseTrailSummary {
	if len(points) == 0 {
		endpoint := locator.Point{}
		if downAt != nil {
			endpoint = *downAt
		}
		return locator.MouseTrailSummary{Endpoint: endpoint, Pattern: locator.PatternUnknown}
	}

	last := points[len(points)-1]
	endpoint := locator.Point{X: last.X, Y: last.Y}

	totalDistance := 0.0
	var velocities []float64
	for i := 1; i < len(points); i++ {
		totalDistance += dist(points[i-1].X, points[i-1].Y, points[i].X, points[i].Y)
		if points[i].Velocity > 0 {
			velocities = append(velocities, points[i].Velocity)
		}
	}

	avgVelocity := 0.0
	for _, v := range velocities {
		avgVelocity += v
	}
	if len(velocities) > 0 {
		avgVelocity /= float64(len(velocities))
	}

	directionChanges := countDirectionChanges(points, cfg.DirectionChangeAngle)
	hesitations := countHesitations(points, cfg.MovementThreshold, cfg.HesitationThreshold)
	pattern := classifyPattern(points, directionChanges, hesitations, avgVelocity)

	return locator.MouseTrailSummary{
		Endpoint:         endpoint,
		TotalDistance:    totalDistance,
		AverageVelocity:  avgVelocity,
		DirectionChanges: directionChanges,
		HesitationPoints: hesitations,
		Pattern:          pattern,
	}
}

// countDirectionChanges counts, for each interior point i, the angle
// between vectors (i-1 -> i-2) and (i-1 -> i), counting it when the
// absolute angle exceeds thresholdDeg (spec.md §4.5).
func countDirectionChanges(points []locator.MousePoint, thresholdDeg float64) int {
	count := 0
	for i := 1; i < len(points)-1; i++ {
		v1x, v1y := points[i-1].X-points[i].X, points[i-1].Y-points[i].Y
		v2x, v2y := points[i+1].X-points[i].X, points[i+1].Y-points[i].Y
		angle := angleBetween(v1x, v1y, v2x, v2y)
		if math.Abs(angle) > thresholdDeg {
			count++
		}
	}
	return count
}

func angleBetween(x1, y1, x2, y2 float64) float64 {
	m1 := math.Hypot(x1, y1)
	m2 := math.Hypot(x2, y2)
	if m1 == 0 || m2 == 0 {
		return 0
	}
	cos := (x1*x2 + y1*y2) / (m1 * m2)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// countHesitations counts contiguous runs of points with inter-point
// distance below 2x the movement threshold whose accumulated duration
// reaches durationThreshold (spec.md §4.5).
func countHesitations(points []locator.MousePoint, movementThreshold float64, durationThreshold time.Duration) int {
	count := 0
	runStart := 0
	inRun := false

	for i := 1; i < len(points); i++ {
		d := dist(points[i-1].X, points[i-1].Y, points[i].X, points[i].Y)
		if d < 2*movementThreshold {
			if !inRun {
				runStart = i - 1
				inRun = true
			}
		} else {
			if inRun {
				if runDuration(points, runStart, i-1) >= durationThreshold {
					count++
				}
			}
			inRun = false
		}
	}
	if inRun && runDuration(points, runStart, len(points)-1) >= durationThreshold {
		count++
	}
	return count
}

func runDuration(points []locator.MousePoint, start, end int) time.Duration {
	return points[end].T.Sub(points[start].T)
}

// classifyPattern applies the heuristic from spec.md §4.5.
func classifyPattern(points []locator.MousePoint, directionChanges, hesitations int, avgVelocity float64) locator.MousePattern {
	if len(points) < 2 {
		return locator.PatternUnknown
	}

	first, last := points[0], points[len(points)-1]
	straightLine := dist(first.X, first.Y, last.X, last.Y)

	furthest := 0.0
	for _, p := range points {
		d := dist(first.X, first.Y, p.X, p.Y)
		if d > furthest {
			furthest = d
		}
	}
	overshoot := 0.0
	if straightLine > 0 {
		overshoot = furthest / straightLine
	}

	switch {
	case directionChanges <= 2 && hesitations == 0 && avgVelocity > highVelocityThreshold:
		return locator.PatternDirect
	case hesitations >= 2:
		return locator.PatternHesitant
	case directionChanges >= 5 && avgVelocity < lowVelocityThreshold:
		return locator.PatternSearching
	case overshoot > 1.3:
		return locator.PatternCorrective
	case directionChanges >= 1 && directionChanges < 5 && hesitations == 0:
		return locator.PatternCurved
	default:
		return locator.PatternUnknown
	}
}

const (
	highVelocityThreshold = 400 // px/s
	lowVelocityThreshold  = 150 // px/s
)
