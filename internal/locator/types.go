// Package locator holds the shared data model for captured actions,
// evidence bundles, and fallback chains. Every other package imports
// these types rather than defining its own.
package locator

import "time"

// StrategyType is the closed enumeration of locator families.
type StrategyType string

const (
	StrategySemanticRole  StrategyType = "semantic_role"
	StrategySemanticText  StrategyType = "semantic_text"
	StrategySelectorUniq  StrategyType = "selector_unique"
	StrategyEvidenceScore StrategyType = "evidence_scored"
	StrategySelectorPath  StrategyType = "selector_path"
	StrategyOCRText       StrategyType = "ocr_text"
	StrategyCoordinates   StrategyType = "coordinates"
)

// BaseWeight is the fixed per-type weight from spec.md §3.
var BaseWeight = map[StrategyType]float64{
	StrategySemanticRole:  0.95,
	StrategySemanticText:  0.90,
	StrategySelectorUniq:  0.85,
	StrategyEvidenceScore: 0.80,
	StrategySelectorPath:  0.75,
	StrategyOCRText:       0.70,
	StrategyCoordinates:   0.60,
}

// strategyCategory buckets the seven types into the five diversity
// categories used by the chain builder (spec.md §4.11 step 4).
var strategyCategory = map[StrategyType]string{
	StrategySemanticRole:  "semantic",
	StrategySemanticText:  "semantic",
	StrategySelectorUniq:  "selector",
	StrategySelectorPath:  "selector",
	StrategyEvidenceScore: "evidence",
	StrategyOCRText:       "vision",
	StrategyCoordinates:   "coordinates",
}

// Category returns the diversity category for a strategy type.
func (t StrategyType) Category() string {
	return strategyCategory[t]
}

// Valid reports whether t is one of the seven known strategy types.
func (t StrategyType) Valid() bool {
	_, ok := BaseWeight[t]
	return ok
}

// SelectorMetadata is the metadata shape for selector_unique and
// selector_path strategies.
type SelectorMetadata struct {
	Selector  string `json:"selector"`
	XPath     string `json:"xpath,omitempty"`
	NthChild  bool   `json:"nthChild,omitempty"`
	MatchKind string `json:"matchKind,omitempty"` // "id", "testid", "name", "path"
}

// SemanticMetadata is the metadata shape for semantic_role/semantic_text.
type SemanticMetadata struct {
	Role           string `json:"role,omitempty"`
	AccessibleName string `json:"accessibleName,omitempty"`
	Text           string `json:"text,omitempty"`
	Label          string `json:"label,omitempty"`
	Placeholder    string `json:"placeholder,omitempty"`
}

// OCRMetadata is the metadata shape for ocr_text strategies.
type OCRMetadata struct {
	Text       string  `json:"text"`
	BBox       BBox    `json:"bbox"`
	OCRConf    float64 `json:"ocrConfidence"`
	LiveSource bool    `json:"liveSource"` // false when estimated from a cached OCR pass
}

// EvidenceScoredMetadata is the metadata shape for evidence_scored strategies.
type EvidenceScoredMetadata struct {
	Endpoint         Point            `json:"endpoint"`
	TrailTail        []MousePoint     `json:"trailTail,omitempty"`
	Pattern          MousePattern     `json:"pattern"`
	AttributeProfile map[string]string `json:"attributeProfile,omitempty"`
}

// CoordinatesMetadata is the metadata shape for coordinates strategies.
type CoordinatesMetadata struct {
	Point Point `json:"point"`
}

// LocatorStrategy is one candidate/fallback locator.
type LocatorStrategy struct {
	Type       StrategyType `json:"type"`
	Selector   string       `json:"selector,omitempty"`
	Metadata   any          `json:"metadata"`
	Confidence float64      `json:"confidence"`
}

// DedupeKey returns the key used for exact-dedupe (spec.md §4.11 step 1).
func (s LocatorStrategy) DedupeKey() string {
	if s.Selector != "" {
		return string(s.Type) + "|" + s.Selector
	}
	return string(s.Type) + "|" + stringifyMetadata(s.Metadata)
}

// FallbackChain is an ordered, scored, deduplicated sequence of locator
// strategies recorded with one captured action.
type FallbackChain struct {
	Strategies          []LocatorStrategy `json:"strategies"`
	PrimaryStrategyType StrategyType       `json:"primaryStrategyType"`
	RecordedAt          time.Time          `json:"recordedAt"`
}

// BBox is an image-space or viewport-space bounding box.
type BBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Point is a viewport coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// EventType is the closed set of capturable user actions.
type EventType string

const (
	EventClick    EventType = "click"
	EventTypeText EventType = "type"
	EventSelect   EventType = "select"
	EventSubmit   EventType = "submit"
	EventNavigate EventType = "navigate"
	EventScroll   EventType = "scroll"
)

// FormContext describes the enclosing form, when present.
type FormContext struct {
	FormID     string `json:"formId,omitempty"`
	FormAction string `json:"formAction,omitempty"`
}

// IframeFrame identifies one ancestor frame in an iframe chain.
type IframeFrame struct {
	Src   string `json:"src,omitempty"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Index int    `json:"index"`
}

// ElementDescriptor is the rich, immutable element snapshot captured by
// the DOM Capture Layer.
type ElementDescriptor struct {
	TagName         string            `json:"tagName"`
	ID              string            `json:"id,omitempty"`
	ClassList       []string          `json:"classList,omitempty"`
	Attributes      map[string]string `json:"attributes,omitempty"`
	DataAttributes  map[string]string `json:"dataAttributes,omitempty"`
	TestID          string            `json:"testId,omitempty"`
	Role            string            `json:"role,omitempty"`
	AccessibleName  string            `json:"accessibleName,omitempty"`
	Text            string            `json:"text,omitempty"`
	Placeholder     string            `json:"placeholder,omitempty"`
	BoundingRect    BBox              `json:"boundingRect"`
	ClickPoint      Point             `json:"clickPoint"`
	IsInShadowDOM   bool              `json:"isInShadowDOM"`
	ShadowHostChain []string          `json:"shadowHostChain,omitempty"`
	IframeChain     []IframeFrame     `json:"iframeChain,omitempty"`
	FormContext     *FormContext      `json:"formContext,omitempty"`
	SelectorPath    string            `json:"selectorPath,omitempty"`
	XPath           string            `json:"xpath,omitempty"`
}

// MousePattern classifies the recorded approach to an element.
type MousePattern string

const (
	PatternDirect     MousePattern = "direct"
	PatternCurved     MousePattern = "curved"
	PatternSearching  MousePattern = "searching"
	PatternHesitant   MousePattern = "hesitant"
	PatternCorrective MousePattern = "corrective"
	PatternUnknown    MousePattern = "unknown"
)

// MousePoint is one sample in a mouse trail.
type MousePoint struct {
	X            float64   `json:"x"`
	Y            float64   `json:"y"`
	T            time.Time `json:"t"`
	Velocity     float64   `json:"velocity,omitempty"`
	Acceleration float64   `json:"acceleration,omitempty"`
	Pressed      bool      `json:"pressed,omitempty"`
}

// MouseTrailSummary is the derived-on-read summary of a mouse trail.
type MouseTrailSummary struct {
	Endpoint         Point        `json:"endpoint"`
	TotalDistance    float64      `json:"totalDistance"`
	AverageVelocity  float64      `json:"averageVelocity"`
	DirectionChanges int          `json:"directionChanges"`
	HesitationPoints int          `json:"hesitationPoints"`
	Pattern          MousePattern `json:"pattern"`
}

// MouseEvidence is the mouse-layer contribution to an evidence bundle.
type MouseEvidence struct {
	Trail   []MousePoint      `json:"trail"`
	Summary MouseTrailSummary `json:"summary"`
}

// OCRResult is one recognized text region.
type OCRResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // 0..100
	BBox       BBox    `json:"bbox"`
}

// VisionEvidence is the vision-layer contribution to an evidence bundle.
type VisionEvidence struct {
	Results     []OCRResult `json:"results"`
	Fingerprint string      `json:"fingerprint"`
	CapturedAt  time.Time   `json:"capturedAt"`
	FromCache   bool        `json:"fromCache"`
}

// TrackedRequest is one fetch/XHR observed by the network layer.
type TrackedRequest struct {
	ID        string     `json:"id"`
	URL       string     `json:"url"`
	Method    string     `json:"method"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Status    *int       `json:"status,omitempty"`
	Pending   bool       `json:"pending"`
	Type      string     `json:"type"`
}

// NetworkEvidence is the network-layer contribution to an evidence bundle.
type NetworkEvidence struct {
	PendingCount    int    `json:"pendingCount"`
	NetworkIdleTime int64  `json:"networkIdleTimeMs"`
	PageLoadState   string `json:"pageLoadState"`
}

// EvidenceBundle is the union of per-layer evidence owned by one
// CapturedAction.
type EvidenceBundle struct {
	Dom     ElementDescriptor
	Vision  *VisionEvidence
	Mouse   *MouseEvidence
	Network *NetworkEvidence
}

// CapturedAction is one recorded user action with its fallback chain.
type CapturedAction struct {
	ActionID        string          `json:"actionId"`
	Timestamp       time.Time       `json:"timestamp"`
	EventType       EventType       `json:"eventType"`
	Value           string          `json:"value,omitempty"`
	DomEvidence     ElementDescriptor `json:"domEvidence"`
	VisionEvidence  *VisionEvidence `json:"visionEvidence,omitempty"`
	MouseEvidence   *MouseEvidence  `json:"mouseEvidence,omitempty"`
	NetworkEvidence *NetworkEvidence `json:"networkEvidence,omitempty"`
	FallbackChain   FallbackChain   `json:"fallbackChain"`
}

// SessionState is the recording session lifecycle (spec.md §3).
type SessionState string

const (
	StateIdle         SessionState = "idle"
	StateInitializing SessionState = "initializing"
	StateRecording     SessionState = "recording"
	StatePaused        SessionState = "paused"
	StateFinalizing    SessionState = "finalizing"
	StateCompleted     SessionState = "completed"
	StateError         SessionState = "error"
)

// CommandError is the error envelope for the Session control contract
// (spec.md §6).
type CommandError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *CommandError) Error() string { return e.Code + ": " + e.Message }

// Command error codes (spec.md §6).
const (
	CodeAlreadyRunning = "already_running"
	CodeNotRunning     = "not_running"
	CodeWrongMode      = "wrong_mode"
	CodeInitFailed     = "init_failed"
	CodeInvalidArg     = "invalid_arg"
)
