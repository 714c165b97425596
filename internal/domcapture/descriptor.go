package domcapture

import (
	"time"

	"github.com/brennhill/fallbackweave/internal/locator"
)

// RawEvent is the page-side interceptor's report of one captured DOM
// event (spec.md §4.4). The transport is responsible for delivering
// this shape; no wire format is mandated (spec.md §6), so this struct
// is this engine's chosen shape for it.
type RawEvent struct {
	EventType   string
	Timestamp   time.Time
	ClickCount  int
	InputType   string // input[type=] when applicable
	Checked     bool
	FileName    string
	RawValue    string

	Target       AncestorNode
	AncestorChain []AncestorNode // root..target inclusive
	NameUnique   bool            // whether Target.Name is unique among siblings in scope

	Attributes     map[string]string
	DataAttributes map[string]string
	Role           string

	NameSources NameSources

	BoundingRect    locator.BBox
	ClickPoint      locator.Point
	IsInShadowDOM   bool
	ShadowHostChain []string
	IframeChain     []locator.IframeFrame
	FormID          string
	FormAction      string
}

// BuildDescriptor turns one RawEvent into an immutable ElementDescriptor
// (spec.md §4.4).
func BuildDescriptor(ev RawEvent) locator.ElementDescriptor {
	selector, matchKind := PreferredSelector(ev.Target, ev.NameUnique, ev.AncestorChain)
	_ = matchKind

	desc := locator.ElementDescriptor{
		TagName:         ev.Target.TagName,
		ID:              ev.Target.ID,
		ClassList:       ev.Target.ClassList,
		Attributes:      ev.Attributes,
		DataAttributes:  ev.DataAttributes,
		TestID:          ev.Target.TestID,
		Role:            ev.Role,
		AccessibleName:  AccessibleName(ev.NameSources),
		Text:            ev.NameSources.TextContent,
		Placeholder:     ev.NameSources.Placeholder,
		BoundingRect:    ev.BoundingRect,
		ClickPoint:      ev.ClickPoint,
		IsInShadowDOM:   ev.IsInShadowDOM,
		ShadowHostChain: ev.ShadowHostChain,
		IframeChain:     ev.IframeChain,
		SelectorPath:    selector,
		XPath:           BuildXPath(ev.AncestorChain),
	}
	if ev.FormID != "" || ev.FormAction != "" {
		desc.FormContext = &locator.FormContext{FormID: ev.FormID, FormAction: ev.FormAction}
	}
	return desc
}

// ExtractedValue returns the capture-time value for ev, applying the
// type-specific redaction rules.
func ExtractedValue(ev RawEvent) string {
	return ExtractValue(ev.InputType, ev.RawValue, ev.Checked, ev.FileName)
}
