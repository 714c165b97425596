package domcapture

import "strings"

// NameSources carries every signal the accessible-name cascade draws
// from (spec.md §4.4: aria-label -> aria-labelledby referent -> <label>
// -> title -> placeholder -> text content (button/link) -> value).
// The value step applies to every <input>: NameSources carries no input
// type, so it is not limited to submit inputs.
type NameSources struct {
	AriaLabel        string
	AriaLabelledByText string // text of the node(s) referenced by aria-labelledby, already resolved
	AssociatedLabel  string // text of the <label for=...> or ancestor <label>
	Title            string
	Placeholder      string
	TextContent      string
	Value            string
	TagName          string
}

// AccessibleName resolves the accessible name cascade.
func AccessibleName(s NameSources) string {
	if v := strings.TrimSpace(s.AriaLabel); v != "" {
		return v
	}
	if v := strings.TrimSpace(s.AriaLabelledByText); v != "" {
		return v
	}
	if v := strings.TrimSpace(s.AssociatedLabel); v != "" {
		return v
	}
	if v := strings.TrimSpace(s.Title); v != "" {
		return v
	}
	if v := strings.TrimSpace(s.Placeholder); v != "" {
		return v
	}
	tag := strings.ToLower(s.TagName)
	if tag == "button" || tag == "a" {
		if v := strings.TrimSpace(s.TextContent); v != "" {
			return v
		}
	}
	if tag == "input" {
		if v := strings.TrimSpace(s.Value); v != "" {
			return v
		}
	}
	return ""
}
