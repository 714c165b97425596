// Package domcapture registers for user-input events in the capture
// phase and synchronously builds a rich ElementDescriptor for each one
// (spec.md §4.4). Capture-phase registration happens page-side (the
// transport's responsibility); this package owns the part that is
// actually hard to get right: selector/xpath generation over an
// ancestor chain, accessible-name cascades, shadow/iframe chain
// handling, and value redaction.
package domcapture

import (
	"strconv"
	"strings"
)

// AncestorNode is one node on the path from the document root down to
// (and including) the captured target, as reported by the page-side
// interceptor.
type AncestorNode struct {
	TagName    string
	ID         string
	TestID     string
	Name       string // the "name" attribute, if any
	ClassList  []string
	SiblingTag string // this node's tag among siblings sharing it
	SiblingIdx int     // 1-based position among same-tag siblings
}

// dynamicClassPrefixes are framework-generated or state classes ignored
// when building a stable path (spec.md §4.4).
var dynamicClassPrefixes = []string{"_", "css-", "jsx-", "sc-"}
var stateClassNames = map[string]bool{"active": true, "hover": true, "focus": true, "focused": true, "selected": true}

func isFrameworkClass(c string) bool {
	if c == "" {
		return true
	}
	if stateClassNames[strings.ToLower(c)] {
		return true
	}
	for _, p := range dynamicClassPrefixes {
		if strings.HasPrefix(c, p) {
			return true
		}
	}
	// Hashed-looking classes: short alnum blob with digits, e.g. "btn_x1f9a2".
	if looksHashed(c) {
		return true
	}
	return false
}

func looksHashed(c string) bool {
	if len(c) < 4 {
		return false
	}
	digits, letters := 0, 0
	for _, r := range c {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			letters++
		}
	}
	return digits > 0 && digits >= len(c)/3 && letters > 0
}

// StableClasses filters out framework-generated/state classes.
func StableClasses(classes []string) []string {
	var out []string
	for _, c := range classes {
		if !isFrameworkClass(c) {
			out = append(out, c)
		}
	}
	return out
}

// BuildSelectorPath walks chain from the target backwards (chain's last
// element is the target) and produces a CSS selector, preferring a
// unique #id ancestor to terminate on, and an nth-child suffix only
// when the sibling tag is not unique (spec.md §4.4).
func BuildSelectorPath(chain []AncestorNode) string {
	if len(chain) == 0 {
		return ""
	}

	var segments []string
	for i := len(chain) - 1; i >= 0; i-- {
		n := chain[i]
		if n.ID != "" {
			segments = append([]string{"#" + n.ID}, segments...)
			break
		}
		seg := strings.ToLower(n.TagName)
		if n.SiblingIdx > 1 || hasSiblingOfSameTag(n) {
			seg += ":nth-child(" + strconv.Itoa(n.SiblingIdx) + ")"
		}
		segments = append([]string{seg}, segments...)
	}
	return strings.Join(segments, " > ")
}

func hasSiblingOfSameTag(n AncestorNode) bool {
	return n.SiblingTag == n.TagName && n.SiblingIdx >= 1
}

// BuildXPath is the XPath equivalent of BuildSelectorPath (spec.md §4.4
// "identical ancestry walk in XPath syntax").
func BuildXPath(chain []AncestorNode) string {
	if len(chain) == 0 {
		return ""
	}
	var segments []string
	for i := len(chain) - 1; i >= 0; i-- {
		n := chain[i]
		if n.ID != "" {
			segments = append([]string{"//*[@id='" + n.ID + "']"}, segments...)
			break
		}
		tag := strings.ToLower(n.TagName)
		if tag == "" {
			tag = "*"
		}
		seg := tag + "[" + strconv.Itoa(max1(n.SiblingIdx)) + "]"
		segments = append([]string{seg}, segments...)
	}
	return "/" + strings.Join(segments, "/")
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// PreferredSelector picks the best static selector per the preference
// cascade in spec.md §4.4: unique #id, [data-testid], unique [name],
// then the ancestor path.
func PreferredSelector(target AncestorNode, nameIsUnique bool, chain []AncestorNode) (selector, matchKind string) {
	if target.ID != "" {
		return "#" + target.ID, "id"
	}
	if target.TestID != "" {
		return "[data-testid=" + target.TestID + "]", "testid"
	}
	if target.Name != "" && nameIsUnique {
		return "[name=" + target.Name + "]", "name"
	}
	return BuildSelectorPath(chain), "path"
}
