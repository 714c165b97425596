package domcapture

import "path/filepath"

// RedactionToken replaces a password value at capture time (spec.md
// §4.4). Replay is unaffected — redaction happens only on capture.
const RedactionToken = "[redacted]"

// ExtractValue applies the type-specific value-extraction rules from
// spec.md §4.4.
func ExtractValue(inputType string, rawValue string, checked bool, fileName string) string {
	switch inputType {
	case "password":
		return RedactionToken
	case "checkbox", "radio":
		if checked {
			return "checked"
		}
		return "unchecked"
	case "file":
		if fileName == "" {
			return ""
		}
		return filepath.Base(fileName)
	default:
		return rawValue
	}
}
