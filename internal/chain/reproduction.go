package chain

import "github.com/brennhill/fallbackweave/internal/locator"

// ToReproductionSelectors turns one strategy into the {id|cssPath|text|
// role|ariaLabel} shape an external test-generation consumer understands,
// adapted from the teacher's
// internal/tools/interact/selector.go ParseSelectorForReproduction, which
// performs the same string-selector-to-map translation for hand-written
// "text=" / "role=" selector strings. Here the translation runs off the
// already-structured LocatorStrategy instead of a flat string, so no
// prefix-parsing is needed for semantic/OCR strategies.
func ToReproductionSelectors(s locator.LocatorStrategy) map[string]any {
	out := map[string]any{}

	switch s.Type {
	case locator.StrategySelectorUniq:
		if len(s.Selector) > 1 && s.Selector[0] == '#' {
			out["id"] = s.Selector[1:]
		} else {
			out["cssPath"] = s.Selector
		}
	case locator.StrategySelectorPath:
		out["cssPath"] = s.Selector
	case locator.StrategySemanticRole:
		if meta, ok := s.Metadata.(map[string]string); ok {
			if name, ok := meta["name"]; ok {
				out["ariaLabel"] = name
			}
			if role, ok := meta["role"]; ok {
				out["role"] = map[string]any{"role": role}
			}
		}
	case locator.StrategySemanticText:
		if meta, ok := s.Metadata.(map[string]string); ok {
			if text, ok := meta["text"]; ok {
				out["text"] = text
			} else if ph, ok := meta["placeholder"]; ok {
				out["ariaLabel"] = ph
			}
		}
	case locator.StrategyOCRText:
		if meta, ok := s.Metadata.(locator.OCRMetadata); ok && meta.Text != "" {
			out["text"] = meta.Text
		}
	case locator.StrategyEvidenceScore, locator.StrategyCoordinates:
		// no stable selector to export; reproduction consumers fall back
		// to coordinates themselves.
	}
	return out
}
