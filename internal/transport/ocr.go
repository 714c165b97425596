package transport

import (
	"context"

	"github.com/brennhill/fallbackweave/internal/locator"
)

// NullOCREngine always reports no matches. cmd/fallbackweave wires it in
// as its OCR engine (spec.md §1: the OCR engine itself is out of scope,
// treated purely as a port).
type NullOCREngine struct{}

func (NullOCREngine) Recognize(context.Context, []byte) ([]locator.OCRResult, error) {
	return nil, nil
}

// StaticOCREngine returns a fixed, caller-supplied result set regardless
// of input image, for simulating a live OCR port in tests.
type StaticOCREngine struct {
	Results []locator.OCRResult
	Err     error
}

func (s StaticOCREngine) Recognize(context.Context, []byte) ([]locator.OCRResult, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Results, nil
}
