package visioncapture

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/brennhill/fallbackweave/internal/locator"
)

// Fingerprint derives a stable cache key for a region of a page, the same
// way the teacher's OCR handler deduplicates identical images by content
// hash before resubmitting them to the vision pipeline
// (horos47/handlers/ocr.go computeFileHash). Here the hash covers the
// region geometry and the page URL rather than image bytes, since a
// screenshot is not taken until the cache is known to have missed.
func Fingerprint(pageURL string, box locator.BBox) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%.1f|%.1f|%.1f|%.1f", pageURL, box.X, box.Y, box.W, box.H)
	return hex.EncodeToString(h.Sum(nil))[:24]
}
