package headless

import (
	"bytes"

	"houzz-pro-scraper/internal/scraper"
)

// Detector flags responses that look like anti-scraping interstitials
// rather than profile markup, so the caller can refetch through a real
// browser.
type Detector struct {
	BodyLengthThreshold int
}

// NewDetector creates a Detector with a sane default threshold.
func NewDetector(threshold int) *Detector {
	if threshold <= 0 {
		threshold = 2048
	}
	return &Detector{BodyLengthThreshold: threshold}
}

// blockMarkers appear in the directory's throttling and captcha pages.
var blockMarkers = [][]byte{
	[]byte("captcha"),
	[]byte("Press & Hold"),
	[]byte("Access to this page has been denied"),
	[]byte("px-captcha"),
}

// ShouldPromote reports whether resp warrants a headless refetch: an OK
// status carrying a suspiciously small body or a known block marker.
func (d *Detector) ShouldPromote(resp scraper.FetchResponse) bool {
	if resp.StatusCode != 200 {
		return false
	}
	if len(resp.Body) == 0 {
		return true
	}
	for _, marker := range blockMarkers {
		if bytes.Contains(resp.Body, marker) {
			return true
		}
	}
	return len(resp.Body) < d.BodyLengthThreshold
}
