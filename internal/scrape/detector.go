package scrape

import (
	"bytes"
	"context"
	"strings"
)

// MarkerDetector implements Detector using simple HTML signals: a snapshot
// needs JS rendering when it is suspiciously small or when it lacks the
// markers a server-rendered product page always carries.
type MarkerDetector struct {
	minHTMLBytes int
	markers      [][]byte
}

// NewMarkerDetector constructs a Detector with the configured thresholds.
func NewMarkerDetector(minBytes int, markers []string) *MarkerDetector {
	lowerMarkers := make([][]byte, 0, len(markers))
	for _, m := range markers {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		lowerMarkers = append(lowerMarkers, bytes.ToLower([]byte(m)))
	}
	return &MarkerDetector{
		minHTMLBytes: minBytes,
		markers:      lowerMarkers,
	}
}

// NeedsJS inspects the plain-HTTP snapshot for signals that the product data
// only materializes client-side.
func (d *MarkerDetector) NeedsJS(_ context.Context, page Page) bool {
	if d == nil {
		return false
	}
	if d.minHTMLBytes > 0 && len(page.Body) < d.minHTMLBytes {
		return true
	}
	return d.missingMarkers(page.Body)
}

func (d *MarkerDetector) missingMarkers(body []byte) bool {
	if len(d.markers) == 0 {
		return false
	}
	lowerBody := bytes.ToLower(body)
	for _, m := range d.markers {
		if !bytes.Contains(lowerBody, m) {
			return true
		}
	}
	return false
}
