package scrape

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarkerDetectorNeedsJS(t *testing.T) {
	t.Parallel()

	padding := strings.Repeat("<p>contenido</p>", 100)
	withMarker := []byte("<html><body><script>let dataProd = {};</script>" + padding + "</body></html>")
	withoutMarker := []byte("<html><body>" + padding + "</body></html>")

	tests := []struct {
		name     string
		minBytes int
		markers  []string
		body     []byte
		want     bool
	}{
		{"marker present", 0, []string{"dataProd"}, withMarker, false},
		{"marker absent", 0, []string{"dataProd"}, withoutMarker, true},
		{"body too small", 1 << 20, []string{"dataProd"}, withMarker, true},
		{"no markers configured", 0, nil, withoutMarker, false},
		{"marker match is case-insensitive", 0, []string{"DATAPROD"}, withMarker, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := NewMarkerDetector(tt.minBytes, tt.markers)
			got := d.NeedsJS(context.Background(), Page{Body: tt.body})
			require.Equal(t, tt.want, got)
		})
	}
}
