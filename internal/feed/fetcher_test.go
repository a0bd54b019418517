package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCollyFetcherFetch(t *testing.T) {
	t.Parallel()

	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.UserAgent()
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	f := NewCollyFetcher("feedxml-test/1.0", 5*time.Second, zap.NewNop())
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "feedxml-test/1.0", gotAgent)

	records, err := Parse(body)
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestCollyFetcherStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewCollyFetcher("feedxml-test/1.0", 5*time.Second, zap.NewNop())
	_, err := f.Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrFetch)
}

func TestCollyFetcherContextCancel(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	f := NewCollyFetcher("feedxml-test/1.0", 10*time.Second, zap.NewNop())
	_, err := f.Fetch(ctx, srv.URL)
	require.Error(t, err)
}
