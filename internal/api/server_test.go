package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/feedsmith/feedxml-mx/internal/progress"
	"github.com/feedsmith/feedxml-mx/internal/progress/sinks"
)

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := NewServer(sinks.NewSnapshotSink(), prometheus.NewRegistry(), zap.NewNop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestProgressSnapshot(t *testing.T) {
	t.Parallel()

	snapshot := sinks.NewSnapshotSink()
	id := uuid.New()
	require.NoError(t, snapshot.Consume(context.Background(), progress.Event{
		RunID:     progress.UUIDToBytes(id),
		TS:        time.Now().UTC(),
		Stage:     progress.StagePageDone,
		ProductID: "1916",
	}))

	srv := NewServer(snapshot, prometheus.NewRegistry(), zap.NewNop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var snap sinks.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Equal(t, id.String(), snap.RunID)
	require.EqualValues(t, 1, snap.PagesDone)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	sink, err := sinks.NewPrometheusSink(registry)
	require.NoError(t, err)
	require.NoError(t, sink.Consume(context.Background(), progress.Event{
		RunID: progress.UUIDToBytes(uuid.New()),
		TS:    time.Now().UTC(),
		Stage: progress.StageRunStart,
	}))

	srv := NewServer(sinks.NewSnapshotSink(), registry, zap.NewNop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "feedxml_runs_started_total 1")
}
