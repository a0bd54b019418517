package progress_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/feedsmith/feedxml-mx/internal/progress"
)

type captureSink struct {
	mu     sync.Mutex
	events []progress.Event
}

func (s *captureSink) Consume(_ context.Context, evt progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return nil
}

func (s *captureSink) Close(context.Context) error { return nil }

func (s *captureSink) all() []progress.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]progress.Event(nil), s.events...)
}

func newEvent(stage progress.Stage) progress.Event {
	return progress.Event{
		RunID: progress.UUIDToBytes(uuid.New()),
		TS:    time.Now().UTC(),
		Stage: stage,
	}
}

func TestHubDeliversInOrder(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := progress.NewHub(progress.Config{}, sink)

	hub.Emit(newEvent(progress.StageRunStart))
	evt := newEvent(progress.StagePageDone)
	evt.ProductID = "1916"
	evt.StatusClass = progress.Status2xx
	hub.Emit(evt)
	hub.Emit(newEvent(progress.StageRunDone))

	require.NoError(t, hub.Close(context.Background()))

	got := sink.all()
	require.Len(t, got, 3)
	require.Equal(t, progress.StageRunStart, got[0].Stage)
	require.Equal(t, progress.StagePageDone, got[1].Stage)
	require.Equal(t, progress.StageRunDone, got[2].Stage)
}

func TestHubDropsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := progress.NewHub(progress.Config{}, sink)

	hub.Emit(progress.Event{}) // missing run id and timestamp
	evt := newEvent(progress.StagePageDone)
	evt.ProductID = "" // page events need a product id
	hub.Emit(evt)

	require.NoError(t, hub.Close(context.Background()))
	require.Empty(t, sink.all())
}

func TestHubEmitAfterCloseIsNoop(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := progress.NewHub(progress.Config{}, sink)
	require.NoError(t, hub.Close(context.Background()))

	hub.Emit(newEvent(progress.StageRunStart))
	require.Empty(t, sink.all())
}

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code int
		want progress.StatusClass
	}{
		{200, progress.Status2xx},
		{301, progress.Status3xx},
		{404, progress.Status4xx},
		{502, progress.Status5xx},
		{0, progress.StatusOther},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, progress.ClassifyStatus(tt.code))
	}
}
