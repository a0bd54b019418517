package sinks

import (
	"context"
	"sync"
	"time"

	"github.com/feedsmith/feedxml-mx/internal/progress"
)

// Snapshot is a point-in-time view of pipeline progress, suitable for
// serving over the status API.
type Snapshot struct {
	RunID        string    `json:"run_id,omitempty"`
	Stage        string    `json:"stage,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
	PagesStarted int64     `json:"pages_started"`
	PagesDone    int64     `json:"pages_done"`
	PagesFailed  int64     `json:"pages_failed"`
	LastNote     string    `json:"last_note,omitempty"`
}

// SnapshotSink accumulates events into an in-memory Snapshot. It is safe for
// concurrent readers while the hub goroutine writes.
type SnapshotSink struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewSnapshotSink constructs an empty SnapshotSink.
func NewSnapshotSink() *SnapshotSink {
	return &SnapshotSink{}
}

// Consume folds the event into the snapshot.
func (s *SnapshotSink) Consume(_ context.Context, evt progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.RunID = evt.RunUUID().String()
	s.snap.UpdatedAt = evt.TS
	switch evt.Stage {
	case progress.StagePageStart:
		s.snap.PagesStarted++
	case progress.StagePageDone:
		s.snap.PagesDone++
	case progress.StagePageError:
		s.snap.PagesFailed++
	default:
		s.snap.Stage = string(evt.Stage)
	}
	if evt.Note != "" {
		s.snap.LastNote = evt.Note
	}
	return nil
}

// Current returns a copy of the latest snapshot.
func (s *SnapshotSink) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Close implements the Sink interface; it performs no action.
func (s *SnapshotSink) Close(context.Context) error {
	return nil
}
