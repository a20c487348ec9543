package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/ayusman/facemark/internal/app"
	"gocv.io/x/gocv"
)

// Journal records every frame of one loop run. It implements
// app.FrameObserver.
type Journal struct {
	store   *Store
	session *Session
	frames  int
	faces   int
	mu      sync.Mutex
}

// NewJournal creates the session row and returns a journal writing to it.
func NewJournal(s *Store, sess *Session) (*Journal, error) {
	if err := s.Sessions().Create(sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &Journal{store: s, session: sess}, nil
}

// SessionID returns the ID of the session being written.
func (j *Journal) SessionID() string {
	return j.session.ID
}

// ObserveFrame stores the frame's statistics.
func (j *Journal) ObserveFrame(report app.FrameReport, _ gocv.Mat) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	stat := FrameStat{
		Index:     report.Index,
		Faces:     len(report.Faces),
		DetectMs:  float64(report.Elapsed) / float64(time.Millisecond),
		Skipped:   report.Skipped,
		Activity:  report.Activity,
		CreatedAt: report.Timestamp.UTC(),
	}
	if err := j.store.Frames().Record(j.session.ID, stat); err != nil {
		return fmt.Errorf("record frame %d: %w", report.Index, err)
	}

	if !report.Skipped {
		j.frames++
		j.faces += len(report.Faces)
	}
	return nil
}

// Finish closes the session with the run's exit code.
func (j *Journal) Finish(exitCode int) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.store.Sessions().Finish(j.session.ID, j.frames, j.faces, exitCode)
}
