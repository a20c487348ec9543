package store

import (
	"errors"
	"testing"
	"time"

	"github.com/ayusman/facemark/internal/app"
	"github.com/ayusman/facemark/internal/detector"
	"gocv.io/x/gocv"
)

func TestJournal(t *testing.T) {
	s := newTestStore(t)

	j, err := NewJournal(s, newSession())
	if err != nil {
		t.Fatalf("NewJournal() error = %v", err)
	}

	var observer app.FrameObserver = j
	empty := gocv.NewMat()
	defer empty.Close()

	face := detector.SampleFace()
	reports := []app.FrameReport{
		{Index: 0, Timestamp: time.Now(), Faces: []detector.Face{face}, Elapsed: 15 * time.Millisecond},
		{Index: 1, Timestamp: time.Now(), Skipped: true},
		{Index: 2, Timestamp: time.Now(), Faces: []detector.Face{face, face}, Elapsed: 25 * time.Millisecond, Activity: 3},
	}
	for _, r := range reports {
		if err := observer.ObserveFrame(r, empty); err != nil {
			t.Fatalf("ObserveFrame(%d) error = %v", r.Index, err)
		}
	}

	if err := j.Finish(app.ExitSuccess); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	sess, err := s.Sessions().GetByID(j.SessionID())
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if sess.Frames != 2 || sess.Faces != 3 {
		t.Errorf("session totals = %d frames, %d faces, want 2 and 3", sess.Frames, sess.Faces)
	}
	if sess.ExitCode == nil || *sess.ExitCode != app.ExitSuccess {
		t.Errorf("ExitCode = %v, want 0", sess.ExitCode)
	}

	sum, err := s.Frames().Summary(j.SessionID())
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if sum.Frames != 2 || sum.Skipped != 1 || sum.Faces != 3 || sum.AvgDetectMs != 20 {
		t.Errorf("Summary() = %+v", sum)
	}
}

func TestJournal_ClosedStore(t *testing.T) {
	s := newTestStore(t)

	j, err := NewJournal(s, newSession())
	if err != nil {
		t.Fatalf("NewJournal() error = %v", err)
	}
	s.Close()

	empty := gocv.NewMat()
	defer empty.Close()

	if err := j.ObserveFrame(app.FrameReport{Index: 0}, empty); err == nil {
		t.Error("ObserveFrame() should fail on a closed store")
	}
	if err := j.Finish(app.ExitFailure); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Finish() on a closed store = %v, want a database error", err)
	}
}
