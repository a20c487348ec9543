package display

import (
	"hash/crc32"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Shown describes one frame handed to Recorder.Show.
type Shown struct {
	Name     string
	Empty    bool
	Rows     int
	Cols     int
	Checksum uint32
}

// Recorder is a test Surface. It remembers what was shown and replays a
// scripted key sequence, one key per PollKey call, then NoKey.
type Recorder struct {
	keys   []int
	shown  []Shown
	last   gocv.Mat
	polls  []time.Duration
	closed bool
	onPoll func(n int)
	mu     sync.Mutex
}

// NewRecorder creates a Recorder that answers PollKey with keys in order.
func NewRecorder(keys ...int) *Recorder {
	return &Recorder{keys: keys, last: gocv.NewMat()}
}

// OnPoll registers a callback invoked with the 1-based poll count before
// each PollKey returns.
func (r *Recorder) OnPoll(fn func(n int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onPoll = fn
}

// Show records a summary of frame and keeps a copy of it.
func (r *Recorder) Show(name string, frame gocv.Mat) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Shown{Name: name, Empty: frame.Empty()}
	if !s.Empty {
		s.Rows = frame.Rows()
		s.Cols = frame.Cols()
		s.Checksum = crc32.ChecksumIEEE(frame.ToBytes())
	}
	r.shown = append(r.shown, s)

	r.last.Close()
	r.last = frame.Clone()
}

// PollKey returns the next scripted key.
func (r *Recorder) PollKey(timeout time.Duration) int {
	r.mu.Lock()
	r.polls = append(r.polls, timeout)
	n := len(r.polls)
	fn := r.onPoll

	key := NoKey
	if len(r.keys) > 0 {
		key = r.keys[0]
		r.keys = r.keys[1:]
	}
	r.mu.Unlock()

	if fn != nil {
		fn(n)
	}
	return key
}

// Close marks the recorder closed and frees the last frame.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.last.Close()
	r.last = gocv.NewMat()
	return nil
}

// Shown returns every recorded Show call.
func (r *Recorder) Shown() []Shown {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Shown, len(r.shown))
	copy(out, r.shown)
	return out
}

// Last returns a copy of the most recently shown frame. The caller is
// responsible for closing it.
func (r *Recorder) Last() gocv.Mat {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last.Clone()
}

// Polls returns the timeouts PollKey was called with.
func (r *Recorder) Polls() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]time.Duration, len(r.polls))
	copy(out, r.polls)
	return out
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
