package server

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/facemark/internal/app"
	"github.com/ayusman/facemark/internal/detector"
	"github.com/ayusman/facemark/internal/overlay"
	"gocv.io/x/gocv"
)

// FaceMessage is the JSON document pushed to websocket clients for every
// frame.
type FaceMessage struct {
	Frame     int             `json:"frame"`
	Faces     []detector.Face `json:"faces"`
	Shapes    []overlay.Shape `json:"shapes"`
	ElapsedMs float64         `json:"elapsed_ms"`
	Skipped   bool            `json:"skipped"`
	Activity  float64         `json:"activity"`
	Timestamp int64           `json:"timestamp"`
}

// Snapshot is the latest published frame. Its fields are never modified
// after publication.
type Snapshot struct {
	Seq     uint64
	JPEG    []byte
	Message []byte
}

// Hub receives frames from the interaction loop and hands copies to HTTP
// clients. It implements app.FrameObserver and never blocks the loop on a
// client.
type Hub struct {
	mu      sync.RWMutex
	latest  Snapshot
	updated chan struct{}
	done    chan struct{}
	closed  bool

	viewers atomic.Int32
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		updated: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// ObserveFrame publishes the report and, when someone is watching the
// stream, a JPEG of the rendered frame.
func (h *Hub) ObserveFrame(report app.FrameReport, rendered gocv.Mat) error {
	msg, err := json.Marshal(newFaceMessage(report))
	if err != nil {
		return err
	}

	var jpeg []byte
	if h.viewers.Load() > 0 && !rendered.Empty() {
		buf, err := gocv.IMEncode(gocv.JPEGFileExt, rendered)
		if err != nil {
			return err
		}
		jpeg = append([]byte(nil), buf.GetBytes()...)
		buf.Close()
	}

	h.publish(msg, jpeg)
	return nil
}

func newFaceMessage(report app.FrameReport) FaceMessage {
	faces := report.Faces
	if faces == nil {
		faces = []detector.Face{}
	}
	shapes := report.Shapes
	if shapes == nil {
		shapes = []overlay.Shape{}
	}

	return FaceMessage{
		Frame:     report.Index,
		Faces:     faces,
		Shapes:    shapes,
		ElapsedMs: float64(report.Elapsed) / float64(time.Millisecond),
		Skipped:   report.Skipped,
		Activity:  report.Activity,
		Timestamp: report.Timestamp.UnixMilli(),
	}
}

func (h *Hub) publish(msg, jpeg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.latest = Snapshot{Seq: h.latest.Seq + 1, JPEG: jpeg, Message: msg}
	close(h.updated)
	h.updated = make(chan struct{})
}

// Latest returns the current snapshot and a channel closed on the next
// publication.
func (h *Hub) Latest() (Snapshot, <-chan struct{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, h.updated
}

// Done is closed when the hub shuts down.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Close stops publication and releases waiting clients.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	close(h.done)
}

// addViewer registers an MJPEG client and returns its release func.
func (h *Hub) addViewer() func() {
	h.viewers.Add(1)
	return func() { h.viewers.Add(-1) }
}

// Viewers returns the number of connected MJPEG clients.
func (h *Hub) Viewers() int {
	return int(h.viewers.Load())
}
