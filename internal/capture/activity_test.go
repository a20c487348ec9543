package capture

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestActivityMeter(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	black := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 120, 160, gocv.MatTypeCV8UC3)
	defer black.Close()
	white := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 120, 160, gocv.MatTypeCV8UC3)
	defer white.Close()
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))

	t.Run("first frame sets the baseline", func(t *testing.T) {
		m := NewActivityMeter()
		defer m.Close()

		if got := m.Measure(&black); got != 0 {
			t.Errorf("first Measure() = %f, want 0", got)
		}
	})

	t.Run("identical frames", func(t *testing.T) {
		m := NewActivityMeter()
		defer m.Close()

		m.Measure(&black)
		if got := m.Measure(&black); got != 0 {
			t.Errorf("Measure() = %f, want 0", got)
		}
	})

	t.Run("scene change", func(t *testing.T) {
		m := NewActivityMeter()
		defer m.Close()

		m.Measure(&black)
		if got := m.Measure(&white); got < 50 {
			t.Errorf("Measure() = %f, expected > 50%% for black to white", got)
		}
	})

	t.Run("size change resets", func(t *testing.T) {
		m := NewActivityMeter()
		defer m.Close()

		small := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 10, 10, gocv.MatTypeCV8UC3)
		defer small.Close()

		m.Measure(&black)
		if got := m.Measure(&small); got != 0 {
			t.Errorf("Measure() = %f, want 0 after a size change", got)
		}
	})

	t.Run("empty frame", func(t *testing.T) {
		m := NewActivityMeter()
		defer m.Close()

		empty := gocv.NewMat()
		defer empty.Close()

		if got := m.Measure(&empty); got != 0 {
			t.Errorf("Measure() = %f, want 0", got)
		}
		if got := m.Measure(nil); got != 0 {
			t.Errorf("Measure(nil) = %f, want 0", got)
		}
	})

	t.Run("reset drops the baseline", func(t *testing.T) {
		m := NewActivityMeter()
		defer m.Close()

		m.Measure(&black)
		m.Reset()
		if got := m.Measure(&white); got != 0 {
			t.Errorf("Measure() after Reset = %f, want 0", got)
		}
	})
}

func TestActivityMeter_CloseTwice(t *testing.T) {
	m := NewActivityMeter()

	m.Close()
	m.Close()
}
