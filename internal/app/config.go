package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/facemark/internal/detector"
)

// Loop defaults.
const (
	// DefaultWindowName is the title of the display window.
	DefaultWindowName = "facemark"
	// DefaultMinFaceSize is the smallest face side in pixels searched for.
	DefaultMinFaceSize = 20
	// DefaultScaleFactor is the ratio between successive pyramid scales.
	DefaultScaleFactor = 0.709
	// DefaultExitKey is the key that ends the loop.
	DefaultExitKey = 'x'
	// DefaultPollTimeout is how long each iteration waits for a key.
	DefaultPollTimeout = 5 * time.Millisecond
)

// Config holds configuration options for the interaction loop. It is fixed
// for the lifetime of a Loop.
type Config struct {
	WindowName  string
	MinFaceSize float32
	ScaleFactor float32
	ExitKey     int
	PollTimeout time.Duration

	// StrictFrames skips empty frames instead of passing them to the
	// detector.
	StrictFrames bool
}

// DefaultConfig returns the stock live view configuration.
func DefaultConfig() Config {
	return Config{
		WindowName:  DefaultWindowName,
		MinFaceSize: DefaultMinFaceSize,
		ScaleFactor: DefaultScaleFactor,
		ExitKey:     DefaultExitKey,
		PollTimeout: DefaultPollTimeout,
	}
}

// Validate checks the configuration before the loop starts.
func (c Config) Validate() error {
	if err := detector.ValidateParams(c.MinFaceSize, c.ScaleFactor); err != nil {
		return err
	}
	if c.WindowName == "" {
		return errors.New("window name must not be empty")
	}
	if c.PollTimeout < 0 {
		return fmt.Errorf("poll timeout %v must not be negative", c.PollTimeout)
	}
	if c.ExitKey < 0 {
		return fmt.Errorf("exit key %d must not be negative", c.ExitKey)
	}
	return nil
}
