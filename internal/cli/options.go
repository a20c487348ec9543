package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/facemark/internal/app"
	"github.com/ayusman/facemark/internal/capture"
)

// Detector backends selectable with --backend.
const (
	BackendMTCNN = "mtcnn"
	BackendPigo  = "pigo"
)

// Environment variables consulted when the matching flag is unset.
const (
	EnvJournal = "FACEMARK_JOURNAL"
	EnvListen  = "FACEMARK_LISTEN"
	EnvStatic  = "FACEMARK_STATIC_DIR"
)

// Options holds the configuration shared by the live and image commands.
type Options struct {
	Device       int
	MinFaceSize  float64
	ScaleFactor  float64
	ExitKey      string
	PollMs       int
	StrictFrames bool
	WindowName   string
	Activity     bool

	Backend     string
	PigoDir     string
	PigoQuality float64

	MaxSide int
	Output  string

	Journal   string
	Listen    string
	StaticDir string
}

// DefaultOptions returns the options of the stock live view.
func DefaultOptions() Options {
	return Options{
		Device:      capture.DefaultDevice,
		MinFaceSize: app.DefaultMinFaceSize,
		ScaleFactor: app.DefaultScaleFactor,
		ExitKey:     string(rune(app.DefaultExitKey)),
		PollMs:      int(app.DefaultPollTimeout / time.Millisecond),
		WindowName:  app.DefaultWindowName,
		Backend:     BackendMTCNN,
		PigoQuality: 5.0,
	}
}

// applyEnv fills unset options from the environment.
func (o *Options) applyEnv() {
	if o.Journal == "" {
		o.Journal = os.Getenv(EnvJournal)
	}
	if o.Listen == "" {
		o.Listen = os.Getenv(EnvListen)
	}
	if o.StaticDir == "" {
		o.StaticDir = os.Getenv(EnvStatic)
	}
	if o.StaticDir == "" && o.Listen != "" {
		o.StaticDir = findWebDir()
	}
}

// validate checks the flag combination before anything is opened.
func (o Options) validate() error {
	if o.Device < 0 {
		return fmt.Errorf("device %d must not be negative", o.Device)
	}
	if o.PollMs < 1 {
		return fmt.Errorf("poll interval %dms must be at least 1ms", o.PollMs)
	}
	if o.MaxSide < 0 {
		return fmt.Errorf("max side %d must not be negative", o.MaxSide)
	}
	if _, err := parseExitKey(o.ExitKey); err != nil {
		return err
	}

	switch o.Backend {
	case BackendMTCNN:
	case BackendPigo:
		if o.PigoQuality < 0 {
			return fmt.Errorf("pigo quality %.2f must not be negative", o.PigoQuality)
		}
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", o.Backend, BackendMTCNN, BackendPigo)
	}

	return nil
}

// loopConfig converts the options into an interaction loop configuration.
func (o Options) loopConfig() (app.Config, error) {
	key, err := parseExitKey(o.ExitKey)
	if err != nil {
		return app.Config{}, err
	}

	cfg := app.Config{
		WindowName:   o.WindowName,
		MinFaceSize:  float32(o.MinFaceSize),
		ScaleFactor:  float32(o.ScaleFactor),
		ExitKey:      key,
		PollTimeout:  time.Duration(o.PollMs) * time.Millisecond,
		StrictFrames: o.StrictFrames,
	}
	if err := cfg.Validate(); err != nil {
		return app.Config{}, err
	}
	return cfg, nil
}

// parseExitKey accepts exactly one ASCII character.
func parseExitKey(s string) (int, error) {
	if len(s) != 1 {
		return 0, fmt.Errorf("exit key %q must be a single character", s)
	}
	if s[0] > 0x7F {
		return 0, errors.New("exit key must be an ASCII character")
	}
	return int(s[0]), nil
}

// findWebDir searches for the preview page in common locations: "web",
// "../web", "../../web" and ~/.facemark/web. It returns the first existing
// directory or an empty string.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".facemark", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
