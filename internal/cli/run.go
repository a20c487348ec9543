package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/ayusman/facemark/internal/app"
	"github.com/ayusman/facemark/internal/capture"
	"github.com/ayusman/facemark/internal/detector"
	"github.com/ayusman/facemark/internal/display"
	"github.com/ayusman/facemark/internal/server"
	"github.com/ayusman/facemark/internal/store"
)

// Construction hooks, replaced in tests.
var (
	detectorFactory = newDetector
	surfaceFactory  = newSurface
)

// newDetector validates the model artifacts for the selected backend and
// loads it. Nothing is opened when validation fails.
func newDetector(opts Options, modelDir string) (detector.Detector, error) {
	switch opts.Backend {
	case BackendPigo:
		dir := opts.PigoDir
		if dir == "" {
			dir = modelDir
		}
		cfg := detector.DefaultPigoConfig(dir)
		cfg.MinQuality = float32(opts.PigoQuality)
		p, err := detector.NewPigo(cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		cfg := detector.NewCascadeConfig(modelDir)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		m, err := detector.NewMTCNN(cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

func newSurface(Options) display.Surface {
	return display.NewWindow()
}

// runner wires one interaction loop together with its optional journal and
// preview server.
type runner struct {
	opts       Options
	modelDir   string
	source     capture.Source
	sourceName string
	observers  []app.FrameObserver
}

// run builds the detector and surface, starts the loop and returns its exit
// code. Loop setup failures are reported as ExitFailure.
func (r *runner) run(ctx context.Context) (int, error) {
	cfg, err := r.opts.loopConfig()
	if err != nil {
		return app.ExitFailure, err
	}

	det, err := detectorFactory(r.opts, r.modelDir)
	if err != nil {
		return app.ExitFailure, fmt.Errorf("load %s detector: %w", r.opts.Backend, err)
	}
	defer func() {
		if err := det.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}()

	surface := surfaceFactory(r.opts)
	defer func() {
		if err := surface.Close(); err != nil {
			log.Printf("Error closing display: %v", err)
		}
	}()

	loop := app.New(cfg, r.source, det, surface)

	if r.opts.Activity {
		meter := capture.NewActivityMeter()
		defer meter.Close()
		loop.SetActivityMeter(meter)
	}

	for _, o := range r.observers {
		loop.AddObserver(o)
	}

	var st *store.Store
	var journal *store.Journal
	if r.opts.Journal != "" {
		st, err = store.New(r.opts.Journal)
		if err != nil {
			return app.ExitFailure, fmt.Errorf("open journal: %w", err)
		}
		defer st.Close()

		journal, err = store.NewJournal(st, &store.Session{
			Source:      r.sourceName,
			Backend:     r.opts.Backend,
			MinFaceSize: float64(cfg.MinFaceSize),
			ScaleFactor: float64(cfg.ScaleFactor),
		})
		if err != nil {
			return app.ExitFailure, err
		}
		loop.AddObserver(journal)
		log.Printf("Journaling session %s", journal.SessionID())
	}

	if r.opts.Listen != "" {
		hub := server.NewHub()
		loop.AddObserver(hub)

		srvCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		srv := server.New(server.Config{
			StaticDir: r.opts.StaticDir,
			Hub:       hub,
			Store:     st,
		})
		go func() {
			if err := srv.Run(srvCtx, r.opts.Listen); err != nil {
				log.Printf("Preview server failed: %v", err)
			}
		}()
	}

	code, err := loop.Run(ctx)

	if journal != nil {
		if ferr := journal.Finish(code); ferr != nil {
			log.Printf("Error finishing session %s: %v", journal.SessionID(), ferr)
		}
	}

	stats := loop.Stats()
	log.Printf("Processed %d frames (%d skipped), %d faces, %.3f seconds detecting",
		stats.Frames, stats.SkippedFrames, stats.Faces, stats.DetectTime.Seconds())

	return code, err
}
