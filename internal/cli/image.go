package cli

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/ayusman/facemark/internal/app"
	"github.com/ayusman/facemark/internal/capture"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"
)

func newImageCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image <model-dir> <image-path>",
		Short: "Detect faces on a still image and show the overlay until the exit key is pressed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runImage(cmd.Context(), *opts, args[0], args[1])
		},
	}

	cmd.Flags().IntVar(&opts.MaxSide, "max-side", opts.MaxSide, "Downscale the image so its longer side fits (0 keeps the original size)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", opts.Output, "Write the first rendered frame to this file")

	return cmd
}

func runImage(ctx context.Context, opts Options, modelDir, imagePath string) error {
	r := &runner{
		opts:       opts,
		modelDir:   modelDir,
		source:     capture.NewStillSource(imagePath, opts.MaxSide),
		sourceName: imagePath,
	}

	if opts.Output != "" {
		r.observers = append(r.observers, newSnapshotWriter(opts.Output))
	}

	return exitError(r.run(ctx))
}

// snapshotWriter saves the first non-empty rendered frame to a file.
type snapshotWriter struct {
	path string
	once sync.Once
}

func newSnapshotWriter(path string) *snapshotWriter {
	return &snapshotWriter{path: path}
}

// ObserveFrame implements app.FrameObserver.
func (s *snapshotWriter) ObserveFrame(report app.FrameReport, rendered gocv.Mat) error {
	if report.Skipped || rendered.Empty() {
		return nil
	}

	var err error
	s.once.Do(func() {
		if !gocv.IMWrite(s.path, rendered) {
			err = fmt.Errorf("write %s", s.path)
			return
		}
		log.Printf("Wrote overlay of frame %d to %s", report.Index, s.path)
	})
	return err
}
