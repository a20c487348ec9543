package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/ayusman/facemark/internal/app"
	"github.com/ayusman/facemark/internal/capture"
	"github.com/spf13/cobra"
)

func newLiveCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "live <model-dir>",
		Short: "Detect faces on the camera feed until the exit key is pressed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runLive(cmd.Context(), *opts, args[0], "")
		},
	}
}

// runLive runs the interaction loop on the configured camera. imagePath is
// accepted for command line compatibility and otherwise ignored.
func runLive(ctx context.Context, opts Options, modelDir, imagePath string) error {
	if imagePath != "" {
		log.Printf("Ignoring image path %s, reading from camera %d", imagePath, opts.Device)
	}

	r := &runner{
		opts:       opts,
		modelDir:   modelDir,
		source:     capture.NewCamera(opts.Device),
		sourceName: fmt.Sprintf("camera:%d", opts.Device),
	}
	return exitError(r.run(ctx))
}

// exitError folds a loop result into the error cobra reports.
func exitError(code int, err error) error {
	if err != nil {
		return err
	}
	if code != app.ExitSuccess {
		return fmt.Errorf("exited with code %d", code)
	}
	return nil
}
