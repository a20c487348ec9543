// Package cli implements the facemark command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is the application version.
const Version = "0.1.0"

// NewRootCommand builds the command tree. The root command keeps the
// two-argument form: facemark <model-dir> <image-path> runs the live view
// and accepts, but does not use, the image path.
func NewRootCommand() *cobra.Command {
	opts := DefaultOptions()

	root := &cobra.Command{
		Use:     "facemark <model-dir> <image-path>",
		Short:   "Real-time face detection with landmark overlay",
		Version: Version,
		Args:    cobra.ExactArgs(2),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.applyEnv()
			return opts.validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runLive(cmd.Context(), opts, args[0], args[1])
		},
		SilenceErrors: true,
	}

	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	flags := root.PersistentFlags()
	flags.IntVar(&opts.Device, "device", opts.Device, "Camera device index")
	flags.Float64Var(&opts.MinFaceSize, "min-face", opts.MinFaceSize, "Smallest face side in pixels to search for")
	flags.Float64Var(&opts.ScaleFactor, "scale", opts.ScaleFactor, "Ratio between successive pyramid scales, in (0,1)")
	flags.StringVar(&opts.ExitKey, "exit-key", opts.ExitKey, "Key that ends the loop")
	flags.IntVar(&opts.PollMs, "poll-ms", opts.PollMs, "Milliseconds to wait for a key each frame")
	flags.BoolVar(&opts.StrictFrames, "strict-frames", opts.StrictFrames, "Skip empty frames instead of detecting on them")
	flags.StringVar(&opts.WindowName, "window", opts.WindowName, "Display window title")
	flags.BoolVar(&opts.Activity, "activity", opts.Activity, "Measure scene activity between frames")
	flags.StringVar(&opts.Backend, "backend", opts.Backend, "Detector backend (mtcnn or pigo)")
	flags.StringVar(&opts.PigoDir, "pigo-dir", opts.PigoDir, "Pigo cascade directory (default: model dir)")
	flags.Float64Var(&opts.PigoQuality, "pigo-quality", opts.PigoQuality, "Minimum pigo detection score")
	flags.StringVar(&opts.Journal, "journal", opts.Journal, "Session journal: SQLite path or postgres:// URL (env "+EnvJournal+")")
	flags.StringVar(&opts.Listen, "listen", opts.Listen, "Preview server address, e.g. :8080 (env "+EnvListen+")")
	flags.StringVar(&opts.StaticDir, "static-dir", opts.StaticDir, "Directory served at / by the preview server (env "+EnvStatic+")")

	root.AddCommand(newLiveCommand(&opts))
	root.AddCommand(newImageCommand(&opts))
	root.AddCommand(newSessionsCommand(&opts))

	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
