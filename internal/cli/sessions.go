package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ayusman/facemark/internal/store"
	"github.com/spf13/cobra"
)

func newSessionsCommand(opts *Options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List journaled sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJournal(*opts, func(st *store.Store) error {
				return listSessions(cmd.OutOrStdout(), st, limit)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of sessions to list (0 lists all)")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session and its frame summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJournal(*opts, func(st *store.Store) error {
				return showSession(cmd.OutOrStdout(), st, args[0])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <session-id>",
		Short: "Delete a session and its frame stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJournal(*opts, func(st *store.Store) error {
				if err := st.Sessions().Delete(args[0]); err != nil {
					return fmt.Errorf("delete session %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
				return nil
			})
		},
	})

	return cmd
}

// withJournal opens the configured journal for the duration of fn.
func withJournal(opts Options, fn func(st *store.Store) error) error {
	if opts.Journal == "" {
		return errors.New("no journal configured (use --journal or " + EnvJournal + ")")
	}

	st, err := store.New(opts.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer st.Close()

	return fn(st)
}

func listSessions(out io.Writer, st *store.Store, limit int) error {
	sessions, err := st.Sessions().List(limit)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions found in journal.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tSOURCE\tBACKEND\tFRAMES\tFACES\tEXIT\tSTARTED")
	fmt.Fprintln(w, "--\t------\t-------\t------\t-----\t----\t-------")

	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			s.ID, s.Source, s.Backend, s.Frames, s.Faces, exitCodeText(s.ExitCode),
			s.StartedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func showSession(out io.Writer, st *store.Store, id string) error {
	sess, err := st.Sessions().GetByID(id)
	if err != nil {
		return fmt.Errorf("get session %s: %w", id, err)
	}

	summary, err := st.Frames().Summary(id)
	if err != nil {
		return fmt.Errorf("summarize session %s: %w", id, err)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", sess.ID)
	fmt.Fprintf(w, "Source:\t%s\n", sess.Source)
	fmt.Fprintf(w, "Backend:\t%s\n", sess.Backend)
	fmt.Fprintf(w, "Parameters:\tmin face %.0f, scale %.3f\n", sess.MinFaceSize, sess.ScaleFactor)
	fmt.Fprintf(w, "Started:\t%s\n", sess.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if sess.FinishedAt != nil {
		fmt.Fprintf(w, "Finished:\t%s\n", sess.FinishedAt.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "Exit code:\t%s\n", exitCodeText(sess.ExitCode))
	fmt.Fprintf(w, "Frames:\t%d (%d skipped)\n", summary.Frames, summary.Skipped)
	fmt.Fprintf(w, "Faces:\t%d\n", summary.Faces)
	fmt.Fprintf(w, "Avg detect:\t%.1f ms\n", summary.AvgDetectMs)
	return w.Flush()
}

func exitCodeText(code *int) string {
	if code == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *code)
}
