package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/scormrte/internal/canonical"
	"github.com/roach88/scormrte/internal/store"
)

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	var database string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List sessions recorded in a database",
		Long: `List every session registered in the database, oldest first, with
its learner, launch mode and number of persisted snapshots.

Example:
  scormrte sessions --db rte.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listSessions(rootOpts, database, cmd)
		},
	}

	cmd.Flags().StringVar(&database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	var database, output string

	cmd := &cobra.Command{
		Use:   "snapshot <learner-id>",
		Short: "Print the latest persisted snapshot of a learner",
		Long: `Print the most recent session snapshot persisted for a learner as
canonical JSON. This is the data a resumed attempt starts from.

Examples:
  scormrte snapshot --db rte.db learner-42
  scormrte snapshot --db rte.db -o learner-42.json learner-42`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showSnapshot(rootOpts, database, output, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the snapshot to a file instead of stdout")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

// openExisting opens a database that must already exist; store.Open would
// otherwise create an empty one.
func openExisting(out *OutputFormatter, path string) (*store.Store, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, out.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", path), nil)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, out.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	return st, nil
}

func listSessions(opts *RootOptions, database string, cmd *cobra.Command) error {
	out := formatter(opts, cmd)
	st, err := openExisting(out, database)
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, err := st.ListSessions(cmd.Context())
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeStore, "failed to list sessions", err)
	}

	if out.JSON() {
		return out.Success(sessions)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tLEARNER\tMODE\tSTARTED\tSTATUS\tSNAPSHOTS")
	for _, s := range sessions {
		status := "active"
		if !s.Active {
			status = "ended"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			s.ID, s.LearnerID, s.LaunchMode, s.StartedAt.Format(time.RFC3339), status, s.Snapshots)
	}
	return tw.Flush()
}

func showSnapshot(opts *RootOptions, database, output, learnerID string, cmd *cobra.Command) error {
	out := formatter(opts, cmd)
	st, err := openExisting(out, database)
	if err != nil {
		return err
	}
	defer st.Close()

	snap, found, err := st.LatestSnapshot(cmd.Context(), learnerID)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeStore, "failed to read snapshot", err)
	}
	if !found {
		return out.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("no snapshot for learner %q", learnerID), nil)
	}

	if output == "" && out.JSON() {
		return out.Success(snap)
	}
	data, err := canonical.Marshal(snap)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeGeneric, "failed to encode snapshot", err)
	}
	if output == "" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}

	if err := os.WriteFile(output, append(data, '\n'), 0644); err != nil {
		return out.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to write snapshot", err)
	}
	if out.JSON() {
		return out.Success(map[string]string{"learner_id": learnerID, "session_id": snap.SessionID, "path": output})
	}
	out.VerboseLog("wrote snapshot of session %s to %s", snap.SessionID, output)
	return nil
}
