package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/flowedit/pkg/domain/types"
	"github.com/dshills/flowedit/pkg/storage"
)

// journalFlags holds flags for the journal list command
type journalFlags struct {
	session string
	limit   int
}

// NewJournalCommand creates the journal command
func NewJournalCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the command journal",
		Long:  `Show the command stack events recorded by replays run with --journal.`,
	}

	cmd.AddCommand(newJournalListCommand(opts))
	cmd.AddCommand(newJournalSessionsCommand(opts))

	return cmd
}

func newJournalListCommand(opts *Options) *cobra.Command {
	flags := &journalFlags{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded events of a session",
		Long: `List the recorded events of one editing session, oldest first.
Without --session the most recent session is shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			journal, err := openJournal(opts)
			if err != nil {
				return err
			}
			defer func() { _ = journal.Close() }()

			ctx := replayContext(cmd.Context())
			session := types.SessionID(flags.session)
			if session == "" {
				sessions, err := journal.Sessions(ctx)
				if err != nil {
					return err
				}
				if len(sessions) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No sessions recorded")
					return nil
				}
				session = sessions[0].SessionID
			}

			entries, err := journal.List(ctx, session, flags.limit)
			if err != nil {
				return err
			}
			printJournalTable(cmd.OutOrStdout(), session, entries)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.session, "session", "", "Session ID (default: most recent)")
	cmd.Flags().IntVar(&flags.limit, "limit", storage.DefaultListLimit, "Maximum number of events to show")

	return cmd
}

func newJournalSessionsCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List recorded editing sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			journal, err := openJournal(opts)
			if err != nil {
				return err
			}
			defer func() { _ = journal.Close() }()

			sessions, err := journal.Sessions(replayContext(cmd.Context()))
			if err != nil {
				return err
			}
			printSessionsTable(cmd.OutOrStdout(), sessions)
			return nil
		},
	}
}

func openJournal(opts *Options) (*storage.SQLiteJournal, error) {
	path, err := opts.Settings.JournalFile()
	if err != nil {
		return nil, err
	}
	journal, err := storage.NewSQLiteJournal(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return journal, nil
}

// printJournalTable prints journal entries in a table format
func printJournalTable(w io.Writer, session types.SessionID, entries []storage.JournalEntry) {
	_, _ = fmt.Fprintf(w, "Session: %s\n\n", session)
	_, _ = fmt.Fprintf(w, "%-5s %-11s %-10s %-5s %-5s %s\n", "SEQ", "ACTION", "TIME", "UNDO", "REDO", "COMMAND")
	_, _ = fmt.Fprintln(w, strings.Repeat("-", 90))

	for _, e := range entries {
		desc := e.Description
		if e.Error != "" {
			desc = fmt.Sprintf("%s (error: %s)", desc, e.Error)
		}
		_, _ = fmt.Fprintf(w, "%-5d %-11s %-10s %-5d %-5d %s\n",
			e.Seq, e.Action, e.RecordedAt.Format("15:04:05"), e.UndoDepth, e.RedoDepth, desc)
	}
	_, _ = fmt.Fprintf(w, "\nTotal: %d events\n", len(entries))
}

// printSessionsTable prints session summaries in a table format
func printSessionsTable(w io.Writer, sessions []storage.SessionSummary) {
	if len(sessions) == 0 {
		_, _ = fmt.Fprintln(w, "No sessions recorded")
		return
	}

	_, _ = fmt.Fprintf(w, "%-38s %-7s %-20s %s\n", "SESSION", "EVENTS", "STARTED", "LAST")
	_, _ = fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, s := range sessions {
		_, _ = fmt.Fprintf(w, "%-38s %-7d %-20s %s\n",
			s.SessionID, s.Events, s.StartedAt.Format("2006-01-02 15:04:05"), s.LastAt.Format("2006-01-02 15:04:05"))
	}
}
