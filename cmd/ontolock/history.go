package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ontolock/internal/history"
)

var (
	historyLimit  int
	historyFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past review decisions",
	Long: `List approvals and rejections recorded in the history database, newest
first. The lockfile stays the source of truth; history is an audit trail.

Examples:
  ontolock history
  ontolock history show <id>`,
	Args: cobra.NoArgs,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one decision with its snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	historyCmd.PersistentFlags().StringVar(&historyFormat, "format", "human", "Output format (human, json)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum entries to show (0 for all)")
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistoryStore() (*history.Store, error) {
	p, err := loadProject()
	if err != nil {
		return nil, err
	}
	store, err := p.openHistory()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("history is disabled in config")
	}
	return store, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(historyFormat)
	if err != nil {
		return err
	}
	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(context.Background(), historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == FormatJSON {
		return printJSON(out, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No review decisions recorded")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintln(out, formatEntryLine(e))
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(historyFormat)
	if err != nil {
		return err
	}
	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	entry, err := store.Get(context.Background(), args[0])
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("no history entry %s", args[0])
	}

	out := cmd.OutOrStdout()
	if format == FormatJSON {
		return printJSON(out, entry)
	}
	fmt.Fprintln(out, formatEntryLine(*entry))
	if entry.PreviousHash != "" {
		fmt.Fprintf(out, "  previous: %s\n", entry.PreviousHash)
	}
	fmt.Fprintf(out, "  hash:     %s\n", entry.Hash)
	if entry.Summary != nil {
		fmt.Fprintf(out, "  changes:  %d (%d breaking, %d warning)\n",
			entry.Summary.TotalChanges, entry.Summary.BreakingChanges, entry.Summary.Warnings)
	}
	if entry.Snapshot != nil {
		fmt.Fprintf(out, "  surface:  %d functions, %d access groups, %d entities\n",
			len(entry.Snapshot.Functions), len(entry.Snapshot.AccessGroups), len(entry.Snapshot.Entities))
	}
	return nil
}

func formatEntryLine(e history.Entry) string {
	hash := e.Hash
	if len(hash) > 12 {
		hash = hash[:12]
	}
	who := e.Reviewer
	if who == "" {
		who = "unknown"
	}
	line := fmt.Sprintf("%s  %-8s  %s  %s  by %s",
		e.DecidedAt.Local().Format(time.DateTime), e.Decision, hash, e.ID, who)
	if e.Reason != "" {
		line += ": " + e.Reason
	}
	return line
}
