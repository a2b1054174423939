package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ontolock/internal/canonical"
	"ontolock/internal/diff"
	"ontolock/internal/errors"
)

var (
	diffFormat   string
	diffExitCode bool
	diffAgainst  string
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show how the ontology differs from the approved surface",
	Long: `Compute the structured diff between the approved capability surface and
the current ontology.

By default the approved surface is the lockfile. --against compares with the
snapshot recorded by a history entry instead.

Examples:
  ontolock diff
  ontolock diff --format json
  ontolock diff --exit-code   # exit 1 when anything changed`,
	Args: cobra.NoArgs,
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().StringVar(&diffFormat, "format", "human", "Output format (human, json)")
	diffCmd.Flags().BoolVar(&diffExitCode, "exit-code", false, "Exit with status 1 when there are changes")
	diffCmd.Flags().StringVar(&diffAgainst, "against", "", "History entry ID to compare with instead of the lockfile")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(diffFormat)
	if err != nil {
		return err
	}
	p, err := loadProject()
	if err != nil {
		return err
	}
	def, err := p.loadDefinition()
	if err != nil {
		return err
	}

	ctx := context.Background()
	base, err := p.approvedSnapshot(ctx, diffAgainst)
	if err != nil {
		return err
	}
	d := diff.Compute(base, canonical.Canonicalize(def))

	out := cmd.OutOrStdout()
	if format == FormatJSON {
		if err := printJSON(out, d); err != nil {
			return err
		}
	} else {
		fmt.Fprint(out, formatDiffHuman(d))
	}

	if diffExitCode && d.HasChanges {
		return errSilentExit
	}
	return nil
}

// approvedSnapshot returns the lockfile snapshot, or the one recorded by a
// history entry when id is set. A missing lockfile reads as the empty
// ontology so the first diff lists everything as added.
func (p *project) approvedSnapshot(ctx context.Context, id string) (*canonical.Ontology, error) {
	if id != "" {
		store, err := p.openHistory()
		if err != nil {
			return nil, err
		}
		if store == nil {
			return nil, fmt.Errorf("history is disabled in config")
		}
		defer store.Close()
		entry, err := store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, fmt.Errorf("no history entry %s", id)
		}
		if entry.Snapshot == nil {
			return nil, fmt.Errorf("history entry %s has no snapshot", id)
		}
		return entry.Snapshot, nil
	}

	rec, err := p.lock().Read(ctx)
	switch {
	case errors.Is(err, errors.LockfileMissing):
		return canonical.Empty(), nil
	case err != nil:
		return nil, err
	}
	return rec.Snapshot, nil
}
