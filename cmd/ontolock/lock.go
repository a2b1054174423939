package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"ontolock/internal/lockfile"
	"ontolock/internal/review"
)

var (
	lockYes    bool
	lockReason string
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Review the change at the terminal and write the lockfile",
	Long: `Show the diff between the lockfile and the current ontology and ask for
approval at the terminal. Approving writes the reviewed snapshot to the
lockfile and records the decision in history; declining records a rejection
and exits 2.

Use --yes to approve without a prompt, for example when bootstrapping the
first lockfile in a script.`,
	Args: cobra.NoArgs,
	RunE: runLock,
}

func init() {
	lockCmd.Flags().BoolVarP(&lockYes, "yes", "y", false, "Approve without prompting")
	lockCmd.Flags().StringVar(&lockReason, "reason", "declined at terminal", "Reason recorded when the change is declined")
	rootCmd.AddCommand(lockCmd)
}

func runLock(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	def, err := p.loadDefinition()
	if err != nil {
		return err
	}

	ctx := context.Background()
	lock := p.lock()
	out := cmd.OutOrStdout()

	verr := lock.Verify(ctx, def)
	if verr == nil {
		fmt.Fprintf(out, "Lockfile %s is already up to date\n", lock.Path())
		return nil
	}
	m, ok := lockfile.AsMismatch(verr)
	if !ok {
		return verr
	}

	store, err := p.openHistory()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	session := review.NewSession(m, lock, store, p.logger)
	fmt.Fprint(out, formatDiffHuman(session.Diff()))

	approve := lockYes
	if !approve {
		approve, err = confirm(cmd.InOrStdin(), out, "\nApprove these changes? [y/N] ")
		if err != nil {
			return err
		}
	}

	if !approve {
		if err := session.Reject(ctx, reviewer(), lockReason); err != nil {
			return err
		}
		_, err := session.Wait(ctx)
		return err
	}

	rec, err := session.Approve(ctx, reviewer())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s (hash %s)\n", lock.Path(), rec.Hash)
	return nil
}

// confirm reads one answer from in. Anything but y or yes is a no, and so
// is end of input.
func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
