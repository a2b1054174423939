package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ontolock/internal/config"
	"ontolock/internal/diff"
	"ontolock/internal/gate"
	"ontolock/internal/ontology"
)

var reviewAddr string

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Open the review surface for a pending change",
	Long: `Verify the ontology against the lockfile and, if they differ, start the
HTTP review surface and wait for a human to approve or reject the change.

Exits 0 once the surface matches (immediately if nothing changed), and 2
when the change is rejected or the review is interrupted.`,
	Args: cobra.NoArgs,
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().StringVar(&reviewAddr, "addr", "", "Review surface listen address (overrides config)")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	if reviewAddr != "" {
		p.cfg.Review.Addr = reviewAddr
	}
	p.cfg.Review.Mode = config.ModeInteractive

	def, err := p.loadDefinition()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := p.runGate(ctx, def, cmd.ErrOrStderr()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Capability surface matches the lockfile")
	return nil
}

// runGate blocks until def may be served. Review notices go to notices,
// never stdout.
func (p *project) runGate(ctx context.Context, def *ontology.Definition, notices io.Writer) error {
	store, err := p.openHistory()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	g := gate.New(gate.Options{
		Lock:      p.lock(),
		History:   store,
		Mode:      p.cfg.Review.Mode,
		Addr:      p.cfg.Review.Addr,
		TokenHash: p.cfg.Review.TokenHash,
		Logger:    p.logger,
		OnReview: func(url string, d *diff.Diff) {
			fmt.Fprintf(notices, "The capability surface changed and needs review.\n")
			fmt.Fprintf(notices, "Open %s to approve or reject it.\n\n", url)
			fmt.Fprint(notices, formatDiffHuman(d))
		},
	})
	return g.Run(ctx, def)
}
