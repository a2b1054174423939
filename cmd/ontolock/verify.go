package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ontolock/internal/diff"
	"ontolock/internal/lockfile"
)

var verifyFormat string

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the ontology against the lockfile",
	Long: `Load the ontology and compare its capability surface with the lockfile.

Exits 0 when they match and 2 when they differ, the lockfile is missing or
the lockfile was tampered with. Nothing is written. Suitable for CI.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyFormat, "format", "human", "Output format (human, json)")
	rootCmd.AddCommand(verifyCmd)
}

type verifyResult struct {
	Match    bool       `json:"match"`
	Reason   string     `json:"reason,omitempty"`
	Lockfile string     `json:"lockfile"`
	OldHash  string     `json:"oldHash,omitempty"`
	NewHash  string     `json:"newHash,omitempty"`
	Diff     *diff.Diff `json:"diff,omitempty"`
}

func runVerify(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(verifyFormat)
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

	lock := p.lock()
	verr := lock.Verify(context.Background(), def)
	result := verifyResult{Match: verr == nil, Lockfile: lock.Path()}
	m, mismatch := lockfile.AsMismatch(verr)
	if verr != nil && !mismatch {
		return verr
	}
	if mismatch {
		result.Reason = string(m.Reason)
		result.OldHash = m.OldHash
		result.NewHash = m.NewHash
		result.Diff = diff.Compute(m.Old, m.New)
	}

	out := cmd.OutOrStdout()
	if format == FormatJSON {
		if err := printJSON(out, result); err != nil {
			return err
		}
	} else if result.Match {
		fmt.Fprintf(out, "Capability surface matches %s\n", lock.Path())
	} else {
		fmt.Fprintf(out, "Capability surface does not match %s (%s)\n\n", lock.Path(), result.Reason)
		fmt.Fprint(out, formatDiffHuman(result.Diff))
	}
	return verr
}
