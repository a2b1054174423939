package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ontolock/internal/canonical"
)

var hashSnapshot bool

var hashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Print the canonical hash of the ontology",
	Long: `Print the SHA-256 hash of the ontology's canonical capability surface,
the value the lockfile records. --snapshot prints the canonical form itself.`,
	Args: cobra.NoArgs,
	RunE: runHash,
}

func init() {
	hashCmd.Flags().BoolVar(&hashSnapshot, "snapshot", false, "Print the canonical snapshot instead of its hash")
	rootCmd.AddCommand(hashCmd)
}

func runHash(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	def, err := p.loadDefinition()
	if err != nil {
		return err
	}

	snap := canonical.Canonicalize(def)
	out := cmd.OutOrStdout()
	if hashSnapshot {
		data, err := canonical.MarshalIndent(snap)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	hash, err := canonical.Hash(snap)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, hash)
	return nil
}
