package main

import (
	"github.com/spf13/cobra"

	"ontolock/internal/version"
)

var (
	projectFlag  string
	ontologyFlag string
	lockfileFlag string
	verboseFlag  int
	quietFlag    bool
)

var rootCmd = &cobra.Command{
	Use:   "ontolock",
	Short: "ontolock - change control for an API's capability surface",
	Long: `ontolock keeps the capability surface of an API (its functions, the access
groups allowed to call them and their input and output shapes) under human
change control.

The approved surface is recorded in a lockfile. Any change to it is detected
at startup, explained as a structured diff, and blocked until a human
approves it. Resolver implementations may change freely.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("ontolock version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&projectFlag, "project", ".", "Project root containing .ontolock/")
	rootCmd.PersistentFlags().StringVar(&ontologyFlag, "ontology", "", "Ontology file (overrides config)")
	rootCmd.PersistentFlags().StringVar(&lockfileFlag, "lockfile", "", "Lockfile path (overrides config)")
	rootCmd.PersistentFlags().CountVarP(&verboseFlag, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress log output")
}
