package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ontolock/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Full())
		fmt.Fprintf(cmd.OutOrStdout(), "Lockfile format: %d\n", version.LockfileFormat)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
