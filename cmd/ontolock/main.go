package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"ontolock/internal/errors"
)

// errSilentExit ends the process with status 1 after the command has
// already reported its outcome.
var errSilentExit = stderrors.New("exit status 1")

func main() {
	if err := rootCmd.Execute(); err != nil {
		if stderrors.Is(err, errSilentExit) {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		for _, fix := range errors.GetSuggestedFixes(errors.CodeOf(err)) {
			if fix.Command != "" {
				fmt.Fprintf(os.Stderr, "  hint: %s  (%s)\n", fix.Command, fix.Description)
			}
		}
		os.Exit(errors.ExitCode(err))
	}
}
