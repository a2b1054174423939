package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ontolock/internal/config"
	"ontolock/internal/errors"
	"ontolock/internal/paths"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize ontolock in a project",
	Long: `Create .ontolock/ with a default config and, if none exists, a starter
ontology.yaml. Running it again is a no-op unless --force is given.

The lockfile belongs in version control; the history database and logs are
ignored by the generated .ontolock/.gitignore.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite the existing config")
	rootCmd.AddCommand(initCmd)
}

const starterOntology = `# Capability surface. Changes to functions, access groups and entities
# must be approved before they are served; resolvers may change freely.
accessGroups:
  - name: admin
    description: Administrators
entities:
  - name: User
    description: An account holder
functions:
  getUser:
    description: Fetch a user by id
    access: [admin]
    entities: [User]
    inputs:
      type: object
      properties:
        id: string
    resolver: GET ${API_URL}/users
environments:
  dev:
    API_URL: http://localhost:8080
`

const stateGitignore = `history.db*
logs/
`

func runInit(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(projectFlag)
	if err != nil {
		return errors.NewError(errors.InternalError, "failed to resolve project root", err)
	}
	out := cmd.OutOrStdout()
	stateDir := paths.StateDir(root)
	configPath := filepath.Join(stateDir, paths.ConfigName+".json")

	if _, statErr := os.Stat(configPath); statErr == nil && !initForce {
		fmt.Fprintln(out, "ontolock already initialized.")
		fmt.Fprintf(out, "Configuration at: %s\n", configPath)
		fmt.Fprintln(out, "\nRun 'ontolock init --force' to reset it.")
		return nil
	}

	if _, err := paths.EnsureDir(stateDir); err != nil {
		return errors.NewError(errors.InternalError, "failed to create state directory", err)
	}
	cfg := config.DefaultConfig()
	if err := cfg.Save(root); err != nil {
		return errors.NewError(errors.InternalError, "failed to write config", err)
	}
	if _, err := writeIfMissing(filepath.Join(stateDir, ".gitignore"), stateGitignore); err != nil {
		return err
	}

	ontologyPath := paths.Resolve(root, cfg.Ontology.Path)
	created, err := writeIfMissing(ontologyPath, starterOntology)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "ontolock initialized.")
	fmt.Fprintf(out, "Configuration written to: %s\n", configPath)
	if created {
		fmt.Fprintf(out, "Ontology: %s\n", ontologyPath)
	}
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Edit the ontology")
	fmt.Fprintln(out, "  2. Run 'ontolock lock' to approve the first capability surface")
	fmt.Fprintln(out, "  3. Commit .ontolock/ontology.lock.json")
	return nil
}

// writeIfMissing reports whether it created path.
func writeIfMissing(path, content string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return false, errors.NewError(errors.InternalError, "failed to write "+path, err)
	}
	return true, nil
}
