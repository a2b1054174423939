package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ontolock/internal/access"
	"ontolock/internal/mcp"
)

var (
	toolsGroups []string
	toolsFormat string
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools a principal can reach",
	Long: `Print the tools that serve would list for a principal, with context
fields removed from their input schemas.

The principal's groups come from config unless --group is given.

Examples:
  ontolock tools
  ontolock tools --group admin --format json`,
	Args: cobra.NoArgs,
	RunE: runTools,
}

func init() {
	toolsCmd.Flags().StringSliceVar(&toolsGroups, "group", nil, "Access group of the principal (repeatable)")
	toolsCmd.Flags().StringVar(&toolsFormat, "format", "human", "Output format (human, json)")
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(toolsFormat)
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

	principal := p.principal()
	if len(toolsGroups) > 0 {
		principal.Groups = toolsGroups
	}
	tools := mcp.BuildTools(access.NewFilter(def, principal))

	out := cmd.OutOrStdout()
	if format == FormatJSON {
		return printJSON(out, map[string]any{
			"groups":      principal.Groups,
			"toolsetHash": mcp.ComputeToolsetHash(tools),
			"tools":       tools,
		})
	}

	if len(tools) == 0 {
		fmt.Fprintf(out, "No tools reachable for groups [%s]\n", strings.Join(principal.Groups, ", "))
		return nil
	}
	fmt.Fprintf(out, "%d tools for groups [%s]\n\n", len(tools), strings.Join(principal.Groups, ", "))
	for _, t := range tools {
		fmt.Fprintf(out, "  %-28s %s\n", t.Name, t.Description)
		for _, ref := range t.FieldReferences {
			fmt.Fprintf(out, "      %s -> %s\n", ref.Path, ref.FunctionName)
		}
	}
	return nil
}
