package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"ontolock/internal/diff"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

func parseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatHuman, "":
		return FormatHuman, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

var changeSigils = map[diff.ChangeType]string{
	diff.ChangeAdded:    "+",
	diff.ChangeRemoved:  "-",
	diff.ChangeModified: "~",
}

// formatDiffHuman renders a diff for a terminal in presentation order.
func formatDiffHuman(d *diff.Diff) string {
	if d == nil || !d.HasChanges {
		return "No changes to the capability surface.\n"
	}

	var b strings.Builder
	s := d.Summary
	if s == nil {
		s = &diff.Summary{}
	}
	fmt.Fprintf(&b, "Capability surface changes: %d added, %d removed, %d modified\n",
		d.AddedCount, d.RemovedCount, d.ModifiedCount)
	fmt.Fprintf(&b, "Severity: %d breaking, %d warning, %d non-breaking\n\n",
		s.BreakingChanges, s.Warnings, s.NonBreaking)

	for _, c := range d.Sorted() {
		fmt.Fprintf(&b, "%s %-11s %-24s [%s]\n", changeSigils[c.Type], c.Kind, c.Name, severityLabel(c.Severity))
		if c.Description != "" {
			fmt.Fprintf(&b, "    %s\n", c.Description)
		}
		for _, fc := range c.FieldChanges {
			fmt.Fprintf(&b, "    %s: %s -> %s\n", fc.Field, compact(fc.OldValue), compact(fc.NewValue))
		}
		for _, sc := range c.SchemaChanges {
			path := sc.Path
			if path == "" {
				path = "(root)"
			}
			fmt.Fprintf(&b, "    %s %s: %s", sc.Schema, path, sc.Type)
			if sc.OldValue != nil || sc.NewValue != nil {
				fmt.Fprintf(&b, " (%s -> %s)", compact(sc.OldValue), compact(sc.NewValue))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func severityLabel(s diff.Severity) string {
	switch s {
	case diff.SeverityBreaking:
		return "BREAKING"
	case diff.SeverityWarning:
		return "warning"
	default:
		return "ok"
	}
}

func compact(v any) string {
	if v == nil {
		return "none"
	}
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
