package diff

import "ontolock/internal/schema"

// ChangeType is the variant of a change record.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
)

// Kind is the collection a changed name belongs to.
type Kind string

const (
	KindFunction    Kind = "function"
	KindAccessGroup Kind = "accessGroup"
	KindEntity      Kind = "entity"
)

// Severity indicates how a change affects existing callers
type Severity string

const (
	SeverityBreaking    Severity = "breaking"     // Callers may lose access or send invalid input
	SeverityWarning     Severity = "warning"      // Exposure grows
	SeverityNonBreaking Severity = "non_breaking" // Additions and wording
)

// Tracked function fields
const (
	FieldAccess      = "access"
	FieldEntities    = "entities"
	FieldDescription = "description"
)

// FieldChange records one tracked field's old and new value verbatim.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"oldValue"`
	NewValue any    `json:"newValue"`
}

// SchemaChange is a path-level schema difference within a function.
type SchemaChange struct {
	Schema string `json:"schema"` // inputs or outputs
	schema.Change
}

// Change is one record per changed (kind, name).
type Change struct {
	Type           ChangeType     `json:"type"`
	Kind           Kind           `json:"kind"`
	Name           string         `json:"name"`
	Severity       Severity       `json:"severity"`
	Description    string         `json:"description"`
	FieldChanges   []FieldChange  `json:"fieldChanges,omitempty"`
	InputsChanged  bool           `json:"inputsChanged,omitempty"`
	OutputsChanged bool           `json:"outputsChanged,omitempty"`
	SchemaChanges  []SchemaChange `json:"schemaChanges,omitempty"`
}

// Summary provides an overview of the changes
type Summary struct {
	TotalChanges    int            `json:"totalChanges"`
	BreakingChanges int            `json:"breakingChanges"`
	Warnings        int            `json:"warnings"`
	NonBreaking     int            `json:"nonBreaking"`
	ByKind          map[string]int `json:"byKind"`
}

// Diff is the full change set between two snapshots. Changes are unordered;
// use Sorted for presentation.
type Diff struct {
	HasChanges    bool     `json:"hasChanges"`
	Changes       []Change `json:"changes"`
	AddedCount    int      `json:"addedCount"`
	RemovedCount  int      `json:"removedCount"`
	ModifiedCount int      `json:"modifiedCount"`
	Summary       *Summary `json:"summary"`
}

// HasBreakingChanges returns true if there are any breaking changes
func (d *Diff) HasBreakingChanges() bool {
	return d.Summary != nil && d.Summary.BreakingChanges > 0
}

// Find returns the record for (kind, name), if any.
func (d *Diff) Find(kind Kind, name string) (Change, bool) {
	for _, c := range d.Changes {
		if c.Kind == kind && c.Name == name {
			return c, true
		}
	}
	return Change{}, false
}
