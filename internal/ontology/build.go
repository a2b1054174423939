package ontology

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"

	"ontolock/internal/errors"
	"ontolock/internal/schema"
	"ontolock/internal/slogutil"
)

// Source is the unvalidated input to Build. Slices keep declaration order,
// which matters only for error messages; the built Definition is keyed by name.
type Source struct {
	Functions    []Function
	AccessGroups []AccessGroup
	Entities     []Entity
	Environments []Environment
	Auth         AuthHook
}

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// Build validates src and returns an immutable Definition.
//
// Unknown access-group or entity references, duplicate names and missing
// access lists are fatal. A function schema that fails its structural
// check is replaced by an opaque schema and reported as a warning so one
// malformed function does not take down the whole surface.
func Build(src Source, logger *slog.Logger) (*Definition, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	d := &Definition{
		functions:    make(map[string]*Function, len(src.Functions)),
		groups:       make(map[string]AccessGroup, len(src.AccessGroups)),
		entities:     make(map[string]Entity, len(src.Entities)),
		environments: make(map[string]Environment, len(src.Environments)),
		auth:         src.Auth,
	}

	for i, g := range src.AccessGroups {
		if err := checkName("accessGroups", i, g.Name); err != nil {
			return nil, err
		}
		if _, dup := d.groups[g.Name]; dup {
			return nil, errors.Errorf(errors.DuplicateName, "duplicate access group %q", g.Name)
		}
		d.groups[g.Name] = g
	}

	for i, e := range src.Entities {
		if err := checkName("entities", i, e.Name); err != nil {
			return nil, err
		}
		if _, dup := d.entities[e.Name]; dup {
			return nil, errors.Errorf(errors.DuplicateName, "duplicate entity %q", e.Name)
		}
		d.entities[e.Name] = e
	}

	for i, env := range src.Environments {
		if err := checkName("environments", i, env.Name); err != nil {
			return nil, err
		}
		if _, dup := d.environments[env.Name]; dup {
			return nil, errors.Errorf(errors.DuplicateName, "duplicate environment %q", env.Name)
		}
		vars := make(map[string]string, len(env.Variables))
		for k, v := range env.Variables {
			vars[k] = v
		}
		d.environments[env.Name] = Environment{Name: env.Name, Variables: vars}
	}

	for i := range src.Functions {
		fn, err := d.buildFunction(src.Functions[i], i, logger)
		if err != nil {
			return nil, err
		}
		d.functions[fn.Name] = fn
	}

	d.checkReferences(logger)
	return d, nil
}

func (d *Definition) buildFunction(in Function, index int, logger *slog.Logger) (*Function, error) {
	if err := checkName("functions", index, in.Name); err != nil {
		return nil, err
	}
	if _, dup := d.functions[in.Name]; dup {
		return nil, errors.Errorf(errors.DuplicateName, "duplicate function %q", in.Name)
	}
	if len(in.Access) == 0 {
		return nil, errors.Errorf(errors.InvalidDefinition, "function %q: access must list at least one group", in.Name)
	}
	for _, g := range in.Access {
		if _, ok := d.groups[g]; !ok {
			return nil, errors.Errorf(errors.UnknownAccessGroup, "function %q: unknown access group %q", in.Name, g).
				WithDetails(map[string]string{"function": in.Name, "accessGroup": g})
		}
	}
	for _, e := range in.Entities {
		if _, ok := d.entities[e]; !ok {
			return nil, errors.Errorf(errors.UnknownEntity, "function %q: unknown entity %q", in.Name, e).
				WithDetails(map[string]string{"function": in.Name, "entity": e})
		}
	}

	fn := in
	fn.Access = slices.Clone(in.Access)
	fn.Entities = slices.Clone(in.Entities)
	if fn.Inputs == nil {
		fn.Inputs = schema.Object()
	}
	fn.Inputs = d.introspect(fn.Name, "inputs", fn.Inputs, logger)
	if fn.Outputs != nil {
		fn.Outputs = d.introspect(fn.Name, "outputs", fn.Outputs, logger)
	}
	return &fn, nil
}

// introspect degrades a schema that cannot be checked or described to Opaque.
func (d *Definition) introspect(fnName, which string, n *schema.Node, logger *slog.Logger) *schema.Node {
	err := schema.Check(n)
	if err == nil {
		_, err = schema.Describe(n)
	}
	if err == nil {
		return n
	}

	werr := errors.NewError(errors.SchemaIntrospectionFailed,
		fmt.Sprintf("function %q %s schema degraded to opaque", fnName, which), err)
	d.warnings = append(d.warnings, werr)
	logger.Warn("Schema introspection failed",
		"function", fnName,
		"schema", which,
		"error", err.Error(),
	)
	return schema.Opaque()
}

// checkReferences warns about fieldFrom annotations that name a function
// the ontology does not declare. The option list will simply be empty.
func (d *Definition) checkReferences(logger *slog.Logger) {
	for _, fn := range d.Functions() {
		for _, ref := range schema.ExtractReferences(fn.Inputs, "") {
			if _, ok := d.functions[ref.FunctionName]; ok {
				continue
			}
			d.warnings = append(d.warnings, fmt.Errorf("function %q field %q references unknown function %q",
				fn.Name, ref.Path, ref.FunctionName))
			logger.Warn("Unknown field reference",
				"function", fn.Name,
				"path", ref.Path,
				"references", ref.FunctionName,
			)
		}
	}
}

func checkName(section string, index int, name string) error {
	if name == "" {
		return errors.Errorf(errors.InvalidDefinition, "%s[%d]: name is required", section, index)
	}
	if !namePattern.MatchString(name) {
		return errors.Errorf(errors.InvalidDefinition, "%s[%d]: invalid name %q", section, index, name)
	}
	return nil
}
