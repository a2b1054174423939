package ontology

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"ontolock/internal/errors"
	"ontolock/internal/schema"
)

// LoadOptions locates the declarative sources for LoadFile.
type LoadOptions struct {
	// EnvironmentsPath is an optional TOML file whose tables are merged into
	// the environments declared in the ontology file. Its values win.
	EnvironmentsPath string
	Auth             AuthHook
	Logger           *slog.Logger
}

// LoadFile parses an ontology YAML file (and optional TOML environments
// sidecar) and builds a Definition.
func LoadFile(path string, opts LoadOptions) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewError(errors.InvalidDefinition, "failed to read ontology "+path, err)
	}
	src, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if opts.EnvironmentsPath != "" {
		envs, err := LoadEnvironments(opts.EnvironmentsPath)
		if err != nil {
			return nil, err
		}
		src.Environments = mergeEnvironments(src.Environments, envs)
	}
	src.Auth = opts.Auth
	return Build(src, opts.Logger)
}

// Parse decodes the YAML ontology format. Function and property order is
// taken from the document.
//
//	accessGroups:
//	  - name: admin
//	    description: Administrators
//	functions:
//	  getUser:
//	    description: Fetch a user
//	    access: [admin]
//	    inputs:
//	      type: object
//	      properties:
//	        id: string
//	        requesterId: {type: string, context: user}
func Parse(data []byte) (Source, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Source{}, errors.NewError(errors.InvalidDefinition, "failed to parse ontology", err)
	}
	if len(doc.Content) == 0 {
		return Source{}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return Source{}, asDefinitionError(syntaxError(root, "ontology must be a mapping"))
	}

	var src Source
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		var err error
		switch key.Value {
		case "accessGroups":
			err = val.Decode(&src.AccessGroups)
		case "entities":
			err = val.Decode(&src.Entities)
		case "environments":
			src.Environments, err = parseEnvironments(val)
		case "functions":
			src.Functions, err = parseFunctions(val)
		case "version":
			// informational
		default:
			err = syntaxError(key, "unknown section "+key.Value)
		}
		if err != nil {
			return Source{}, asDefinitionError(err)
		}
	}
	return src, nil
}

type functionDoc struct {
	Description string    `yaml:"description"`
	Access      []string  `yaml:"access"`
	Entities    []string  `yaml:"entities"`
	Resolver    string    `yaml:"resolver"`
	UI          bool      `yaml:"ui"`
	Inputs      yaml.Node `yaml:"inputs"`
	Outputs     yaml.Node `yaml:"outputs"`
}

func parseFunctions(n *yaml.Node) ([]Function, error) {
	if n.Kind != yaml.MappingNode {
		return nil, syntaxError(n, "functions must be a mapping of name to definition")
	}
	fns := make([]Function, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		name := n.Content[i].Value
		var doc functionDoc
		if err := n.Content[i+1].Decode(&doc); err != nil {
			return nil, fmt.Errorf("function %s: %w", name, err)
		}
		fn := Function{
			Name:        name,
			Description: doc.Description,
			Access:      doc.Access,
			Entities:    doc.Entities,
			Resolver:    doc.Resolver,
			UI:          doc.UI,
		}
		var err error
		if doc.Inputs.Kind != 0 {
			if fn.Inputs, err = ParseSchema(&doc.Inputs); err != nil {
				return nil, fmt.Errorf("function %s inputs: %w", name, err)
			}
		}
		if doc.Outputs.Kind != 0 {
			if fn.Outputs, err = ParseSchema(&doc.Outputs); err != nil {
				return nil, fmt.Errorf("function %s outputs: %w", name, err)
			}
		}
		fns = append(fns, fn)
	}
	return fns, nil
}

func parseEnvironments(n *yaml.Node) ([]Environment, error) {
	var raw map[string]map[string]string
	if err := n.Decode(&raw); err != nil {
		return nil, err
	}
	envs := make([]Environment, 0, len(raw))
	for _, name := range sortedKeys(raw) {
		envs = append(envs, Environment{Name: name, Variables: raw[name]})
	}
	return envs, nil
}

var schemaKeys = map[string]bool{
	"type": true, "properties": true, "required": true, "items": true, "values": true,
	"optional": true, "nullable": true, "default": true, "context": true, "fieldFrom": true,
	"description": true,
}

// ParseSchema converts a YAML schema description into a schema tree. A node
// is either a bare type name ("string") or a mapping with a type key.
// Wrappers are applied innermost first: nullable, default, optional.
// The annotation is attached to the base node.
func ParseSchema(n *yaml.Node) (*schema.Node, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return baseSchema(n, n.Value)
	case yaml.MappingNode:
	default:
		return nil, syntaxError(n, "schema must be a type name or a mapping")
	}

	fields := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i]
		if !schemaKeys[key.Value] {
			return nil, syntaxError(key, "unknown schema key "+key.Value)
		}
		fields[key.Value] = n.Content[i+1]
	}

	typ, ok := fields["type"]
	if !ok {
		return nil, syntaxError(n, "schema mapping needs a type")
	}

	var node *schema.Node
	var err error
	switch typ.Value {
	case "object":
		node, err = objectSchema(fields)
	case "array":
		items, ok := fields["items"]
		if !ok {
			return nil, syntaxError(n, "array schema needs items")
		}
		var elem *schema.Node
		if elem, err = ParseSchema(items); err == nil {
			node = schema.Array(elem)
		}
	case "enum":
		var values []string
		if v, ok := fields["values"]; ok {
			err = v.Decode(&values)
		}
		node = schema.Enum(values...)
	default:
		node, err = baseSchema(typ, typ.Value)
	}
	if err != nil {
		return nil, err
	}

	if a, ok, err := annotationOf(fields); err != nil {
		return nil, err
	} else if ok {
		node = node.Annotate(a)
	}

	if flag(fields, "nullable") {
		node = schema.Nullable(node)
	}
	if d, ok := fields["default"]; ok {
		var v any
		if err := d.Decode(&v); err != nil {
			return nil, err
		}
		node = schema.Default(node, v)
	}
	if flag(fields, "optional") {
		node = schema.Optional(node)
	}
	return node, nil
}

func objectSchema(fields map[string]*yaml.Node) (*schema.Node, error) {
	var props []schema.Field
	if p, ok := fields["properties"]; ok {
		if p.Kind != yaml.MappingNode {
			return nil, syntaxError(p, "properties must be a mapping")
		}
		for i := 0; i+1 < len(p.Content); i += 2 {
			child, err := ParseSchema(p.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", p.Content[i].Value, err)
			}
			props = append(props, schema.Prop(p.Content[i].Value, child))
		}
	}
	node := schema.Object(props...)
	if r, ok := fields["required"]; ok {
		var names []string
		if err := r.Decode(&names); err != nil {
			return nil, err
		}
		node = node.WithRequired(names...)
	}
	return node, nil
}

func baseSchema(at *yaml.Node, name string) (*schema.Node, error) {
	switch name {
	case "string":
		return schema.String(), nil
	case "number":
		return schema.Number(), nil
	case "boolean":
		return schema.Boolean(), nil
	case "object":
		return schema.Object(), nil
	case "any":
		return schema.Opaque(), nil
	default:
		return nil, syntaxError(at, "unknown type "+name)
	}
}

func annotationOf(fields map[string]*yaml.Node) (schema.Annotation, bool, error) {
	ctx, hasCtx := fields["context"]
	from, hasFrom := fields["fieldFrom"]
	switch {
	case hasCtx && hasFrom:
		return schema.Annotation{}, false, syntaxError(ctx, "context and fieldFrom are mutually exclusive")
	case hasCtx:
		switch ctx.Value {
		case schema.ContextUser:
			return schema.Annotation{Kind: schema.UserContext}, true, nil
		case schema.ContextOrganization:
			return schema.Annotation{Kind: schema.OrganizationContext}, true, nil
		default:
			return schema.Annotation{}, false, syntaxError(ctx, "context must be user or organization")
		}
	case hasFrom:
		return schema.Annotation{Kind: schema.FieldFrom, Function: from.Value}, true, nil
	}
	return schema.Annotation{}, false, nil
}

func flag(fields map[string]*yaml.Node, key string) bool {
	n, ok := fields[key]
	if !ok {
		return false
	}
	var b bool
	return n.Decode(&b) == nil && b
}

func syntaxError(n *yaml.Node, msg string) error {
	return fmt.Errorf("line %d: %s", n.Line, msg)
}

func asDefinitionError(err error) error {
	if errors.CodeOf(err) != "" {
		return err
	}
	return errors.NewError(errors.InvalidDefinition, "invalid ontology", err)
}

// LoadEnvironments reads a TOML file of environment tables:
//
//	[production]
//	API_URL = "https://api.example.com"
func LoadEnvironments(path string) ([]Environment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewError(errors.InvalidDefinition, "failed to read environments "+path, err)
	}
	var raw map[string]map[string]any
	dec := toml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.NewError(errors.InvalidDefinition, "failed to parse environments "+path, err)
	}

	envs := make([]Environment, 0, len(raw))
	for _, name := range sortedKeys(raw) {
		vars := make(map[string]string, len(raw[name]))
		for k, v := range raw[name] {
			vars[k] = strings.TrimSpace(fmt.Sprint(v))
		}
		envs = append(envs, Environment{Name: name, Variables: vars})
	}
	return envs, nil
}

func mergeEnvironments(base, overlay []Environment) []Environment {
	byName := make(map[string]Environment, len(base)+len(overlay))
	var order []string
	for _, list := range [][]Environment{base, overlay} {
		for _, env := range list {
			cur, ok := byName[env.Name]
			if !ok {
				order = append(order, env.Name)
				cur = Environment{Name: env.Name, Variables: map[string]string{}}
			}
			for k, v := range env.Variables {
				cur.Variables[k] = v
			}
			byName[env.Name] = cur
		}
	}
	out := make([]Environment, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out
}
