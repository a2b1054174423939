package ontology

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"ontolock/internal/errors"
	"ontolock/internal/schema"
)

const sampleOntology = `
version: 1
accessGroups:
  - name: admin
    description: Administrators
  - name: public
    description: Everyone
entities:
  - name: User
    description: A person
environments:
  dev:
    API_URL: http://localhost:8080
functions:
  getUser:
    description: Fetch a user
    access: [admin]
    entities: [User]
    resolver: resolvers/getUser
    inputs:
      type: object
      properties:
        id: string
        requesterId: {type: string, context: user}
        orgId: {type: string, context: organization, optional: true}
        manager: {type: string, fieldFrom: listUsers, nullable: true, optional: true}
        limit: {type: number, default: 10}
    outputs:
      type: object
      properties:
        name: string
        roles:
          type: array
          items: {type: enum, values: [admin, member]}
  listUsers:
    description: List users
    access: [admin, public]
    ui: true
`

func TestParse(t *testing.T) {
	src, err := Parse([]byte(sampleOntology))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(src.AccessGroups) != 2 || src.AccessGroups[0].Name != "admin" {
		t.Errorf("AccessGroups = %+v", src.AccessGroups)
	}
	if len(src.Functions) != 2 || src.Functions[0].Name != "getUser" {
		t.Fatalf("Functions = %+v", src.Functions)
	}
	fn := src.Functions[0]
	if fn.Resolver != "resolvers/getUser" || !reflect.DeepEqual(fn.Access, []string{"admin"}) {
		t.Errorf("getUser = %+v", fn)
	}
	if !src.Functions[1].UI {
		t.Error("listUsers should carry the ui flag")
	}

	var names []string
	for _, f := range fn.Inputs.Fields() {
		names = append(names, f.Name)
	}
	if want := []string{"id", "requesterId", "orgId", "manager", "limit"}; !reflect.DeepEqual(names, want) {
		t.Errorf("field order = %v, want %v", names, want)
	}
	if want := []string{"id", "requesterId"}; !reflect.DeepEqual(fn.Inputs.Required(), want) {
		t.Errorf("Required() = %v, want %v", fn.Inputs.Required(), want)
	}

	requester, _ := fn.Inputs.Field("requesterId")
	if a, ok := schema.FieldAnnotation(requester); !ok || a.Kind != schema.UserContext {
		t.Errorf("requesterId annotation = %v", a)
	}
	manager, _ := fn.Inputs.Field("manager")
	if manager.Kind() != schema.KindOptional || manager.Inner().Kind() != schema.KindNullable {
		t.Errorf("manager wrappers = %v/%v, want optional(nullable)", manager.Kind(), manager.Inner().Kind())
	}

	refs := schema.ExtractReferences(fn.Inputs, "")
	if len(refs) != 1 || refs[0] != (schema.FieldReference{Path: "manager", FunctionName: "listUsers"}) {
		t.Errorf("references = %+v", refs)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not a mapping", "- a\n- b\n"},
		{"unknown section", "widgets: []\n"},
		{"unknown type", "functions:\n  f:\n    access: [a]\n    inputs: {type: date}\n"},
		{"integer is not a type", "functions:\n  f:\n    access: [a]\n    inputs:\n      type: object\n      properties:\n        n: {type: integer}\n"},
		{"unknown key", "functions:\n  f:\n    access: [a]\n    inputs: {type: string, min: 1}\n"},
		{"array without items", "functions:\n  f:\n    access: [a]\n    inputs: {type: array}\n"},
		{"bad context", "functions:\n  f:\n    access: [a]\n    inputs:\n      type: object\n      properties:\n        u: {type: string, context: team}\n"},
		{"two annotations", "functions:\n  f:\n    access: [a]\n    inputs:\n      type: object\n      properties:\n        u: {type: string, context: user, fieldFrom: g}\n"},
		{"invalid yaml", "functions: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.InvalidDefinition) {
				t.Errorf("code = %q, want INVALID_DEFINITION (%v)", errors.CodeOf(err), err)
			}
		})
	}
}

func TestLoadFile_WithEnvironments(t *testing.T) {
	dir := t.TempDir()
	ontPath := filepath.Join(dir, "ontology.yaml")
	envPath := filepath.Join(dir, "environments.toml")
	if err := os.WriteFile(ontPath, []byte(sampleOntology), 0644); err != nil {
		t.Fatal(err)
	}
	envs := "[dev]\nAPI_URL = \"http://dev.internal\"\nTIMEOUT = 5\n\n[production]\nAPI_URL = \"https://api.example.com\"\n"
	if err := os.WriteFile(envPath, []byte(envs), 0644); err != nil {
		t.Fatal(err)
	}

	def, err := LoadFile(ontPath, LoadOptions{EnvironmentsPath: envPath})
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if got := def.EnvironmentNames(); !reflect.DeepEqual(got, []string{"dev", "production"}) {
		t.Errorf("EnvironmentNames() = %v", got)
	}
	dev, _ := def.Environment("dev")
	if dev.Variables["API_URL"] != "http://dev.internal" {
		t.Errorf("sidecar should override API_URL, got %q", dev.Variables["API_URL"])
	}
	if dev.Variables["TIMEOUT"] != "5" {
		t.Errorf("TIMEOUT = %q, want 5", dev.Variables["TIMEOUT"])
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), LoadOptions{})
	if !errors.Is(err, errors.InvalidDefinition) {
		t.Errorf("expected INVALID_DEFINITION, got %v", err)
	}
}

func TestLoadFile_UnknownGroup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ontology.yaml")
	doc := "accessGroups:\n  - name: admin\nfunctions:\n  f:\n    access: [root]\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFile(path, LoadOptions{})
	if !errors.Is(err, errors.UnknownAccessGroup) {
		t.Errorf("expected UNKNOWN_ACCESS_GROUP, got %v", err)
	}
}
