package schema

import (
	"reflect"
	"testing"
)

func TestJSONSchema(t *testing.T) {
	n := Object(
		Prop("query", String()),
		Prop("owner", Optional(String()).FieldFrom("listUsers")),
		Prop("limit", Default(Number(), 10)),
		Prop("parent", Nullable(String())),
		Prop("status", Enum("open", "closed")),
		Prop("userId", String().UserContext()),
	)

	got := JSONSchema(n)
	if got["type"] != "object" {
		t.Fatalf("type = %v", got["type"])
	}
	if !reflect.DeepEqual(got["required"], []string{"query", "parent", "status", "userId"}) {
		t.Errorf("required = %v", got["required"])
	}

	props := got["properties"].(map[string]any)
	owner := props["owner"].(map[string]any)
	if owner["type"] != "string" || owner[KeywordFieldFrom] != "listUsers" {
		t.Errorf("owner = %v", owner)
	}
	limit := props["limit"].(map[string]any)
	if limit["type"] != "number" || limit["default"] != 10 {
		t.Errorf("limit = %v", limit)
	}
	parent := props["parent"].(map[string]any)
	anyOf, ok := parent["anyOf"].([]any)
	if !ok || len(anyOf) != 2 {
		t.Fatalf("parent = %v, want anyOf with null", parent)
	}
	status := props["status"].(map[string]any)
	if !reflect.DeepEqual(status["enum"], []any{"open", "closed"}) {
		t.Errorf("status enum = %v", status["enum"])
	}
	userID := props["userId"].(map[string]any)
	if userID[KeywordContext] != ContextUser {
		t.Errorf("userId = %v", userID)
	}
}

func TestJSONSchema_Nil(t *testing.T) {
	got := JSONSchema(nil)
	if got["type"] != "object" {
		t.Errorf("JSONSchema(nil) = %v", got)
	}
}

type countFolder struct{}

func (countFolder) Scalar(*Node) int { return 1 }
func (countFolder) Object(_ *Node, fields []FieldResult[int]) int {
	total := 1
	for _, f := range fields {
		total += f.Value
	}
	return total
}
func (countFolder) Array(_ *Node, elem int) int    { return elem + 1 }
func (countFolder) Wrapper(_ *Node, inner int) int { return inner }

func TestFold(t *testing.T) {
	n := Object(
		Prop("a", String()),
		Prop("b", Optional(Array(Object(Prop("c", Number()))))),
	)
	// object a array object c
	if got := Fold[int](n, countFolder{}); got != 5 {
		t.Errorf("Fold() = %d, want 5", got)
	}
}

func TestTransform_DropsFieldAndRequired(t *testing.T) {
	n := Object(
		Prop("name", String()),
		Prop("userId", String().UserContext()),
		Prop("nested", Object(Prop("orgId", Optional(String().OrganizationContext())))),
	)

	out := Transform(n, func(c *Node) *Node {
		if a, ok := c.Annotation(); ok && a.IsContext() {
			return nil
		}
		return c
	})

	if _, ok := out.Field("userId"); ok {
		t.Error("userId should be dropped")
	}
	if out.IsRequired("userId") {
		t.Error("userId should be removed from required")
	}
	nested, _ := out.Field("nested")
	if len(nested.Fields()) != 0 {
		t.Errorf("nested fields = %v, want none", nested.Fields())
	}
	if _, ok := n.Field("userId"); !ok {
		t.Error("Transform must not modify the input tree")
	}
}
