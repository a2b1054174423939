package testutil

import (
	"encoding/json"
	"strings"
	"testing"
)

// volatileFields change on every run and are dropped before comparison.
var volatileFields = map[string]bool{
	"writtenAt": true,
	"decidedAt": true,
	"createdAt": true,
	"requestId": true,
}

// MarshalNormalized encodes data for golden comparison: a JSON round trip
// (so map keys come out sorted), volatile fields removed, fixture paths
// replaced with a placeholder, two-space indent and a trailing newline.
func MarshalNormalized(t *testing.T, fixture *FixtureContext, data any) []byte {
	t.Helper()

	normalized := Normalize(t, fixture, data)
	out, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal normalized data: %v", err)
	}
	return append(out, '\n')
}

// Normalize returns a generic copy of data with the normalization rules
// applied. Raw JSON bytes are decoded rather than re-encoded.
func Normalize(t *testing.T, fixture *FixtureContext, data any) any {
	t.Helper()

	raw, ok := data.([]byte)
	if !ok {
		var err error
		if raw, err = json.Marshal(data); err != nil {
			t.Fatalf("Failed to marshal data for normalization: %v", err)
		}
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("Failed to unmarshal data for normalization: %v", err)
	}

	root := ""
	if fixture != nil {
		root = fixture.Root
	}
	return normalizeValue(generic, root)
}

func normalizeValue(v any, fixtureRoot string) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, child := range val {
			if volatileFields[k] {
				continue
			}
			result[k] = normalizeValue(child, fixtureRoot)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, child := range val {
			result[i] = normalizeValue(child, fixtureRoot)
		}
		return result
	case string:
		if fixtureRoot != "" && strings.Contains(val, fixtureRoot) {
			return strings.ReplaceAll(val, fixtureRoot, "<fixture>")
		}
		return val
	default:
		return v
	}
}
