package mcp

import (
	"encoding/base64"
	"encoding/json"

	"ontolock/internal/errors"
)

// DefaultPageSize is the default number of tools per page
const DefaultPageSize = 50

// ToolsCursorPayload contains pagination state for tools/list. The toolset
// hash ties a cursor to the list it was issued for; a reload or a different
// principal invalidates it.
type ToolsCursorPayload struct {
	V           int    `json:"v"`
	Offset      int    `json:"o"`
	ToolsetHash string `json:"h"`
}

// EncodeToolsCursor encodes cursor data to a URL-safe base64 string
func EncodeToolsCursor(offset int, toolsetHash string) string {
	data, err := json.Marshal(ToolsCursorPayload{V: 1, Offset: offset, ToolsetHash: toolsetHash})
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeToolsCursor decodes and validates a cursor string.
// An empty cursor is the first page.
func DecodeToolsCursor(cursor string, currentHash string) (int, error) {
	if cursor == "" {
		return 0, nil
	}

	data, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, invalidCursor("invalid encoding")
	}
	var payload ToolsCursorPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return 0, invalidCursor("invalid format")
	}
	if payload.V != 1 {
		return 0, invalidCursor("version mismatch")
	}
	if payload.ToolsetHash != currentHash {
		return 0, invalidCursor("toolset changed since cursor was issued")
	}
	if payload.Offset < 0 {
		return 0, invalidCursor("invalid offset")
	}
	return payload.Offset, nil
}

func invalidCursor(reason string) error {
	return errors.Errorf(errors.InvalidArguments, "invalid cursor: %s", reason)
}

// PaginateTools returns a page of tools and the next cursor, if more exist.
func PaginateTools(allTools []Tool, offset int, pageSize int, toolsetHash string) ([]Tool, string) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	total := len(allTools)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []Tool{}, ""
	}

	end := min(offset+pageSize, total)
	var next string
	if end < total {
		next = EncodeToolsCursor(end, toolsetHash)
	}
	return allTools[offset:end], next
}
