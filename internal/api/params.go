package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// maxBodyBytes bounds decision request bodies
const maxBodyBytes = 64 << 10

// DecisionRequest is the body of POST /approve and POST /reject.
type DecisionRequest struct {
	Reviewer string `json:"reviewer"`
	Reason   string `json:"reason,omitempty"`
}

// parseDecision reads the JSON body. An empty body is a decision with no
// reviewer name; the route still requires a JSON content type.
func parseDecision(r *http.Request) (DecisionRequest, error) {
	var req DecisionRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && err != io.EOF {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	return req, nil
}

// parseLimit reads the limit query parameter
func parseLimit(r *http.Request, defaultVal int) (int, error) {
	val := r.URL.Query().Get("limit")
	if val == "" {
		return defaultVal, nil
	}
	limit, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid limit parameter: %w", err)
	}
	if limit < 0 {
		return 0, fmt.Errorf("limit must be non-negative")
	}
	return limit, nil
}
