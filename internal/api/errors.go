package api

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"ontolock/internal/errors"
)

// ErrorResponse represents an HTTP error response
type ErrorResponse struct {
	Error          string             `json:"error"`
	Code           string             `json:"code"`
	Details        interface{}        `json:"details,omitempty"`
	SuggestedFixes []errors.FixAction `json:"suggestedFixes,omitempty"`
}

// WriteError writes an error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err error, status int) {
	resp := ErrorResponse{
		Error: err.Error(),
		Code:  string(errors.InternalError),
	}

	var e *errors.Error
	if stderrors.As(err, &e) {
		resp.Code = string(e.Code)
		resp.Details = e.Details
		resp.SuggestedFixes = e.SuggestedFixes
	}

	WriteJSON(w, resp, status)
}

// WriteErr writes err with a status derived from its code.
func WriteErr(w http.ResponseWriter, err error) {
	WriteError(w, err, MapErrorToStatus(errors.CodeOf(err)))
}

// MapErrorToStatus maps error codes to HTTP status codes
func MapErrorToStatus(code errors.ErrorCode) int {
	switch code {
	case errors.LockfileMissing, errors.FunctionNotFound:
		return http.StatusNotFound // 404
	case errors.ReviewAlreadyDecided, errors.WriteInProgress, errors.LockMismatch:
		return http.StatusConflict // 409
	case errors.ReviewAbandoned:
		return http.StatusGone // 410
	case errors.Unauthorized:
		return http.StatusUnauthorized // 401
	case errors.AccessDenied:
		return http.StatusForbidden // 403
	case errors.InvalidArguments, errors.InvalidDefinition:
		return http.StatusBadRequest // 400
	case errors.ResolverUnavailable:
		return http.StatusServiceUnavailable // 503
	case errors.LockfileCorrupt, errors.InternalError:
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// BadRequest writes a 400 Bad Request error
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, errors.NewError(errors.InvalidArguments, message, nil), http.StatusBadRequest)
}

// NotFound writes a 404 Not Found error
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, errors.NewError(errors.FunctionNotFound, message, nil), http.StatusNotFound)
}

// InternalError writes a 500 Internal Server Error
func InternalError(w http.ResponseWriter, message string, err error) {
	WriteError(w, errors.NewError(errors.InternalError, message, err), http.StatusInternalServerError)
}
