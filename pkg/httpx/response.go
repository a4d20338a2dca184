package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
)

// WriteJSON writes a JSON response with the given status code. Token-bearing
// responses must never be cached, so no-store headers are always set.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache sets Cache-Control and Pragma headers to prevent caching.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// Error is a stable machine-readable API error.
type Error struct {
	Status      int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// NewError builds an Error for ad-hoc responses.
func NewError(status int, code, description string) Error {
	return Error{Status: status, Code: code, Description: description}
}

// WriteError writes the error as a JSON response.
func (e Error) WriteError(w http.ResponseWriter) {
	WriteJSON(w, e.Status, e)
}

// Error implements the error interface so handlers can log Error values.
func (e Error) Error() string { return e.Code }

// Generic errors shared across handlers; domain-specific codes live with
// their handlers.
var (
	ErrInvalidRequestBody = NewError(http.StatusBadRequest, "INVALID_REQUEST", "Request body is missing or malformed.")
	ErrUnauthorized       = NewError(http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid bearer token.")
	ErrServerError        = NewError(http.StatusInternalServerError, "SERVER_ERROR", "An internal error occurred.")
)

// DecodeJSON parses a JSON request body into dst, limiting body size and
// rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return ErrInvalidRequestBody
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return ErrInvalidRequestBody
	}
	return nil
}
