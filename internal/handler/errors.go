package handler

import (
	"encoding/json"
	"net/http"
)

// APIError is the error body returned by every non-2xx JSON response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type APIErrorResponse struct {
	Error APIError `json:"error"`
}

// newErrorResponse creates an APIErrorResponse with the given code and message
func newErrorResponse(code, message string) APIErrorResponse {
	return APIErrorResponse{
		Error: APIError{
			Code:    code,
			Message: message,
		},
	}
}

// Common error codes
const (
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// WriteError writes a JSON error envelope with the given status.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(newErrorResponse(code, message))
}

// NotFound handles requests for unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, ErrCodeNotFound, "Not found")
}

// MethodNotAllowed handles known routes requested with an unsupported method.
// Every route is read-only, so Allow is fixed.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET, HEAD")
	WriteError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method "+r.Method+" not allowed")
}
