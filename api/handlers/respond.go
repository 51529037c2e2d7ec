package handlers

import (
	"encoding/json"
	"net/http"
)

// APIError is the JSON error envelope every handler writes on failure.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`

	internal error
}

func (e *APIError) Error() string {
	return e.Message
}

// WithInternal attaches the underlying error for logging. It is never
// serialized to the client.
func (e *APIError) WithInternal(err error) *APIError {
	e.internal = err
	return e
}

// WriteHTTP writes the error envelope to the response.
func (e *APIError) WriteHTTP(w http.ResponseWriter) {
	respondJSON(w, e.Status, map[string]*APIError{"error": e})
}

func badRequest(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: "bad_request", Message: message}
}

func validationError(message string) *APIError {
	return &APIError{Status: http.StatusUnprocessableEntity, Code: "validation_error", Message: message}
}

func unauthorized(message string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: message}
}

func forbidden(message string) *APIError {
	return &APIError{Status: http.StatusForbidden, Code: "forbidden", Message: message}
}

func notFound(resource string) *APIError {
	return &APIError{Status: http.StatusNotFound, Code: "not_found", Message: resource + " not found"}
}

func conflict(message string) *APIError {
	return &APIError{Status: http.StatusConflict, Code: "conflict", Message: message}
}

func internalError(message string) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Code: "internal", Message: message}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
