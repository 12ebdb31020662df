package helpers

import (
	"encoding/json"
	"net/http"
)

// Standard Error Responses

var (
	ErrBadRequest          = &HTTPError{Code: "bad_request", Message: "Bad request", Status: http.StatusBadRequest}
	ErrNotFound            = &HTTPError{Code: "not_found", Message: "Not found", Status: http.StatusNotFound}
	ErrInternalServerError = &HTTPError{Code: "internal_error", Message: "Internal server error", Status: http.StatusInternalServerError}
	ErrBadGateway          = &HTTPError{Code: "bad_gateway", Message: "Provider error", Status: http.StatusBadGateway}

	// Resultados del callback OAuth, distinguibles para el frontend:
	ErrTokenMissing   = &HTTPError{Code: "token_missing", Message: "No pending authorization for this session", Status: http.StatusBadRequest}
	ErrTokenMismatch  = &HTTPError{Code: "token_mismatch", Message: "Callback token does not match pending authorization", Status: http.StatusBadRequest}
	ErrNoCode         = &HTTPError{Code: "no_code", Message: "Provider returned no authorization code or token", Status: http.StatusBadRequest}
	ErrConfiguration  = &HTTPError{Code: "configuration_error", Message: "Provider is misconfigured", Status: http.StatusInternalServerError}
	ErrInvalidSigned  = &HTTPError{Code: "invalid_signed_request", Message: "Invalid signed request", Status: http.StatusBadRequest}
	ErrInvalidState   = &HTTPError{Code: "invalid_state", Message: "Invalid or expired state parameter", Status: http.StatusBadRequest}
	ErrProviderDenied = &HTTPError{Code: "provider_error", Message: "Provider denied the authorization", Status: http.StatusBadRequest}
)

// HTTPError represents a standard API error.
type HTTPError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Status  int    `json:"-"`
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

// WithDetail returns a copy of the error with specific details.
func (e *HTTPError) WithDetail(detail string) *HTTPError {
	return &HTTPError{
		Code:    e.Code,
		Message: e.Message,
		Detail:  detail,
		Status:  e.Status,
	}
}

// WriteError writes the error to the response writer.
func WriteError(w http.ResponseWriter, err error) {
	httpErr, ok := err.(*HTTPError)
	if !ok {
		httpErr = ErrInternalServerError
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(httpErr.Status)
	_ = json.NewEncoder(w).Encode(httpErr)
}

// WriteJSON serializa una respuesta exitosa.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
