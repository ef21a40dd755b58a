// Package shared holds the response helpers every handler uses so error
// bodies stay uniform across modules.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "carbonledger/pkg/domain-errors"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error            string            `json:"error"`
	ErrorDescription string            `json:"error_description,omitempty"`
	Fields           map[string]string `json:"fields,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError writes err as a JSON error response. The HTTP status and body
// come from the domain error code; internal errors deliberately omit the
// description so implementation detail never leaks to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := ErrorResponse{Error: string(code)}

	var de *dErrors.Error
	if errors.As(err, &de) && code != dErrors.CodeInternal {
		resp.ErrorDescription = de.Description
		resp.Fields = de.Fields
	}

	WriteJSON(w, dErrors.ToHTTPStatus(code), resp)
}
