package http

import (
	"encoding/json"
	"net/http"

	"github.com/taskward/taskward/pkg/api"
	"github.com/taskward/taskward/pkg/schema"
)

// writeJSON serializes v with the given status code. Plain confirmation
// strings ("Task created.") serialize as JSON strings.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a fixed-shape error body with its status code.
func writeError(w http.ResponseWriter, resp api.ErrorResponse) {
	writeJSON(w, resp.StatusCode, resp)
}

// writeValidationError writes the full validation report as the 422
// body. The report is never collapsed to a single string: clients
// render field-level errors from it.
func writeValidationError(w http.ResponseWriter, verr *schema.Error) {
	writeJSON(w, http.StatusUnprocessableEntity, verr)
}
