package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/taskward/taskward/pkg/api"
	"github.com/taskward/taskward/pkg/observability"
	"github.com/taskward/taskward/pkg/schema"
)

// decodeValidBody is the validation gate for a handler: it decodes the
// request body, validates it against the schema, and unmarshals the
// normalized form into dst. Only the body is validated; path values and
// query strings are coerced by their handlers. Returns false after
// writing the error response, in which case the handler must stop and
// no mutating work may happen past a failed validation.
func (a *Adapter) decodeValidBody(w http.ResponseWriter, r *http.Request, s *schema.Object, dst any) bool {
	defer r.Body.Close()

	var body map[string]any
	dec := json.NewDecoder(io.LimitReader(r.Body, a.maxBodySize))
	if err := dec.Decode(&body); err != nil {
		if !errors.Is(err, io.EOF) {
			// Unparseable JSON never reaches the schema. A partial
			// schema would otherwise accept it as an empty update.
			writeError(w, api.ErrorResponse{Message: api.MsgMalformedBody, StatusCode: http.StatusBadRequest})
			return false
		}
		// An absent body reports like {}: required fields fire as missing.
		body = map[string]any{}
	}

	normalized, verr := s.Validate(body)
	if verr != nil {
		observability.ValidationFailuresTotal.WithLabelValues(routeLabel(r)).Inc()
		writeValidationError(w, verr)
		return false
	}

	// Round-trip the normalized map into the typed payload. Callers use
	// dst, never the raw body, downstream.
	raw, err := json.Marshal(normalized)
	if err != nil {
		a.logger.Error("marshaling normalized body", "error", err)
		writeError(w, api.NewInternalError())
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		a.logger.Error("binding normalized body", "error", err)
		writeError(w, api.NewInternalError())
		return false
	}
	return true
}

// routeLabel names the matched route for metrics, falling back to the
// method and raw path when no pattern matched.
func routeLabel(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return r.Method + " " + r.URL.Path
}
