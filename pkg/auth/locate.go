package auth

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ErrMissingToken is returned when the request carries no bearer token.
// It is raised before any credential verification is attempted.
var ErrMissingToken = errors.New("missing authentication token")

// Handshake is the initial exchange of a real-time connection: the query
// parameters sent with the upgrade request. It exists so the two
// structurally incompatible transports (a short-lived HTTP request and a
// long-lived connection handshake) stay distinct shapes instead of being
// squeezed into one.
type Handshake struct {
	Query url.Values
}

// Locate extracts the raw bearer token from a request-like carrier.
// Supported shapes:
//
//   - *http.Request: the "Authorization: Bearer <token>" header
//   - Handshake: the "token" query parameter
//
// The shape is inspected once at the pipeline's entry; this is the single
// point of runtime type dispatch in the pipeline.
func Locate(carrier any) (string, error) {
	switch c := carrier.(type) {
	case *http.Request:
		return fromAuthorizationHeader(c)
	case Handshake:
		return fromHandshakeQuery(c)
	case *Handshake:
		return fromHandshakeQuery(*c)
	default:
		return "", fmt.Errorf("unsupported token carrier %T", carrier)
	}
}

func fromAuthorizationHeader(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", ErrMissingToken
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

func fromHandshakeQuery(h Handshake) (string, error) {
	token := h.Query.Get("token")
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
