// Package auth implements the authentication and authorization pipeline:
// signed time-bounded credentials (Codec), bearer-token extraction from
// HTTP headers and real-time handshakes (Locate), credential-to-user
// re-resolution (Resolver), and the two request gates (RequireAuth,
// RequireTaskOwnership) that compose into protected routes.
//
// The pipeline for a protected, resource-scoped request is strictly
// ordered: locate token, verify credential, resolve principal, confirm
// ownership, then the handler. Any failing stage short-circuits the rest.
package auth
