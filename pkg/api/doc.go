// Package api defines the wire-level types of the task API: the stored
// entities, the request payload schemas, and the fixed error response
// shapes shared by every handler.
package api
