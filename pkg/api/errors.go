package api

import "net/http"

// Fixed user-facing messages. Auth failures never expose their cause and
// the ownership message does not distinguish "missing" from "not yours".
const (
	MsgUnauthorized       = "Unauthorized"
	MsgForbiddenTask      = "You don't have access to this task or Task not found."
	MsgUserNotFound       = "User not found."
	MsgUserExists         = "User already exists with given email."
	MsgInvalidCredentials = "Invalid credentials."
	MsgMalformedBody      = "Malformed JSON body."
	MsgInternalError      = "Internal server error."
	MsgUserCreated        = "User created."
	MsgTaskCreated        = "Task created."
	MsgTaskDeleted        = "Task deleted."
)

// ErrorResponse is the fixed-shape body of every non-validation error.
type ErrorResponse struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// NewUnauthorizedError builds the 401 response body.
func NewUnauthorizedError() ErrorResponse {
	return ErrorResponse{Message: MsgUnauthorized, StatusCode: http.StatusUnauthorized}
}

// NewForbiddenError builds the 403 response body for task routes.
func NewForbiddenError() ErrorResponse {
	return ErrorResponse{Message: MsgForbiddenTask, StatusCode: http.StatusForbidden}
}

// NewInternalError builds the generic 500 response body.
func NewInternalError() ErrorResponse {
	return ErrorResponse{Message: MsgInternalError, StatusCode: http.StatusInternalServerError}
}
