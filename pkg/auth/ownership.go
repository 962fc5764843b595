package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/taskward/taskward/pkg/api"
	"github.com/taskward/taskward/pkg/observability"
)

// OwnershipChecker is the single capability the ownership gate needs
// from the task collaborator. storage.TaskStore satisfies it.
type OwnershipChecker interface {
	TaskExistsForOwner(ctx context.Context, taskID, ownerID int64) (bool, error)
}

// RequireTaskOwnership is the ownership gate for routes addressing a
// single task via the {id} path value. It must run after RequireAuth.
//
// A non-numeric id, a missing task, and a task owned by someone else all
// produce the same 403 with the same message, so callers cannot probe
// for the existence of other users' tasks.
func RequireTaskOwnership(checker OwnershipChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				// Gate ordering violation: no resolved principal.
				logger.Error("ownership gate reached without principal", "path", r.URL.Path)
				writeJSONError(w, api.NewUnauthorizedError())
				return
			}

			taskID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
			if err != nil {
				observability.OwnershipDeniedTotal.Inc()
				writeJSONError(w, api.NewForbiddenError())
				return
			}

			owned, err := checker.TaskExistsForOwner(r.Context(), taskID, principal.ID)
			if err != nil {
				logger.Error("ownership check failed", "task_id", taskID, "error", err)
				writeJSONError(w, api.NewInternalError())
				return
			}
			if !owned {
				logger.Debug("ownership denied", "task_id", taskID, "user_id", principal.ID)
				observability.OwnershipDeniedTotal.Inc()
				writeJSONError(w, api.NewForbiddenError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
