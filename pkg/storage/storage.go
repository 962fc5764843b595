package storage

import (
	"context"

	"github.com/taskward/taskward/pkg/api"
)

// UserStore persists user accounts.
type UserStore interface {
	// CreateUser inserts a new user and returns it with the generated
	// id and timestamps. Returns ErrConflict if the email is taken.
	CreateUser(ctx context.Context, user *api.User) (*api.User, error)

	// UserByEmail returns the user with the given email, or ErrNotFound.
	UserByEmail(ctx context.Context, email string) (*api.User, error)

	// UserByIDAndEmail returns the user matching both id and email, or
	// ErrNotFound. The conjunction guards against credentials minted
	// for a prior account that reused the id.
	UserByIDAndEmail(ctx context.Context, id int64, email string) (*api.User, error)
}

// TaskStore persists tasks.
type TaskStore interface {
	// CreateTask inserts a new task and returns it with the generated
	// id and timestamps.
	CreateTask(ctx context.Context, task *api.Task) (*api.Task, error)

	// TaskByID returns the task with the given id, or ErrNotFound.
	TaskByID(ctx context.Context, id int64) (*api.Task, error)

	// TasksByOwner returns the owner's tasks, newest id first.
	TasksByOwner(ctx context.Context, ownerID int64) ([]api.Task, error)

	// UpdateTask applies the non-nil fields of upd and returns the
	// updated task, or ErrNotFound.
	UpdateTask(ctx context.Context, id int64, upd *api.UpdateTaskRequest) (*api.Task, error)

	// DeleteTask removes the task, or returns ErrNotFound.
	DeleteTask(ctx context.Context, id int64) error

	// TaskExistsForOwner reports whether a task with the given id exists
	// and belongs to ownerID. A missing task and a task owned by someone
	// else are both simply false.
	TaskExistsForOwner(ctx context.Context, taskID, ownerID int64) (bool, error)
}

// Store bundles both stores, satisfied by each backend.
type Store interface {
	UserStore
	TaskStore

	// Close releases the backend's resources.
	Close()
}
