package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/taskward/taskward/pkg/api"
	"github.com/taskward/taskward/pkg/auth"
	"github.com/taskward/taskward/pkg/storage"
)

const bcryptCost = 12

const loginNotification = "New login detected from a different device"

func (a *Adapter) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req api.CreateUserRequest
	if !a.decodeValidBody(w, r, api.CreateUserSchema, &req) {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		a.logger.Error("hashing password failed", "error", err)
		writeError(w, api.NewInternalError())
		return
	}

	_, err = a.users.CreateUser(r.Context(), &api.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  string(hash),
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			writeError(w, api.ErrorResponse{Message: api.MsgUserExists, StatusCode: http.StatusConflict})
			return
		}
		a.logger.Error("creating user failed", "error", err)
		writeError(w, api.NewInternalError())
		return
	}

	writeJSON(w, http.StatusCreated, api.MsgUserCreated)
}

func (a *Adapter) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !a.decodeValidBody(w, r, api.LoginSchema, &req) {
		return
	}

	user, err := a.users.UserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, api.ErrorResponse{Message: api.MsgUserNotFound, StatusCode: http.StatusNotFound})
			return
		}
		a.logger.Error("looking up user failed", "error", err)
		writeError(w, api.NewInternalError())
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		writeError(w, api.ErrorResponse{Message: api.MsgInvalidCredentials, StatusCode: http.StatusUnauthorized})
		return
	}

	token, err := a.codec.Issue(user.ID, user.Email)
	if err != nil {
		a.logger.Error("issuing token failed", "error", err)
		writeError(w, api.NewInternalError())
		return
	}

	if a.notifier != nil {
		a.notifier.NotifyUser(user.ID, loginNotification)
	}

	writeJSON(w, http.StatusOK, token)
}

func (a *Adapter) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		writeError(w, api.NewUnauthorizedError())
		return
	}
	writeJSON(w, http.StatusOK, principal)
}

func (a *Adapter) handleListTasks(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		writeError(w, api.NewUnauthorizedError())
		return
	}

	tasks, err := a.tasks.TasksByOwner(r.Context(), principal.ID)
	if err != nil {
		a.logger.Error("listing tasks failed", "error", err, "user_id", principal.ID)
		writeError(w, api.NewInternalError())
		return
	}
	if tasks == nil {
		tasks = []api.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (a *Adapter) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		writeError(w, api.NewUnauthorizedError())
		return
	}

	var req api.CreateTaskRequest
	if !a.decodeValidBody(w, r, api.CreateTaskSchema, &req) {
		return
	}

	_, err := a.tasks.CreateTask(r.Context(), &api.Task{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		UserID:      principal.ID,
	})
	if err != nil {
		a.logger.Error("creating task failed", "error", err, "user_id", principal.ID)
		writeError(w, api.NewInternalError())
		return
	}

	writeJSON(w, http.StatusCreated, api.MsgTaskCreated)
}

func (a *Adapter) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(w, api.NewForbiddenError())
		return
	}

	task, err := a.tasks.TaskByID(r.Context(), id)
	if err != nil {
		// The ownership gate verified the task moments ago; a concurrent
		// delete still shows up as the uniform 403.
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, api.NewForbiddenError())
			return
		}
		a.logger.Error("loading task failed", "error", err, "task_id", id)
		writeError(w, api.NewInternalError())
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (a *Adapter) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(w, api.NewForbiddenError())
		return
	}

	var req api.UpdateTaskRequest
	if !a.decodeValidBody(w, r, api.UpdateTaskSchema, &req) {
		return
	}

	task, err := a.tasks.UpdateTask(r.Context(), id, &req)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, api.NewForbiddenError())
			return
		}
		a.logger.Error("updating task failed", "error", err, "task_id", id)
		writeError(w, api.NewInternalError())
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (a *Adapter) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(w, api.NewForbiddenError())
		return
	}

	if err := a.tasks.DeleteTask(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, api.NewForbiddenError())
			return
		}
		a.logger.Error("deleting task failed", "error", err, "task_id", id)
		writeError(w, api.NewInternalError())
		return
	}

	writeJSON(w, http.StatusOK, api.MsgTaskDeleted)
}

func taskID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task id %q", raw)
	}
	return id, nil
}
