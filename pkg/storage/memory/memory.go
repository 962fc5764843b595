// Package memory provides an in-memory implementation of the storage
// interfaces. It is used for development and as the backing store in
// unit tests; data does not survive a restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/taskward/taskward/pkg/api"
	"github.com/taskward/taskward/pkg/storage"
)

// Store is a mutex-guarded in-memory store with auto-incremented ids.
type Store struct {
	mu         sync.RWMutex
	users      map[int64]*api.User
	tasks      map[int64]*api.Task
	nextUserID int64
	nextTaskID int64
}

// Ensure Store implements storage.Store at compile time.
var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:      make(map[int64]*api.User),
		tasks:      make(map[int64]*api.Task),
		nextUserID: 1,
		nextTaskID: 1,
	}
}

// CreateUser inserts a new user. Email uniqueness is case-insensitive,
// matching the unique index of the postgres backend.
func (s *Store) CreateUser(_ context.Context, user *api.User) (*api.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return nil, storage.ErrConflict
		}
	}

	now := time.Now()
	stored := *user
	stored.ID = s.nextUserID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.nextUserID++
	s.users[stored.ID] = &stored

	out := stored
	return &out, nil
}

// UserByEmail returns the user with the given email.
func (s *Store) UserByEmail(_ context.Context, email string) (*api.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			out := *u
			return &out, nil
		}
	}
	return nil, storage.ErrNotFound
}

// UserByIDAndEmail returns the user matching both id and email.
func (s *Store) UserByIDAndEmail(_ context.Context, id int64, email string) (*api.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok || !strings.EqualFold(u.Email, email) {
		return nil, storage.ErrNotFound
	}
	out := *u
	return &out, nil
}

// CreateTask inserts a new task.
func (s *Store) CreateTask(_ context.Context, task *api.Task) (*api.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	stored := *task
	stored.ID = s.nextTaskID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.nextTaskID++
	s.tasks[stored.ID] = &stored

	out := stored
	return &out, nil
}

// TaskByID returns the task with the given id.
func (s *Store) TaskByID(_ context.Context, id int64) (*api.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *t
	return &out, nil
}

// TasksByOwner returns the owner's tasks, newest id first.
func (s *Store) TasksByOwner(_ context.Context, ownerID int64) ([]api.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tasks []api.Task
	for _, t := range s.tasks {
		if t.UserID == ownerID {
			tasks = append(tasks, *t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID > tasks[j].ID })
	return tasks, nil
}

// UpdateTask applies the non-nil fields of upd.
func (s *Store) UpdateTask(_ context.Context, id int64, upd *api.UpdateTaskRequest) (*api.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
	t.UpdatedAt = time.Now()

	out := *t
	return &out, nil
}

// DeleteTask removes the task.
func (s *Store) DeleteTask(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

// TaskExistsForOwner reports whether the task exists and belongs to ownerID.
func (s *Store) TaskExistsForOwner(_ context.Context, taskID, ownerID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[taskID]
	return ok && t.UserID == ownerID, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() {}
