// Package http serves the task API over HTTP. It wires the pipeline
// stages (authentication gate, ownership gate, validation gate) around
// the route handlers and owns the error-response contract.
package http

import (
	"log/slog"
	"net/http"

	"github.com/taskward/taskward/pkg/auth"
	"github.com/taskward/taskward/pkg/storage"
)

// Notifier delivers real-time events to interested principals. The
// notifications hub satisfies it; tests plug in a recorder.
type Notifier interface {
	NotifyUser(userID int64, message string)
}

// Adapter routes requests to the handlers and owns the middleware
// composition per route class (public, authenticated, resource-scoped).
type Adapter struct {
	users       storage.UserStore
	tasks       storage.TaskStore
	codec       *auth.Codec
	resolver    *auth.Resolver
	notifier    Notifier
	mux         *http.ServeMux
	logger      *slog.Logger
	maxBodySize int64
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
	Logger      *slog.Logger
}

// NewAdapter creates the adapter and registers all routes. notifier may
// be nil when the notifications gateway is disabled.
func NewAdapter(users storage.UserStore, tasks storage.TaskStore, codec *auth.Codec, resolver *auth.Resolver, notifier Notifier, cfg Config) *Adapter {
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = 1 << 20 // 1 MB
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	a := &Adapter{
		users:       users,
		tasks:       tasks,
		codec:       codec,
		resolver:    resolver,
		notifier:    notifier,
		mux:         http.NewServeMux(),
		logger:      cfg.Logger,
		maxBodySize: cfg.MaxBodySize,
	}

	authed := auth.RequireAuth(resolver, cfg.Logger)
	owned := auth.RequireTaskOwnership(tasks, cfg.Logger)

	// Public routes.
	a.mux.HandleFunc("POST /auth/signup", a.handleSignup)
	a.mux.HandleFunc("POST /auth/login", a.handleLogin)

	// Identity only.
	a.mux.Handle("GET /auth/user", authed(http.HandlerFunc(a.handleCurrentUser)))
	a.mux.Handle("GET /tasks", authed(http.HandlerFunc(a.handleListTasks)))
	a.mux.Handle("POST /tasks", authed(http.HandlerFunc(a.handleCreateTask)))

	// Identity plus ownership; the ownership gate runs strictly after
	// the authentication gate.
	a.mux.Handle("GET /tasks/{id}", authed(owned(http.HandlerFunc(a.handleGetTask))))
	a.mux.Handle("PUT /tasks/{id}", authed(owned(http.HandlerFunc(a.handleUpdateTask))))
	a.mux.Handle("DELETE /tasks/{id}", authed(owned(http.HandlerFunc(a.handleDeleteTask))))

	return a
}

// Handler returns the http.Handler for this adapter with request ID,
// logging, and panic recovery applied.
func (a *Adapter) Handler() http.Handler {
	var h http.Handler = a.mux
	h = Recovery(a.logger)(h)
	h = Logging(a.logger)(h)
	h = RequestID(h)
	return h
}
