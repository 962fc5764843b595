// Package postgres provides a PostgreSQL implementation of the storage
// interfaces using pgx/v5 connection pooling.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskward/taskward/pkg/api"
	"github.com/taskward/taskward/pkg/storage"
)

// Store is a PostgreSQL-backed user and task store.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements storage.Store at compile time.
var _ storage.Store = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

const userColumns = "id, first_name, last_name, email, password, created_at, updated_at"

// CreateUser inserts a new user. A unique violation on the email index
// maps to storage.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, user *api.User) (*api.User, error) {
	var out api.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (first_name, last_name, email, password)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+userColumns,
		user.FirstName, user.LastName, user.Email, user.Password,
	).Scan(&out.ID, &out.FirstName, &out.LastName, &out.Email, &out.Password, &out.CreatedAt, &out.UpdatedAt)

	if isUniqueViolation(err) {
		return nil, storage.ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return &out, nil
}

// UserByEmail returns the user with the given email.
func (s *Store) UserByEmail(ctx context.Context, email string) (*api.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

// UserByIDAndEmail returns the user matching both id and email.
func (s *Store) UserByIDAndEmail(ctx context.Context, id int64, email string) (*api.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND lower(email) = lower($2)`, id, email))
}

func (s *Store) scanUser(row pgx.Row) (*api.User, error) {
	var u api.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Password, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

const taskColumns = "id, title, description, priority, user_id, created_at, updated_at"

// CreateTask inserts a new task owned by task.UserID.
func (s *Store) CreateTask(ctx context.Context, task *api.Task) (*api.Task, error) {
	var out api.Task
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tasks (title, description, priority, user_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+taskColumns,
		task.Title, task.Description, task.Priority, task.UserID,
	).Scan(&out.ID, &out.Title, &out.Description, &out.Priority, &out.UserID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting task: %w", err)
	}
	return &out, nil
}

// TaskByID returns the task with the given id.
func (s *Store) TaskByID(ctx context.Context, id int64) (*api.Task, error) {
	return s.scanTask(s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
}

// TasksByOwner returns the owner's tasks, newest id first.
func (s *Store) TasksByOwner(ctx context.Context, ownerID int64) ([]api.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []api.Task
	for rows.Next() {
		var t api.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.UserID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask applies the non-nil fields of upd and returns the updated row.
func (s *Store) UpdateTask(ctx context.Context, id int64, upd *api.UpdateTaskRequest) (*api.Task, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}

	appendSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Title != nil {
		appendSet("title", *upd.Title)
	}
	if upd.Description != nil {
		appendSet("description", *upd.Description)
	}
	if upd.Priority != nil {
		appendSet("priority", *upd.Priority)
	}

	query := fmt.Sprintf(
		`UPDATE tasks SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(sets, ", "), taskColumns)

	return s.scanTask(s.pool.QueryRow(ctx, query, args...))
}

func (s *Store) scanTask(row pgx.Row) (*api.Task, error) {
	var t api.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.UserID, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying task: %w", err)
	}
	return &t, nil
}

// DeleteTask removes the task with the given id.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// TaskExistsForOwner reports whether the task exists and belongs to ownerID.
// The two conditions are checked as one conjunction so a task owned by
// someone else is indistinguishable from a missing one.
func (s *Store) TaskExistsForOwner(ctx context.Context, taskID, ownerID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM tasks WHERE id = $1 AND user_id = $2)`,
		taskID, ownerID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking task ownership: %w", err)
	}
	return exists, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// isUniqueViolation checks for a PostgreSQL unique violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
