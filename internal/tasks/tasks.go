// Package tasks stores the to-do list shown alongside the dashboard.
package tasks

import (
	"context"
	"database/sql"
	"time"

	"jobtrack/internal/common/errors"
	"jobtrack/internal/database"
)

// Task is one to-do item.
type Task struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Complete  bool      `json:"complete"`
	CreatedAt time.Time `json:"created_at"`
}

// Repo persists tasks.
type Repo struct {
	db *database.DB
}

// NewRepo creates a task repository.
func NewRepo(db *database.DB) *Repo {
	return &Repo{db: db}
}

// Create inserts a task.
func (r *Repo) Create(ctx context.Context, task *Task) error {
	if task.Title == "" {
		return errors.ValidationError("task title is required")
	}

	query := r.db.Rebind(`INSERT INTO tasks (title, complete) VALUES (?, ?)`)

	if r.db.IsPostgres() {
		err := r.db.QueryRowContext(ctx, query+" RETURNING id",
			task.Title, task.Complete).Scan(&task.ID)
		if err != nil {
			return errors.InternalError("failed to create task", err)
		}
		return nil
	}

	result, err := r.db.ExecContext(ctx, query, task.Title, task.Complete)
	if err != nil {
		return errors.InternalError("failed to create task", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errors.InternalError("failed to get last insert id", err)
	}
	task.ID = int(id)
	return nil
}

// Get returns one task by id.
func (r *Repo) Get(ctx context.Context, id int) (*Task, error) {
	task := &Task{}
	err := r.db.QueryRowContext(ctx,
		r.db.Rebind(`SELECT id, title, complete, created_at FROM tasks WHERE id = ?`),
		id).Scan(&task.ID, &task.Title, &task.Complete, &task.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundError("task")
	}
	if err != nil {
		return nil, errors.InternalError("failed to get task", err)
	}
	return task, nil
}

// List returns all tasks, incomplete first, newest first within each group.
func (r *Repo) List(ctx context.Context) ([]*Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, complete, created_at FROM tasks ORDER BY complete, created_at DESC`)
	if err != nil {
		return nil, errors.InternalError("failed to list tasks", err)
	}
	defer rows.Close()

	var result []*Task
	for rows.Next() {
		task := &Task{}
		if err := rows.Scan(&task.ID, &task.Title, &task.Complete, &task.CreatedAt); err != nil {
			return nil, errors.InternalError("failed to scan task", err)
		}
		result = append(result, task)
	}

	return result, rows.Err()
}

// Update rewrites a task's title and completion flag.
func (r *Repo) Update(ctx context.Context, task *Task) error {
	if task.Title == "" {
		return errors.ValidationError("task title is required")
	}

	result, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE tasks SET title = ?, complete = ? WHERE id = ?`),
		task.Title, task.Complete, task.ID)
	if err != nil {
		return errors.InternalError("failed to update task", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.InternalError("failed to check update result", err)
	}
	if affected == 0 {
		return errors.NotFoundError("task")
	}
	return nil
}

// Toggle flips a task's completion flag and returns the updated task.
func (r *Repo) Toggle(ctx context.Context, id int) (*Task, error) {
	result, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE tasks SET complete = NOT complete WHERE id = ?`), id)
	if err != nil {
		return nil, errors.InternalError("failed to toggle task", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, errors.InternalError("failed to check toggle result", err)
	}
	if affected == 0 {
		return nil, errors.NotFoundError("task")
	}

	return r.Get(ctx, id)
}

// Delete removes a task.
func (r *Repo) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM tasks WHERE id = ?`), id)
	if err != nil {
		return errors.InternalError("failed to delete task", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.InternalError("failed to check delete result", err)
	}
	if affected == 0 {
		return errors.NotFoundError("task")
	}
	return nil
}
