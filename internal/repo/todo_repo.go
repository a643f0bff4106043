package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/tasklane/server/internal/model"
)

// TodoRepo defines scoped CRUD over to-do items. Every statement filters by
// the owning user; a row owned by someone else behaves exactly like a row
// that does not exist.
type TodoRepo interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.ToDo, error)
	Create(ctx context.Context, todo model.ToDo) (model.ToDo, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (model.ToDo, error)
	Update(ctx context.Context, todo model.ToDo) (model.ToDo, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type todoRepo struct {
	db *sql.DB
}

// NewTodoRepo creates a new TodoRepo instance.
func NewTodoRepo(db *sql.DB) TodoRepo {
	return &todoRepo{db: db}
}

const todoColumns = `id, user_id, title, description, completed, due_date,
	priority, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (model.ToDo, error) {
	var todo model.ToDo
	var idStr, userIDStr string
	var priority, status string
	err := row.Scan(
		&idStr,
		&userIDStr,
		&todo.Title,
		&todo.Description,
		&todo.Completed,
		&todo.DueDate,
		&priority,
		&status,
		&todo.CreatedAt,
		&todo.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.ToDo{}, ErrNotFound
		}
		return model.ToDo{}, fmt.Errorf("scan to-do: %w", err)
	}
	todo.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.ToDo{}, fmt.Errorf("parse to-do ID: %w", err)
	}
	todo.UserID, err = uuid.Parse(userIDStr)
	if err != nil {
		return model.ToDo{}, fmt.Errorf("parse to-do user ID: %w", err)
	}
	todo.Priority = model.Priority(priority)
	todo.Status = model.Status(status)
	return todo, nil
}

// ListByUser returns the user's to-dos ordered by due date ascending.
// Rows without a due date sort last (Postgres default for ASC).
func (r *todoRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.ToDo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+todoColumns+`
		FROM to_dos
		WHERE user_id = $1
		ORDER BY due_date ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list to-dos: %w", err)
	}
	defer rows.Close()

	todos := make([]model.ToDo, 0)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate to-dos: %w", err)
	}
	return todos, nil
}

// Create inserts a new to-do. The owner is taken from todo.UserID, which the
// caller sets server-side.
func (r *todoRepo) Create(ctx context.Context, todo model.ToDo) (model.ToDo, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO to_dos (user_id, title, description, completed, due_date, priority, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+todoColumns,
		todo.UserID, todo.Title, todo.Description, todo.Completed,
		todo.DueDate, string(todo.Priority), string(todo.Status))
	return scanTodo(row)
}

// GetByID returns the to-do if it exists and belongs to userID.
func (r *todoRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (model.ToDo, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+todoColumns+`
		FROM to_dos
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	return scanTodo(row)
}

// Update writes the full row back, scoped to the owner.
func (r *todoRepo) Update(ctx context.Context, todo model.ToDo) (model.ToDo, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE to_dos
		SET title = $3, description = $4, completed = $5, due_date = $6,
		    priority = $7, status = $8, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+todoColumns,
		todo.ID, todo.UserID, todo.Title, todo.Description, todo.Completed,
		todo.DueDate, string(todo.Priority), string(todo.Status))
	return scanTodo(row)
}

// Delete removes the to-do if it belongs to userID.
func (r *todoRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM to_dos WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("delete to-do: %w", err)
	}
	return requireRowAffected(result)
}
