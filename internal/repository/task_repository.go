package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ronaldtieu/pomodoro-project/internal/model"
)

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	var description interface{}
	if task.Description != nil {
		description = *task.Description
	}

	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO tasks (
			id, user_id, title, description, completed, pomodoro_count,
			created_at, updated_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.UserID,
		task.Title,
		description,
		task.Completed,
		task.PomodoroCount,
		formatTime(task.CreatedAt),
		formatTime(task.UpdatedAt),
		formatTimePtr(task.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) Get(ctx context.Context, id string) (*model.Task, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT id, user_id, title, description, completed, pomodoro_count,
		        created_at, updated_at, completed_at
		 FROM tasks
		 WHERE id = ?`,
		id,
	)
	return scanTask(row)
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID string) ([]model.Task, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, user_id, title, description, completed, pomodoro_count,
		        created_at, updated_at, completed_at
		 FROM tasks
		 WHERE user_id = ?
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tasks = append(tasks, *task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	return tasks, nil
}

// IncrementPomodoroCount bumps the task's completed-pomodoro tally by one.
func (r *TaskRepository) IncrementPomodoroCount(ctx context.Context, taskID string) error {
	result, err := r.db.ExecContext(
		ctx,
		`UPDATE tasks
		 SET pomodoro_count = pomodoro_count + 1, updated_at = ?
		 WHERE id = ?`,
		formatTime(time.Now().UTC()),
		taskID,
	)
	if err != nil {
		return fmt.Errorf("increment pomodoro count: %w", err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepository) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(
		ctx,
		`UPDATE tasks
		 SET completed = 1, completed_at = ?, updated_at = ?
		 WHERE id = ?`,
		formatTime(at),
		formatTime(at),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark task completed: %w", err)
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func scanTask(s scanner) (*model.Task, error) {
	task := model.Task{}
	var description sql.NullString
	var createdAt string
	var updatedAt string
	var completedAt sql.NullString
	err := s.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&description,
		&task.Completed,
		&task.PomodoroCount,
		&createdAt,
		&updatedAt,
		&completedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}

	if description.Valid {
		value := description.String
		task.Description = &value
	}

	task.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse task created_at: %w", err)
	}
	task.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse task updated_at: %w", err)
	}
	if completedAt.Valid {
		parsed, parseErr := parseTime(completedAt.String)
		if parseErr != nil {
			return nil, fmt.Errorf("parse task completed_at: %w", parseErr)
		}
		task.CompletedAt = &parsed
	}

	return &task, nil
}
