package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ronaldtieu/pomodoro-project/internal/model"
)

// SessionRepository is the durable session ledger. Records become terminal
// once completed_at or cancelled_at is set; the guards in MarkCompleted and
// MarkCancelled make both calls no-ops against terminal records instead of
// reopening them.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, record *model.SessionRecord) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO pomodoro_sessions (
			id, user_id, task_id, type, duration_seconds,
			break_taken, break_skipped, started_at, completed_at, cancelled_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.UserID,
		nullableString(record.TaskID),
		string(record.Type),
		record.DurationSeconds,
		record.BreakTaken,
		record.BreakSkipped,
		formatTime(record.StartedAt),
		formatTimePtr(record.CompletedAt),
		formatTimePtr(record.CancelledAt),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(
		ctx,
		`UPDATE pomodoro_sessions
		 SET completed_at = ?
		 WHERE id = ? AND completed_at IS NULL AND cancelled_at IS NULL`,
		formatTime(at),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark session completed: %w", err)
	}
	return nil
}

func (r *SessionRepository) MarkCancelled(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(
		ctx,
		`UPDATE pomodoro_sessions
		 SET cancelled_at = ?
		 WHERE id = ? AND completed_at IS NULL AND cancelled_at IS NULL`,
		formatTime(at),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark session cancelled: %w", err)
	}
	return nil
}

func (r *SessionRepository) UpdateFlags(ctx context.Context, id string, breakTaken, breakSkipped bool) error {
	_, err := r.db.ExecContext(
		ctx,
		`UPDATE pomodoro_sessions
		 SET break_taken = ?, break_skipped = ?
		 WHERE id = ?`,
		breakTaken,
		breakSkipped,
		id,
	)
	if err != nil {
		return fmt.Errorf("update session flags: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*model.SessionRecord, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT id, user_id, task_id, type, duration_seconds,
		        break_taken, break_skipped, started_at, completed_at, cancelled_at
		 FROM pomodoro_sessions
		 WHERE id = ?`,
		id,
	)
	return scanSessionRecord(row)
}

func (r *SessionRepository) Query(ctx context.Context, userID string, filter model.SessionFilter) ([]model.SessionRecord, error) {
	conditions := []string{"user_id = ?"}
	args := []interface{}{userID}

	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.CompletedOnly {
		conditions = append(conditions, "completed_at IS NOT NULL")
	}
	if filter.From != nil {
		conditions = append(conditions, "started_at >= ?")
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, "started_at < ?")
		args = append(args, formatTime(*filter.To))
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)

	query := fmt.Sprintf(
		`SELECT id, user_id, task_id, type, duration_seconds,
		        break_taken, break_skipped, started_at, completed_at, cancelled_at
		 FROM pomodoro_sessions
		 WHERE %s
		 ORDER BY started_at DESC
		 LIMIT ?`,
		strings.Join(conditions, " AND "),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	records := make([]model.SessionRecord, 0, limit)
	for rows.Next() {
		record, scanErr := scanSessionRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return records, nil
}

func scanSessionRecord(s scanner) (*model.SessionRecord, error) {
	record := model.SessionRecord{}
	var taskID sql.NullString
	var recordType string
	var startedAt string
	var completedAt sql.NullString
	var cancelledAt sql.NullString
	err := s.Scan(
		&record.ID,
		&record.UserID,
		&taskID,
		&recordType,
		&record.DurationSeconds,
		&record.BreakTaken,
		&record.BreakSkipped,
		&startedAt,
		&completedAt,
		&cancelledAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	record.Type = model.SessionType(recordType)
	if taskID.Valid {
		value := taskID.String
		record.TaskID = &value
	}

	record.StartedAt, err = parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse session started_at: %w", err)
	}
	if completedAt.Valid {
		parsed, parseErr := parseTime(completedAt.String)
		if parseErr != nil {
			return nil, fmt.Errorf("parse session completed_at: %w", parseErr)
		}
		record.CompletedAt = &parsed
	}
	if cancelledAt.Valid {
		parsed, parseErr := parseTime(cancelledAt.String)
		if parseErr != nil {
			return nil, fmt.Errorf("parse session cancelled_at: %w", parseErr)
		}
		record.CancelledAt = &parsed
	}

	return &record, nil
}
