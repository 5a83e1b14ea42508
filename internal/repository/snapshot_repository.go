package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ronaldtieu/pomodoro-project/internal/model"
)

// SnapshotRepository is the durable backing of the timer state store: one row
// per account holding the last written TimerSnapshot, read back at engine
// construction so the countdown survives process restarts.
type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Get(ctx context.Context, userID string) (*model.TimerSnapshot, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT user_id, active, paused, session_type, remaining_seconds,
		        duration_seconds, target_end_time, completed_today, completed_day,
		        current_task_id, session_record_id, version, updated_at
		 FROM timer_states
		 WHERE user_id = ?`,
		userID,
	)

	snapshot := model.TimerSnapshot{}
	var sessionType string
	var targetEndTime sql.NullString
	var currentTaskID sql.NullString
	var sessionRecordID sql.NullString
	var updatedAt string
	err := row.Scan(
		&snapshot.UserID,
		&snapshot.Active,
		&snapshot.Paused,
		&sessionType,
		&snapshot.RemainingSeconds,
		&snapshot.DurationSeconds,
		&targetEndTime,
		&snapshot.CompletedToday,
		&snapshot.CompletedDay,
		&currentTaskID,
		&sessionRecordID,
		&snapshot.Version,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan timer state: %w", err)
	}

	snapshot.SessionType = model.SessionType(sessionType)
	if targetEndTime.Valid {
		parsed, parseErr := parseTime(targetEndTime.String)
		if parseErr != nil {
			return nil, fmt.Errorf("parse timer state target_end_time: %w", parseErr)
		}
		snapshot.TargetEndTime = &parsed
	}
	if currentTaskID.Valid {
		value := currentTaskID.String
		snapshot.CurrentTaskID = &value
	}
	if sessionRecordID.Valid {
		value := sessionRecordID.String
		snapshot.SessionRecordID = &value
	}

	snapshot.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse timer state updated_at: %w", err)
	}

	return &snapshot, nil
}

// Save upserts the snapshot row for its account.
func (r *SnapshotRepository) Save(ctx context.Context, snapshot *model.TimerSnapshot) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO timer_states (
			user_id, active, paused, session_type, remaining_seconds,
			duration_seconds, target_end_time, completed_today, completed_day,
			current_task_id, session_record_id, version, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			active = excluded.active,
			paused = excluded.paused,
			session_type = excluded.session_type,
			remaining_seconds = excluded.remaining_seconds,
			duration_seconds = excluded.duration_seconds,
			target_end_time = excluded.target_end_time,
			completed_today = excluded.completed_today,
			completed_day = excluded.completed_day,
			current_task_id = excluded.current_task_id,
			session_record_id = excluded.session_record_id,
			version = excluded.version,
			updated_at = excluded.updated_at`,
		snapshot.UserID,
		snapshot.Active,
		snapshot.Paused,
		string(snapshot.SessionType),
		snapshot.RemainingSeconds,
		snapshot.DurationSeconds,
		formatTimePtr(snapshot.TargetEndTime),
		snapshot.CompletedToday,
		snapshot.CompletedDay,
		nullableString(snapshot.CurrentTaskID),
		nullableString(snapshot.SessionRecordID),
		snapshot.Version,
		formatTime(snapshot.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save timer state: %w", err)
	}
	return nil
}
