package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ronaldtieu/pomodoro-project/internal/model"
)

// SettingsRepository persists per-account timer configuration. Get creates
// the default row on first access so the caller never sees a missing record.
type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Get(ctx context.Context, userID string) (model.UserSettings, error) {
	settings, err := r.get(ctx, userID)
	if err == ErrNotFound {
		return r.createDefaults(ctx, userID)
	}
	if err != nil {
		return model.UserSettings{}, err
	}
	return settings, nil
}

func (r *SettingsRepository) Update(ctx context.Context, userID string, patch model.SettingsPatch) (model.UserSettings, error) {
	current, err := r.Get(ctx, userID)
	if err != nil {
		return model.UserSettings{}, err
	}

	updated := patch.Apply(current)
	updated.UpdatedAt = time.Now().UTC()

	_, err = r.db.ExecContext(
		ctx,
		`UPDATE user_settings
		 SET work_minutes = ?,
		     short_break_minutes = ?,
		     long_break_minutes = ?,
		     sessions_until_long_break = ?,
		     auto_start_breaks = ?,
		     auto_start_work = ?,
		     sound_enabled = ?,
		     current_task_id = ?,
		     updated_at = ?
		 WHERE user_id = ?`,
		updated.WorkMinutes,
		updated.ShortBreakMinutes,
		updated.LongBreakMinutes,
		updated.SessionsUntilLongBreak,
		updated.AutoStartBreaks,
		updated.AutoStartWork,
		updated.SoundEnabled,
		nullableString(updated.CurrentTaskID),
		formatTime(updated.UpdatedAt),
		userID,
	)
	if err != nil {
		return model.UserSettings{}, fmt.Errorf("update settings: %w", err)
	}
	return updated, nil
}

func (r *SettingsRepository) get(ctx context.Context, userID string) (model.UserSettings, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT user_id, work_minutes, short_break_minutes, long_break_minutes,
		        sessions_until_long_break, auto_start_breaks, auto_start_work,
		        sound_enabled, current_task_id, created_at, updated_at
		 FROM user_settings
		 WHERE user_id = ?`,
		userID,
	)

	var settings model.UserSettings
	var currentTaskID sql.NullString
	var createdAt string
	var updatedAt string
	err := row.Scan(
		&settings.UserID,
		&settings.WorkMinutes,
		&settings.ShortBreakMinutes,
		&settings.LongBreakMinutes,
		&settings.SessionsUntilLongBreak,
		&settings.AutoStartBreaks,
		&settings.AutoStartWork,
		&settings.SoundEnabled,
		&currentTaskID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.UserSettings{}, ErrNotFound
		}
		return model.UserSettings{}, fmt.Errorf("scan settings: %w", err)
	}

	if currentTaskID.Valid {
		value := currentTaskID.String
		settings.CurrentTaskID = &value
	}

	settings.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return model.UserSettings{}, fmt.Errorf("parse settings created_at: %w", err)
	}
	settings.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return model.UserSettings{}, fmt.Errorf("parse settings updated_at: %w", err)
	}

	return settings, nil
}

func (r *SettingsRepository) createDefaults(ctx context.Context, userID string) (model.UserSettings, error) {
	settings := model.DefaultSettings(userID)
	now := time.Now().UTC()
	settings.CreatedAt = now
	settings.UpdatedAt = now

	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO user_settings (
			user_id, work_minutes, short_break_minutes, long_break_minutes,
			sessions_until_long_break, auto_start_breaks, auto_start_work,
			sound_enabled, current_task_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		settings.UserID,
		settings.WorkMinutes,
		settings.ShortBreakMinutes,
		settings.LongBreakMinutes,
		settings.SessionsUntilLongBreak,
		settings.AutoStartBreaks,
		settings.AutoStartWork,
		settings.SoundEnabled,
		nil,
		formatTime(settings.CreatedAt),
		formatTime(settings.UpdatedAt),
	)
	if err != nil {
		return model.UserSettings{}, fmt.Errorf("create default settings: %w", err)
	}
	return settings, nil
}

func nullableString(value *string) interface{} {
	if value == nil {
		return nil
	}
	return *value
}
