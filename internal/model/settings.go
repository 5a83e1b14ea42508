package model

import "time"

const (
	DefaultWorkMinutes           = 25
	DefaultShortBreakMinutes     = 5
	DefaultLongBreakMinutes      = 15
	DefaultSessionsUntilLongRest = 4
)

// UserSettings is the per-account configuration the timer reads before every
// fresh phase start. Durations are stored in minutes, matching what the
// duration editor exposes.
type UserSettings struct {
	UserID                 string    `json:"userId"`
	WorkMinutes            int       `json:"workDuration"`
	ShortBreakMinutes      int       `json:"shortBreakDuration"`
	LongBreakMinutes       int       `json:"longBreakDuration"`
	SessionsUntilLongBreak int       `json:"sessionsUntilLongBreak"`
	AutoStartBreaks        bool      `json:"autoStartBreaks"`
	AutoStartWork          bool      `json:"autoStartWork"`
	SoundEnabled           bool      `json:"soundEnabled"`
	CurrentTaskID          *string   `json:"currentTaskId,omitempty"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

// DefaultSettings returns the configuration a brand-new account starts with.
func DefaultSettings(userID string) UserSettings {
	return UserSettings{
		UserID:                 userID,
		WorkMinutes:            DefaultWorkMinutes,
		ShortBreakMinutes:      DefaultShortBreakMinutes,
		LongBreakMinutes:       DefaultLongBreakMinutes,
		SessionsUntilLongBreak: DefaultSessionsUntilLongRest,
		AutoStartBreaks:        false,
		AutoStartWork:          false,
		SoundEnabled:           true,
	}
}

// DurationSeconds returns the configured phase length for a session type.
func (s UserSettings) DurationSeconds(t SessionType) int {
	switch t {
	case SessionShortBreak:
		return s.ShortBreakMinutes * 60
	case SessionLongBreak:
		return s.LongBreakMinutes * 60
	default:
		return s.WorkMinutes * 60
	}
}

// SettingsPatch carries a partial settings update; nil fields are untouched.
type SettingsPatch struct {
	WorkMinutes            *int    `json:"workDuration,omitempty"`
	ShortBreakMinutes      *int    `json:"shortBreakDuration,omitempty"`
	LongBreakMinutes       *int    `json:"longBreakDuration,omitempty"`
	SessionsUntilLongBreak *int    `json:"sessionsUntilLongBreak,omitempty"`
	AutoStartBreaks        *bool   `json:"autoStartBreaks,omitempty"`
	AutoStartWork          *bool   `json:"autoStartWork,omitempty"`
	SoundEnabled           *bool   `json:"soundEnabled,omitempty"`
	CurrentTaskID          *string `json:"currentTaskId,omitempty"`
	ClearCurrentTask       bool    `json:"-"`
}

// Apply merges the patch into a copy of the settings.
func (p SettingsPatch) Apply(s UserSettings) UserSettings {
	if p.WorkMinutes != nil {
		s.WorkMinutes = *p.WorkMinutes
	}
	if p.ShortBreakMinutes != nil {
		s.ShortBreakMinutes = *p.ShortBreakMinutes
	}
	if p.LongBreakMinutes != nil {
		s.LongBreakMinutes = *p.LongBreakMinutes
	}
	if p.SessionsUntilLongBreak != nil {
		s.SessionsUntilLongBreak = *p.SessionsUntilLongBreak
	}
	if p.AutoStartBreaks != nil {
		s.AutoStartBreaks = *p.AutoStartBreaks
	}
	if p.AutoStartWork != nil {
		s.AutoStartWork = *p.AutoStartWork
	}
	if p.SoundEnabled != nil {
		s.SoundEnabled = *p.SoundEnabled
	}
	if p.ClearCurrentTask {
		s.CurrentTaskID = nil
	} else if p.CurrentTaskID != nil {
		s.CurrentTaskID = p.CurrentTaskID
	}
	return s
}
