package model

import "time"

// Task is the minimal task shape the timer needs: something to attach work
// sessions to and a pomodoro counter bumped on each completed work phase.
type Task struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	Title         string     `json:"title"`
	Description   *string    `json:"description,omitempty"`
	Completed     bool       `json:"completed"`
	PomodoroCount int        `json:"pomodoroCount"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}
