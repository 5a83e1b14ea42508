package timer

import "github.com/ronaldtieu/pomodoro-project/internal/model"

type Action int

const (
	// ActionNone: load the next phase into the idle snapshot and wait for an
	// explicit start.
	ActionNone Action = iota
	// ActionAutoStart: begin the next phase immediately.
	ActionAutoStart
	// ActionPrompt: hold and ask the user whether to take the break.
	ActionPrompt
)

type Decision struct {
	Action Action
	Next   model.SessionType
}

// DecideNext picks what follows a completed phase. completedToday is the
// post-increment tally, so at sessionsUntilLongBreak=4 the 4th work session
// lands the long break, not the 5th. Returning to work after a break is the
// default expectation and never prompts; entering a break interrupts the user
// and does, unless breaks auto-start.
func DecideNext(justCompleted model.SessionType, completedToday int, settings model.UserSettings) Decision {
	if justCompleted == model.SessionWork {
		cadence := settings.SessionsUntilLongBreak
		if cadence <= 0 {
			cadence = model.DefaultSessionsUntilLongRest
		}

		next := model.SessionShortBreak
		if completedToday > 0 && completedToday%cadence == 0 {
			next = model.SessionLongBreak
		}

		if settings.AutoStartBreaks {
			return Decision{Action: ActionAutoStart, Next: next}
		}
		return Decision{Action: ActionPrompt, Next: next}
	}

	if settings.AutoStartWork {
		return Decision{Action: ActionAutoStart, Next: model.SessionWork}
	}
	return Decision{Action: ActionNone, Next: model.SessionWork}
}
