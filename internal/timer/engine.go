package timer

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ronaldtieu/pomodoro-project/internal/model"
)

// SessionLog is the durable ledger of phase records.
type SessionLog interface {
	Create(ctx context.Context, record *model.SessionRecord) error
	MarkCompleted(ctx context.Context, id string, at time.Time) error
	MarkCancelled(ctx context.Context, id string, at time.Time) error
	UpdateFlags(ctx context.Context, id string, breakTaken, breakSkipped bool) error
	Query(ctx context.Context, userID string, filter model.SessionFilter) ([]model.SessionRecord, error)
}

// TaskStore is the slice of the task backend the timer needs.
type TaskStore interface {
	IncrementPomodoroCount(ctx context.Context, taskID string) error
}

// Engine drives one account's countdown: wall-clock recompute, completion
// detection, ledger writes, and phase transitions. It is the single writer
// for completion side effects; every other observer only reads the store.
//
// Backend calls are best-effort and never block or fail the countdown. The
// timer's value is to the user in front of it; the ledger catches up on the
// next natural event.
type Engine struct {
	mu       sync.Mutex
	userID   string
	store    *Store
	settings *CachedSettings
	sessions SessionLog
	tasks    TaskStore
	clock    Clock
	logger   *log.Logger

	// pendingBreak is set when a work session finished and the user has not
	// yet taken or skipped the prompted break. Guarded by mu.
	pendingBreak *model.SessionType
}

func NewEngine(
	userID string,
	store *Store,
	settings *CachedSettings,
	sessions SessionLog,
	tasks TaskStore,
	clock Clock,
	logger *log.Logger,
) *Engine {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		userID:   userID,
		store:    store,
		settings: settings,
		sessions: sessions,
		tasks:    tasks,
		clock:    clock,
		logger:   logger,
	}
}

// Store exposes the snapshot store for read-only observers.
func (e *Engine) Store() *Store {
	return e.store
}

// PendingBreak returns the break type awaiting a take/skip decision, nil if
// none.
func (e *Engine) PendingBreak() *model.SessionType {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pendingBreak == nil {
		return nil
	}
	pending := *e.pendingBreak
	return &pending
}

// StartSession begins a phase. With resume=true it continues a paused phase:
// no new ledger record, no duration reload, just re-activation against a
// fresh wall-clock anchor computed from the stored remaining seconds.
func (e *Engine) StartSession(ctx context.Context, sessionType model.SessionType, taskID *string, resume bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if resume {
		e.resume(ctx)
		return
	}
	if !model.ValidSessionType(sessionType) {
		e.logger.Printf("timer: ignoring start with invalid session type %q", sessionType)
		return
	}
	e.pendingBreak = nil
	e.start(ctx, sessionType, taskID)
}

func (e *Engine) resume(ctx context.Context) {
	snap := e.store.Snapshot()
	if !snap.Paused {
		e.logger.Printf("timer: ignoring resume while not paused (user %s)", e.userID)
		return
	}
	if snap.RemainingSeconds <= 0 {
		e.logger.Printf("timer: ignoring resume with no time remaining (user %s)", e.userID)
		return
	}

	target := e.clock.Now().Add(time.Duration(snap.RemainingSeconds) * time.Second)
	e.store.SetTargetEnd(ctx, &target)
	e.store.Start(ctx)
}

func (e *Engine) start(ctx context.Context, sessionType model.SessionType, taskID *string) {
	now := e.clock.Now()
	settings := e.currentSettings(ctx)
	duration := settings.DurationSeconds(sessionType)

	if taskID != nil {
		e.store.SetCurrentTask(ctx, taskID)
	}
	snap := e.store.Snapshot()

	e.store.SetPhase(ctx, sessionType, duration)

	record := &model.SessionRecord{
		ID:              uuid.NewString(),
		UserID:          e.userID,
		TaskID:          snap.CurrentTaskID,
		Type:            sessionType,
		DurationSeconds: duration,
		BreakTaken:      sessionType.IsBreak(),
		StartedAt:       now,
	}
	if err := e.sessions.Create(ctx, record); err != nil {
		// Countdown proceeds; there is just no open record to close later.
		e.logger.Printf("timer: create session record (user %s): %v", e.userID, err)
		e.store.SetSessionRecordID(ctx, nil)
	} else {
		e.store.SetSessionRecordID(ctx, &record.ID)
	}

	target := now.Add(time.Duration(duration) * time.Second)
	e.store.SetTargetEnd(ctx, &target)
	e.store.Start(ctx)
}

// Pause freezes the countdown. The recompute before the flip makes the stored
// remaining seconds exact at the moment of pausing.
func (e *Engine) Pause(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.store.Snapshot()
	if !snap.Active {
		e.logger.Printf("timer: ignoring pause while not active (user %s)", e.userID)
		return
	}

	if snap.TargetEndTime != nil {
		now := e.clock.Now()
		remaining := remainingUntil(*snap.TargetEndTime, now)
		if remaining == 0 {
			// The phase already ended before the pause landed; treat the
			// intent as the completion it raced with, otherwise the session
			// would be stuck paused at zero with its record open.
			e.tick(ctx, now)
			return
		}
		e.store.SetRemaining(ctx, remaining)
	}
	e.store.Pause(ctx)
}

// Tick recomputes remaining time from the wall-clock anchor and fires
// completion when the phase is over. It is idempotent: the scheduler loop,
// a visibility-regain recompute, and a read path may all call it with the
// same result, and completion deactivates the timer so it can only fire once
// per phase.
func (e *Engine) Tick(ctx context.Context, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tick(ctx, now)
}

func (e *Engine) tick(ctx context.Context, now time.Time) {
	snap := e.store.Snapshot()
	if !snap.Active {
		return
	}
	if snap.TargetEndTime == nil {
		// Running without an anchor breaks the countdown invariant; park the
		// timer instead of guessing.
		e.logger.Printf("timer: active snapshot without anchor (user %s), pausing", e.userID)
		e.store.Pause(ctx)
		return
	}

	remaining := remainingUntil(*snap.TargetEndTime, now)
	if remaining != snap.RemainingSeconds {
		e.store.SetRemaining(ctx, remaining)
	}
	if remaining == 0 {
		e.complete(ctx, now)
	}
}

// complete handles a finished phase: counter first, ledger second, policy
// last.
func (e *Engine) complete(ctx context.Context, now time.Time) {
	snap := e.store.Snapshot()
	finished := snap.SessionType
	recordID := snap.SessionRecordID
	taskID := snap.CurrentTaskID

	e.store.Pause(ctx)

	// The daily tally moves before any I/O so the UI reflects the finished
	// work session regardless of backend latency.
	completedToday := snap.CompletedToday
	if finished == model.SessionWork {
		completedToday = e.store.IncrementCompletedToday(ctx, dayOf(now))
	}

	if recordID != nil {
		if err := e.sessions.MarkCompleted(ctx, *recordID, now); err != nil {
			e.logger.Printf("timer: mark session %s completed (user %s): %v", *recordID, e.userID, err)
		}
		if finished == model.SessionWork && taskID != nil {
			if err := e.tasks.IncrementPomodoroCount(ctx, *taskID); err != nil {
				e.logger.Printf("timer: increment pomodoro count for task %s: %v", *taskID, err)
			}
		}
		e.store.SetSessionRecordID(ctx, nil)
	}

	settings := e.currentSettings(ctx)
	decision := DecideNext(finished, completedToday, settings)
	switch decision.Action {
	case ActionAutoStart:
		e.start(ctx, decision.Next, nil)
	case ActionPrompt:
		pending := decision.Next
		e.pendingBreak = &pending
	case ActionNone:
		// Back-to-work is the default expectation: load the work duration
		// into the idle snapshot and wait for an explicit start.
		e.store.Reset(ctx, settings)
	}
}

// SkipBreak moves straight into a new work session. Valid while a prompted
// break awaits a decision (nothing to flag: no break record was opened) or
// while a break is running (the open record is flagged skipped and closed).
// The work counter was already bumped when the work session completed.
func (e *Engine) SkipBreak(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pendingBreak != nil {
		e.pendingBreak = nil
		e.start(ctx, model.SessionWork, nil)
		return
	}

	snap := e.store.Snapshot()
	if snap.SessionType.IsBreak() && !snap.Idle() {
		if snap.SessionRecordID != nil {
			id := *snap.SessionRecordID
			if err := e.sessions.UpdateFlags(ctx, id, false, true); err != nil {
				e.logger.Printf("timer: flag break %s skipped (user %s): %v", id, e.userID, err)
			}
			if err := e.sessions.MarkCancelled(ctx, id, e.clock.Now()); err != nil {
				e.logger.Printf("timer: cancel skipped break %s (user %s): %v", id, e.userID, err)
			}
			e.store.SetSessionRecordID(ctx, nil)
		}
		e.start(ctx, model.SessionWork, nil)
		return
	}

	e.logger.Printf("timer: ignoring skip-break with no break to skip (user %s)", e.userID)
}

// TakeBreak starts the prompted break. No-op when nothing is pending.
func (e *Engine) TakeBreak(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pendingBreak == nil {
		e.logger.Printf("timer: ignoring take-break with no pending break (user %s)", e.userID)
		return
	}
	next := *e.pendingBreak
	e.pendingBreak = nil
	e.start(ctx, next, nil)
}

// Abandon cancels the open record, if any, and resets to idle work defaults.
// Safe at any point, including after a completion already cleared the record:
// with nothing open the ledger call is skipped, not errored.
func (e *Engine) Abandon(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.store.Snapshot()
	if snap.SessionRecordID != nil {
		if err := e.sessions.MarkCancelled(ctx, *snap.SessionRecordID, e.clock.Now()); err != nil {
			e.logger.Printf("timer: cancel session %s (user %s): %v", *snap.SessionRecordID, e.userID, err)
		}
	}

	e.pendingBreak = nil
	e.store.Reset(ctx, e.currentSettings(ctx))
}

// SetCurrentTask records the task the next sessions attach to, persisting the
// selection to settings so it survives across devices.
func (e *Engine) SetCurrentTask(ctx context.Context, taskID *string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.store.SetCurrentTask(ctx, taskID)

	patch := model.SettingsPatch{CurrentTaskID: taskID, ClearCurrentTask: taskID == nil}
	if _, err := e.settings.Update(ctx, e.userID, patch); err != nil {
		e.logger.Printf("timer: persist current task (user %s): %v", e.userID, err)
	}
}

// InvalidateSettings drops the cached settings after an external update and,
// while idle, reloads the current phase duration so the face shows the new
// length.
func (e *Engine) InvalidateSettings(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.settings.Invalidate()

	snap := e.store.Snapshot()
	if snap.Idle() && e.pendingBreak == nil {
		settings := e.currentSettings(ctx)
		e.store.SetPhase(ctx, snap.SessionType, settings.DurationSeconds(snap.SessionType))
	}
}

// LoadRecoveryState runs once when the engine is constructed from a persisted
// snapshot. A session whose anchor already passed is completed through the
// normal path rather than resumed into a negative countdown, and the daily
// counter is reconciled against the ledger: the persisted value is a cache,
// the ledger is ground truth.
func (e *Engine) LoadRecoveryState(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	snap := e.store.Snapshot()

	// Reconcile first: completing a stale session below feeds the tally into
	// DecideNext, so the persisted value must be corrected before it is used.
	e.reconcileCompletedToday(ctx, now)

	if snap.Active {
		switch {
		case snap.TargetEndTime == nil:
			e.logger.Printf("timer: recovered active snapshot without anchor (user %s), pausing", e.userID)
			e.store.Pause(ctx)
		case !snap.TargetEndTime.After(now):
			e.store.SetRemaining(ctx, 0)
			e.complete(ctx, now)
		}
	}

	e.recoverPendingBreak(ctx)
	e.loadCurrentTask(ctx)
}

// reconcileCompletedToday recounts the tally from the ledger. A session
// belongs to the day it started on: one that runs across midnight counts
// toward the previous day, matching how records are filtered everywhere else.
func (e *Engine) reconcileCompletedToday(ctx context.Context, now time.Time) {
	from := startOfDay(now)
	to := from.Add(24 * time.Hour)
	records, err := e.sessions.Query(ctx, e.userID, model.SessionFilter{
		Type:          model.SessionWork,
		CompletedOnly: true,
		From:          &from,
		To:            &to,
		Limit:         500,
	})
	if err != nil {
		e.logger.Printf("timer: reconcile completed sessions (user %s): %v", e.userID, err)
		return
	}
	e.store.SetCompletedToday(ctx, len(records), dayOf(now))
}

// recoverPendingBreak re-derives the awaiting-break-decision state after a
// restart: a paused work phase at zero with no open record can only be a
// completed work session whose prompt was never answered.
func (e *Engine) recoverPendingBreak(ctx context.Context) {
	if e.pendingBreak != nil {
		return
	}
	snap := e.store.Snapshot()
	if snap.Paused && snap.RemainingSeconds == 0 &&
		snap.SessionType == model.SessionWork && snap.SessionRecordID == nil {
		decision := DecideNext(model.SessionWork, snap.CompletedToday, e.currentSettings(ctx))
		if decision.Action == ActionPrompt {
			pending := decision.Next
			e.pendingBreak = &pending
		}
	}
}

func (e *Engine) loadCurrentTask(ctx context.Context) {
	settings, err := e.settings.Get(ctx, e.userID)
	if err != nil {
		e.logger.Printf("timer: load current task (user %s): %v", e.userID, err)
		return
	}
	if settings.CurrentTaskID != nil {
		e.store.SetCurrentTask(ctx, settings.CurrentTaskID)
	}
}

func (e *Engine) currentSettings(ctx context.Context) model.UserSettings {
	settings, err := e.settings.Get(ctx, e.userID)
	if err != nil {
		e.logger.Printf("timer: load settings (user %s), using defaults: %v", e.userID, err)
		return model.DefaultSettings(e.userID)
	}
	return settings
}

// remainingUntil is the one countdown formula: whole seconds left until
// target, rounded up, never negative. Every caller recomputes from the anchor
// rather than decrementing a counter, which is what keeps elapsed time
// correct when ticks are throttled or suspended.
func remainingUntil(target, now time.Time) int {
	d := target.Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

func dayOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
