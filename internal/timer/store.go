package timer

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ronaldtieu/pomodoro-project/internal/model"
)

// SnapshotWriter persists the snapshot after each mutation. Writes are
// best-effort: a failing writer ruins durability, never the countdown.
type SnapshotWriter interface {
	Save(ctx context.Context, snapshot *model.TimerSnapshot) error
}

// Store is the single source of truth for one account's TimerSnapshot. It
// stores values and persists them, nothing else: session-ledger and settings
// traffic belong to the engine.
type Store struct {
	mu       sync.RWMutex
	snapshot model.TimerSnapshot
	writer   SnapshotWriter
	clock    Clock
	logger   *log.Logger
}

func NewStore(initial model.TimerSnapshot, writer SnapshotWriter, clock Clock, logger *log.Logger) *Store {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		snapshot: initial,
		writer:   writer,
		clock:    clock,
		logger:   logger,
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() model.TimerSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Start flips the snapshot to running. The caller anchors TargetEndTime
// before or in the same transition batch.
func (s *Store) Start(ctx context.Context) {
	s.mutate(ctx, func(snap *model.TimerSnapshot) {
		snap.Active = true
		snap.Paused = false
	})
}

// Pause flips the snapshot to paused; RemainingSeconds becomes authoritative.
func (s *Store) Pause(ctx context.Context) {
	s.mutate(ctx, func(snap *model.TimerSnapshot) {
		snap.Active = false
		snap.Paused = true
		snap.TargetEndTime = nil
	})
}

// Reset returns the snapshot to idle defaults for the work phase, keeping the
// completed-today tally and the task selection.
func (s *Store) Reset(ctx context.Context, settings model.UserSettings) {
	duration := settings.DurationSeconds(model.SessionWork)
	s.mutate(ctx, func(snap *model.TimerSnapshot) {
		snap.Active = false
		snap.Paused = false
		snap.SessionType = model.SessionWork
		snap.DurationSeconds = duration
		snap.RemainingSeconds = duration
		snap.TargetEndTime = nil
		snap.SessionRecordID = nil
	})
}

// SetPhase loads a new phase: type, full duration, and remaining time.
func (s *Store) SetPhase(ctx context.Context, sessionType model.SessionType, durationSeconds int) {
	s.mutate(ctx, func(snap *model.TimerSnapshot) {
		snap.SessionType = sessionType
		snap.DurationSeconds = durationSeconds
		snap.RemainingSeconds = durationSeconds
	})
}

func (s *Store) SetRemaining(ctx context.Context, seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	s.mutate(ctx, func(snap *model.TimerSnapshot) {
		snap.RemainingSeconds = seconds
	})
}

// SetTargetEnd rewrites the wall-clock anchor; nil clears it.
func (s *Store) SetTargetEnd(ctx context.Context, target *time.Time) {
	s.mutate(ctx, func(snap *model.TimerSnapshot) {
		snap.TargetEndTime = target
	})
}

func (s *Store) SetSessionRecordID(ctx context.Context, id *string) {
	s.mutate(ctx, func(snap *model.TimerSnapshot) {
		snap.SessionRecordID = id
	})
}

func (s *Store) SetCurrentTask(ctx context.Context, taskID *string) {
	s.mutate(ctx, func(snap *model.TimerSnapshot) {
		snap.CurrentTaskID = taskID
	})
}

// SetCompletedToday overwrites the daily tally; day is the UTC day the count
// belongs to.
func (s *Store) SetCompletedToday(ctx context.Context, count int, day string) {
	s.mutate(ctx, func(snap *model.TimerSnapshot) {
		snap.CompletedToday = count
		snap.CompletedDay = day
	})
}

// IncrementCompletedToday bumps the daily tally, zeroing it first if the day
// rolled over, and returns the new count.
func (s *Store) IncrementCompletedToday(ctx context.Context, day string) int {
	var count int
	s.mutate(ctx, func(snap *model.TimerSnapshot) {
		if snap.CompletedDay != day {
			snap.CompletedToday = 0
			snap.CompletedDay = day
		}
		snap.CompletedToday++
		count = snap.CompletedToday
	})
	return count
}

func (s *Store) mutate(ctx context.Context, apply func(*model.TimerSnapshot)) {
	s.mu.Lock()
	apply(&s.snapshot)
	s.snapshot.Version++
	s.snapshot.UpdatedAt = s.clock.Now()
	persisted := s.snapshot
	s.mu.Unlock()

	if s.writer == nil {
		return
	}
	if err := s.writer.Save(ctx, &persisted); err != nil {
		s.logger.Printf("timer: persist snapshot for user %s: %v", persisted.UserID, err)
	}
}
