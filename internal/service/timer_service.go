package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ronaldtieu/pomodoro-project/internal/apperrors"
	"github.com/ronaldtieu/pomodoro-project/internal/model"
	"github.com/ronaldtieu/pomodoro-project/internal/repository"
	"github.com/ronaldtieu/pomodoro-project/internal/timer"
)

// TimerService owns one timer.Engine per account. Engines are created lazily
// on first intent, recover their persisted snapshot at construction, and are
// all driven by a single scheduler goroutine. The engine is the designated
// single writer for completion side effects; HTTP observers only read.
type TimerService struct {
	mu      sync.Mutex
	engines map[string]*timer.Engine

	snapshotRepo *repository.SnapshotRepository
	settingsRepo *repository.SettingsRepository
	sessionRepo  *repository.SessionRepository
	taskRepo     *repository.TaskRepository
	clock        timer.Clock
	logger       *log.Logger
	tickInterval time.Duration
}

func NewTimerService(
	snapshotRepo *repository.SnapshotRepository,
	settingsRepo *repository.SettingsRepository,
	sessionRepo *repository.SessionRepository,
	taskRepo *repository.TaskRepository,
	clock timer.Clock,
	logger *log.Logger,
	tickInterval time.Duration,
) *TimerService {
	if clock == nil {
		clock = timer.SystemClock()
	}
	if logger == nil {
		logger = log.Default()
	}
	if tickInterval <= 0 {
		tickInterval = time.Second
	}
	return &TimerService{
		engines:      make(map[string]*timer.Engine),
		snapshotRepo: snapshotRepo,
		settingsRepo: settingsRepo,
		sessionRepo:  sessionRepo,
		taskRepo:     taskRepo,
		clock:        clock,
		logger:       logger,
		tickInterval: tickInterval,
	}
}

// TimerView is the state handed to UI observers.
type TimerView struct {
	SessionType      model.SessionType  `json:"sessionType"`
	Active           bool               `json:"active"`
	Paused           bool               `json:"paused"`
	RemainingSeconds int                `json:"remainingSeconds"`
	DurationSeconds  int                `json:"durationSeconds"`
	Progress         float64            `json:"progress"`
	CompletedToday   int                `json:"completedToday"`
	CurrentTaskID    *string            `json:"currentTaskId,omitempty"`
	PendingBreak     *model.SessionType `json:"pendingBreak,omitempty"`
	Version          int                `json:"version"`
	ServerTime       time.Time          `json:"serverTime"`
}

// Run drives every engine at the tick interval until ctx is cancelled. The
// loop is the sole scheduled caller of Tick; reads trigger the same recompute
// out of band.
func (s *TimerService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := s.clock.Now()
			for _, engine := range s.activeEngines() {
				engine.Tick(ctx, now)
			}
		}
	}
}

func (s *TimerService) activeEngines() []*timer.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	engines := make([]*timer.Engine, 0, len(s.engines))
	for _, engine := range s.engines {
		engines = append(engines, engine)
	}
	return engines
}

// State recomputes remaining time from the wall clock, then snapshots. This
// is the visibility-regain path: a tab that was suspended sees corrected time
// on its first read instead of waiting for the next scheduled tick.
func (s *TimerService) State(ctx context.Context, userID string) (*TimerView, *apperrors.APIError) {
	engine, apiErr := s.engineFor(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	engine.Tick(ctx, s.clock.Now())
	return s.view(engine), nil
}

type StartInput struct {
	SessionType model.SessionType
	TaskID      *string
}

func (s *TimerService) Start(ctx context.Context, userID string, input StartInput) (*TimerView, *apperrors.APIError) {
	if input.SessionType == "" {
		input.SessionType = model.SessionWork
	}
	if !model.ValidSessionType(input.SessionType) {
		return nil, apperrors.BadRequest("invalid_type", "type must be one of work, short_break, long_break")
	}

	engine, apiErr := s.engineFor(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	engine.StartSession(ctx, input.SessionType, input.TaskID, false)
	return s.view(engine), nil
}

func (s *TimerService) Resume(ctx context.Context, userID string) (*TimerView, *apperrors.APIError) {
	engine, apiErr := s.engineFor(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	engine.StartSession(ctx, "", nil, true)
	return s.view(engine), nil
}

func (s *TimerService) Pause(ctx context.Context, userID string) (*TimerView, *apperrors.APIError) {
	engine, apiErr := s.engineFor(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	engine.Pause(ctx)
	return s.view(engine), nil
}

// Reset abandons the running session: cancelled in the ledger, never
// completed, daily tally untouched.
func (s *TimerService) Reset(ctx context.Context, userID string) (*TimerView, *apperrors.APIError) {
	engine, apiErr := s.engineFor(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	engine.Abandon(ctx)
	return s.view(engine), nil
}

func (s *TimerService) SkipBreak(ctx context.Context, userID string) (*TimerView, *apperrors.APIError) {
	engine, apiErr := s.engineFor(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	engine.SkipBreak(ctx)
	return s.view(engine), nil
}

func (s *TimerService) TakeBreak(ctx context.Context, userID string) (*TimerView, *apperrors.APIError) {
	engine, apiErr := s.engineFor(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	engine.TakeBreak(ctx)
	return s.view(engine), nil
}

func (s *TimerService) SelectTask(ctx context.Context, userID string, taskID *string) (*TimerView, *apperrors.APIError) {
	if taskID != nil {
		task, err := s.taskRepo.Get(ctx, *taskID)
		if err == repository.ErrNotFound {
			return nil, apperrors.NotFound("task_not_found", "task not found")
		}
		if err != nil {
			return nil, apperrors.Internal("failed to load task")
		}
		if task.UserID != userID {
			return nil, apperrors.NotFound("task_not_found", "task not found")
		}
	}

	engine, apiErr := s.engineFor(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	engine.SetCurrentTask(ctx, taskID)
	return s.view(engine), nil
}

func (s *TimerService) GetSettings(ctx context.Context, userID string) (*model.UserSettings, *apperrors.APIError) {
	settings, err := s.settingsRepo.Get(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to load settings")
	}
	return &settings, nil
}

func (s *TimerService) UpdateSettings(ctx context.Context, userID string, patch model.SettingsPatch) (*model.UserSettings, *apperrors.APIError) {
	if apiErr := validateSettingsPatch(patch); apiErr != nil {
		return nil, apiErr
	}

	settings, err := s.settingsRepo.Update(ctx, userID, patch)
	if err != nil {
		return nil, apperrors.Internal("failed to update settings")
	}

	// The engine caches settings; drop the cache and let an idle face pick up
	// the new duration right away.
	if engine := s.existingEngine(userID); engine != nil {
		engine.InvalidateSettings(ctx)
	}

	return &settings, nil
}

func (s *TimerService) History(ctx context.Context, userID string, filter model.SessionFilter) ([]model.SessionRecord, *apperrors.APIError) {
	records, err := s.sessionRepo.Query(ctx, userID, filter)
	if err != nil {
		return nil, apperrors.Internal("failed to query sessions")
	}
	return records, nil
}

func (s *TimerService) engineFor(ctx context.Context, userID string) (*timer.Engine, *apperrors.APIError) {
	s.mu.Lock()
	if engine, ok := s.engines[userID]; ok {
		s.mu.Unlock()
		return engine, nil
	}
	s.mu.Unlock()

	engine, apiErr := s.buildEngine(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.engines[userID]; ok {
		// Raced with another request; keep the first engine so there is only
		// ever one writer per account.
		return existing, nil
	}
	s.engines[userID] = engine
	return engine, nil
}

func (s *TimerService) existingEngine(userID string) *timer.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engines[userID]
}

func (s *TimerService) buildEngine(ctx context.Context, userID string) (*timer.Engine, *apperrors.APIError) {
	snapshot, err := s.snapshotRepo.Get(ctx, userID)
	if err == repository.ErrNotFound {
		settings, settingsErr := s.settingsRepo.Get(ctx, userID)
		if settingsErr != nil {
			return nil, apperrors.Internal("failed to load settings")
		}
		fresh := initialSnapshot(userID, settings, s.clock.Now())
		snapshot = &fresh
	} else if err != nil {
		return nil, apperrors.Internal("failed to load timer state")
	}

	store := timer.NewStore(*snapshot, s.snapshotRepo, s.clock, s.logger)
	cached := timer.NewCachedSettings(s.settingsRepo)
	engine := timer.NewEngine(userID, store, cached, s.sessionRepo, s.taskRepo, s.clock, s.logger)
	engine.LoadRecoveryState(ctx)
	return engine, nil
}

func (s *TimerService) view(engine *timer.Engine) *TimerView {
	snap := engine.Store().Snapshot()

	progress := 0.0
	if snap.DurationSeconds > 0 {
		progress = float64(snap.DurationSeconds-snap.RemainingSeconds) / float64(snap.DurationSeconds)
	}

	return &TimerView{
		SessionType:      snap.SessionType,
		Active:           snap.Active,
		Paused:           snap.Paused,
		RemainingSeconds: snap.RemainingSeconds,
		DurationSeconds:  snap.DurationSeconds,
		Progress:         progress,
		CompletedToday:   snap.CompletedToday,
		CurrentTaskID:    snap.CurrentTaskID,
		PendingBreak:     engine.PendingBreak(),
		Version:          snap.Version,
		ServerTime:       s.clock.Now(),
	}
}

func validateSettingsPatch(patch model.SettingsPatch) *apperrors.APIError {
	positive := func(value *int) bool { return value == nil || *value > 0 }
	if !positive(patch.WorkMinutes) || !positive(patch.ShortBreakMinutes) || !positive(patch.LongBreakMinutes) {
		return apperrors.BadRequest("invalid_duration", "durations must be positive minutes")
	}
	if !positive(patch.SessionsUntilLongBreak) {
		return apperrors.BadRequest("invalid_cadence", "sessionsUntilLongBreak must be positive")
	}
	return nil
}
