package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/ronaldtieu/pomodoro-project/internal/db"
	"github.com/ronaldtieu/pomodoro-project/internal/handler"
	"github.com/ronaldtieu/pomodoro-project/internal/repository"
	"github.com/ronaldtieu/pomodoro-project/internal/router"
	"github.com/ronaldtieu/pomodoro-project/internal/service"
)

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type stateEnvelope struct {
	State struct {
		SessionType      string  `json:"sessionType"`
		Active           bool    `json:"active"`
		Paused           bool    `json:"paused"`
		RemainingSeconds int     `json:"remainingSeconds"`
		DurationSeconds  int     `json:"durationSeconds"`
		CompletedToday   int     `json:"completedToday"`
		CurrentTaskID    *string `json:"currentTaskId"`
		PendingBreak     *string `json:"pendingBreak"`
		Version          int     `json:"version"`
	} `json:"state"`
}

type historyEnvelope struct {
	Sessions []struct {
		ID          string  `json:"id"`
		Type        string  `json:"type"`
		CompletedAt *string `json:"completedAt"`
		CancelledAt *string `json:"cancelledAt"`
	} `json:"sessions"`
}

type settingsEnvelope struct {
	Settings struct {
		WorkMinutes     int  `json:"workDuration"`
		AutoStartBreaks bool `json:"autoStartBreaks"`
	} `json:"settings"`
}

type taskEnvelope struct {
	Task struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"task"`
}

func TestTimerLifecycleAndUserIsolation(t *testing.T) {
	server := setupTestServer(t)

	user1 := registerUser(t, server, "user1@example.com", "123456")
	user2 := registerUser(t, server, "user2@example.com", "123456")

	// A brand-new account sits idle on a full work phase.
	state := getState(t, server, user1.Token)
	if state.State.SessionType != "work" || state.State.Active {
		t.Fatalf("expected idle work state, got %+v", state.State)
	}
	if state.State.RemainingSeconds != 25*60 {
		t.Fatalf("expected default work duration, got %d", state.State.RemainingSeconds)
	}

	status, raw := requestJSON(t, server, http.MethodPost, "/api/timer/start", user1.Token, map[string]string{"type": "work"})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on start, got %d: %s", status, raw)
	}
	var started stateEnvelope
	mustUnmarshal(t, raw, &started)
	if !started.State.Active {
		t.Fatal("expected running timer after start")
	}

	status, raw = requestJSON(t, server, http.MethodPost, "/api/timer/pause", user1.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on pause, got %d", status)
	}
	var paused stateEnvelope
	mustUnmarshal(t, raw, &paused)
	if !paused.State.Paused || paused.State.Active {
		t.Fatalf("expected paused timer, got %+v", paused.State)
	}

	status, raw = requestJSON(t, server, http.MethodPost, "/api/timer/resume", user1.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on resume, got %d", status)
	}
	var resumed stateEnvelope
	mustUnmarshal(t, raw, &resumed)
	if !resumed.State.Active {
		t.Fatalf("expected running timer after resume, got %+v", resumed.State)
	}

	status, raw = requestJSON(t, server, http.MethodPost, "/api/timer/reset", user1.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on reset, got %d", status)
	}
	var reset stateEnvelope
	mustUnmarshal(t, raw, &reset)
	if reset.State.Active || reset.State.Paused {
		t.Fatalf("expected idle state after reset, got %+v", reset.State)
	}
	if reset.State.CompletedToday != 0 {
		t.Fatalf("reset must not count as a completed session, got %d", reset.State.CompletedToday)
	}

	// The abandoned session lands in history as cancelled, never completed.
	status, raw = requestJSON(t, server, http.MethodGet, "/api/sessions?limit=10", user1.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for history, got %d", status)
	}
	var history historyEnvelope
	mustUnmarshal(t, raw, &history)
	if len(history.Sessions) != 1 {
		t.Fatalf("expected one session for user1, got %d", len(history.Sessions))
	}
	if history.Sessions[0].CancelledAt == nil || history.Sessions[0].CompletedAt != nil {
		t.Fatalf("expected cancelled session, got %+v", history.Sessions[0])
	}

	status, raw = requestJSON(t, server, http.MethodGet, "/api/sessions", user2.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for user2 history, got %d", status)
	}
	var otherHistory historyEnvelope
	mustUnmarshal(t, raw, &otherHistory)
	if len(otherHistory.Sessions) != 0 {
		t.Fatalf("expected no sessions for user2, got %d", len(otherHistory.Sessions))
	}
}

func TestSettingsUpdateReachesIdleTimer(t *testing.T) {
	server := setupTestServer(t)
	user := registerUser(t, server, "settings@example.com", "123456")

	// Touch the timer first so an engine with cached settings exists.
	getState(t, server, user.Token)

	status, raw := requestJSON(t, server, http.MethodPut, "/api/settings", user.Token, map[string]int{"workDuration": 50})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on settings update, got %d: %s", status, raw)
	}
	var settings settingsEnvelope
	mustUnmarshal(t, raw, &settings)
	if settings.Settings.WorkMinutes != 50 {
		t.Fatalf("expected workDuration 50, got %d", settings.Settings.WorkMinutes)
	}

	state := getState(t, server, user.Token)
	if state.State.DurationSeconds != 50*60 || state.State.RemainingSeconds != 50*60 {
		t.Fatalf("expected idle face showing the new duration, got %+v", state.State)
	}
}

func TestSettingsRejectsNonPositiveDurations(t *testing.T) {
	server := setupTestServer(t)
	user := registerUser(t, server, "invalid@example.com", "123456")

	status, _ := requestJSON(t, server, http.MethodPut, "/api/settings", user.Token, map[string]int{"workDuration": 0})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero duration, got %d", status)
	}
}

func TestTaskSelectionFlowsIntoTimerState(t *testing.T) {
	server := setupTestServer(t)
	user := registerUser(t, server, "tasks@example.com", "123456")

	status, raw := requestJSON(t, server, http.MethodPost, "/api/tasks", user.Token, map[string]string{"title": "write report"})
	if status != http.StatusCreated {
		t.Fatalf("expected 201 on task create, got %d: %s", status, raw)
	}
	var created taskEnvelope
	mustUnmarshal(t, raw, &created)

	status, raw = requestJSON(t, server, http.MethodPost, "/api/timer/task", user.Token, map[string]string{"taskId": created.Task.ID})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on task select, got %d: %s", status, raw)
	}
	var selected stateEnvelope
	mustUnmarshal(t, raw, &selected)
	if selected.State.CurrentTaskID == nil || *selected.State.CurrentTaskID != created.Task.ID {
		t.Fatalf("expected selected task in state, got %v", selected.State.CurrentTaskID)
	}

	// Another user's task id is invisible, not selectable.
	intruder := registerUser(t, server, "intruder@example.com", "123456")
	status, _ = requestJSON(t, server, http.MethodPost, "/api/timer/task", intruder.Token, map[string]string{"taskId": created.Task.ID})
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 selecting a foreign task, got %d", status)
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	server := setupTestServer(t)
	registerUser(t, server, "dup@example.com", "123456")

	status, raw := requestJSON(t, server, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "dup@example.com",
		"password": "123456",
	})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d: %s", status, raw)
	}
}

func TestTimerEndpointsRequireAuth(t *testing.T) {
	server := setupTestServer(t)

	status, _ := requestJSON(t, server, http.MethodGet, "/api/timer/state", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", status)
	}

	status, _ = requestJSON(t, server, http.MethodPost, "/api/timer/start", "not-a-token", map[string]string{"type": "work"})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 with a bad token, got %d", status)
	}
}

func TestCORSPreflight(t *testing.T) {
	server := setupTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	recorder := httptest.NewRecorder()

	server.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", recorder.Code)
	}
	if recorder.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("unexpected allow-origin header: %s", recorder.Header().Get("Access-Control-Allow-Origin"))
	}
}

func setupTestServer(t *testing.T) http.Handler {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
	if err := db.RunMigrations(database, migrationsDir); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	userRepo := repository.NewUserRepository(database)
	settingsRepo := repository.NewSettingsRepository(database)
	sessionRepo := repository.NewSessionRepository(database)
	taskRepo := repository.NewTaskRepository(database)
	snapshotRepo := repository.NewSnapshotRepository(database)

	authService := service.NewAuthService(userRepo, settingsRepo, snapshotRepo, "test-secret", 24*time.Hour)
	timerService := service.NewTimerService(snapshotRepo, settingsRepo, sessionRepo, taskRepo, nil, nil, time.Second)
	taskService := service.NewTaskService(taskRepo)

	authHandler := handler.NewAuthHandler(authService)
	timerHandler := handler.NewTimerHandler(timerService)
	settingsHandler := handler.NewSettingsHandler(timerService)
	taskHandler := handler.NewTaskHandler(taskService)

	return router.New(authService, authHandler, timerHandler, settingsHandler, taskHandler, []string{"http://localhost:5173"})
}

func registerUser(t *testing.T, server http.Handler, email, password string) authResponse {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s failed with status %d: %s", email, status, string(body))
	}
	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal register response: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("empty token for user %s", email)
	}
	return resp
}

func getState(t *testing.T, server http.Handler, token string) stateEnvelope {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodGet, "/api/timer/state", token, nil)
	if status != http.StatusOK {
		t.Fatalf("get state failed with status %d: %s", status, string(body))
	}
	var stateResp stateEnvelope
	if err := json.Unmarshal(body, &stateResp); err != nil {
		t.Fatalf("unmarshal state response: %v", err)
	}
	return stateResp
}

func mustUnmarshal(t *testing.T, raw []byte, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(raw, dest); err != nil {
		t.Fatalf("unmarshal response: %v (%s)", err, string(raw))
	}
}

func requestJSON(
	t *testing.T,
	server http.Handler,
	method, path, token string,
	body interface{},
) (int, []byte) {
	t.Helper()

	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		payload = raw
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)
	return recorder.Code, recorder.Body.Bytes()
}
