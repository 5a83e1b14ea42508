package repository_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ronaldtieu/pomodoro-project/internal/db"
	"github.com/ronaldtieu/pomodoro-project/internal/model"
	"github.com/ronaldtieu/pomodoro-project/internal/repository"
)

func openTestDB(t *testing.T) *sql.DB {
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

	return database
}

func seedUser(t *testing.T, database *sql.DB, email string) string {
	t.Helper()

	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: "x",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repository.NewUserRepository(database).Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user.ID
}

func seedSession(t *testing.T, repo *repository.SessionRepository, userID string, sessionType model.SessionType, startedAt time.Time) *model.SessionRecord {
	t.Helper()

	record := &model.SessionRecord{
		ID:              uuid.NewString(),
		UserID:          userID,
		Type:            sessionType,
		DurationSeconds: 25 * 60,
		BreakTaken:      sessionType.IsBreak(),
		StartedAt:       startedAt,
	}
	if err := repo.Create(context.Background(), record); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return record
}

func TestSessionCompletionIsTerminal(t *testing.T) {
	database := openTestDB(t)
	repo := repository.NewSessionRepository(database)
	ctx := context.Background()

	userID := seedUser(t, database, "terminal@example.com")
	record := seedSession(t, repo, userID, model.SessionWork, time.Now().UTC())

	completedAt := time.Now().UTC()
	if err := repo.MarkCompleted(ctx, record.ID, completedAt); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	// A later cancel attempt must not reopen or flip the record.
	if err := repo.MarkCancelled(ctx, record.ID, completedAt.Add(time.Minute)); err != nil {
		t.Fatalf("mark cancelled: %v", err)
	}

	got, err := repo.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CompletedAt == nil {
		t.Fatal("expected completed_at set")
	}
	if got.CancelledAt != nil {
		t.Fatal("expected cancelled_at untouched on a terminal record")
	}

	// Repeating the completion must not move the timestamp either.
	if err := repo.MarkCompleted(ctx, record.ID, completedAt.Add(time.Hour)); err != nil {
		t.Fatalf("second mark completed: %v", err)
	}
	again, err := repo.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if !again.CompletedAt.Equal(*got.CompletedAt) {
		t.Fatalf("completed_at moved from %v to %v", got.CompletedAt, again.CompletedAt)
	}
}

func TestSessionCancellationIsTerminal(t *testing.T) {
	database := openTestDB(t)
	repo := repository.NewSessionRepository(database)
	ctx := context.Background()

	userID := seedUser(t, database, "cancel@example.com")
	record := seedSession(t, repo, userID, model.SessionWork, time.Now().UTC())

	cancelledAt := time.Now().UTC()
	if err := repo.MarkCancelled(ctx, record.ID, cancelledAt); err != nil {
		t.Fatalf("mark cancelled: %v", err)
	}
	if err := repo.MarkCompleted(ctx, record.ID, cancelledAt.Add(time.Minute)); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	got, err := repo.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CancelledAt == nil || got.CompletedAt != nil {
		t.Fatalf("expected cancelled-only record, got completed=%v cancelled=%v", got.CompletedAt, got.CancelledAt)
	}
}

func TestSessionUpdateFlags(t *testing.T) {
	database := openTestDB(t)
	repo := repository.NewSessionRepository(database)
	ctx := context.Background()

	userID := seedUser(t, database, "flags@example.com")
	record := seedSession(t, repo, userID, model.SessionShortBreak, time.Now().UTC())

	if err := repo.UpdateFlags(ctx, record.ID, false, true); err != nil {
		t.Fatalf("update flags: %v", err)
	}

	got, err := repo.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.BreakTaken || !got.BreakSkipped {
		t.Fatalf("expected taken=false skipped=true, got taken=%v skipped=%v", got.BreakTaken, got.BreakSkipped)
	}
}

func TestSessionQueryFilters(t *testing.T) {
	database := openTestDB(t)
	repo := repository.NewSessionRepository(database)
	ctx := context.Background()

	userID := seedUser(t, database, "query@example.com")
	otherID := seedUser(t, database, "other@example.com")

	base := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	work1 := seedSession(t, repo, userID, model.SessionWork, base)
	work2 := seedSession(t, repo, userID, model.SessionWork, base.Add(time.Hour))
	seedSession(t, repo, userID, model.SessionShortBreak, base.Add(30*time.Minute))
	seedSession(t, repo, otherID, model.SessionWork, base.Add(2*time.Hour))

	completedAt := base.Add(25 * time.Minute)
	if err := repo.MarkCompleted(ctx, work1.ID, completedAt); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	all, err := repo.Query(ctx, userID, model.SessionFilter{})
	if err != nil {
		t.Fatalf("query all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records for the user, got %d", len(all))
	}
	if !all[0].StartedAt.Equal(work2.StartedAt) {
		t.Fatalf("expected newest-first ordering, got first started at %v", all[0].StartedAt)
	}

	workOnly, err := repo.Query(ctx, userID, model.SessionFilter{Type: model.SessionWork})
	if err != nil {
		t.Fatalf("query work: %v", err)
	}
	if len(workOnly) != 2 {
		t.Fatalf("expected 2 work records, got %d", len(workOnly))
	}

	completed, err := repo.Query(ctx, userID, model.SessionFilter{CompletedOnly: true})
	if err != nil {
		t.Fatalf("query completed: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != work1.ID {
		t.Fatalf("expected exactly the completed record, got %d", len(completed))
	}

	from := base.Add(45 * time.Minute)
	to := base.Add(90 * time.Minute)
	windowed, err := repo.Query(ctx, userID, model.SessionFilter{From: &from, To: &to})
	if err != nil {
		t.Fatalf("query window: %v", err)
	}
	if len(windowed) != 1 || windowed[0].ID != work2.ID {
		t.Fatalf("expected only the 09:00 record in window, got %d", len(windowed))
	}

	limited, err := repo.Query(ctx, userID, model.SessionFilter{Limit: 1})
	if err != nil {
		t.Fatalf("query limited: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit respected, got %d", len(limited))
	}
}

func TestSessionGetUnknownIDReturnsNotFound(t *testing.T) {
	database := openTestDB(t)
	repo := repository.NewSessionRepository(database)

	_, err := repo.Get(context.Background(), "missing")
	if err != repository.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
