package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ronaldtieu/pomodoro-project/internal/config"
	"github.com/ronaldtieu/pomodoro-project/internal/db"
	"github.com/ronaldtieu/pomodoro-project/internal/handler"
	"github.com/ronaldtieu/pomodoro-project/internal/repository"
	"github.com/ronaldtieu/pomodoro-project/internal/router"
	"github.com/ronaldtieu/pomodoro-project/internal/service"
	"github.com/ronaldtieu/pomodoro-project/internal/timer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsDir); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	userRepo := repository.NewUserRepository(database)
	settingsRepo := repository.NewSettingsRepository(database)
	sessionRepo := repository.NewSessionRepository(database)
	taskRepo := repository.NewTaskRepository(database)
	snapshotRepo := repository.NewSnapshotRepository(database)

	authService := service.NewAuthService(userRepo, settingsRepo, snapshotRepo, cfg.JWTSecret, cfg.TokenTTL)
	timerService := service.NewTimerService(
		snapshotRepo, settingsRepo, sessionRepo, taskRepo,
		timer.SystemClock(), log.Default(), cfg.TickInterval,
	)
	taskService := service.NewTaskService(taskRepo)

	authHandler := handler.NewAuthHandler(authService)
	timerHandler := handler.NewTimerHandler(timerService)
	settingsHandler := handler.NewSettingsHandler(timerService)
	taskHandler := handler.NewTaskHandler(taskService)

	engine := router.New(authService, authHandler, timerHandler, settingsHandler, taskHandler, cfg.CORSOrigins)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go timerService.Run(ctx)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: engine,
	}

	go func() {
		log.Printf("server listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("run server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown server: %v", err)
	}
}
