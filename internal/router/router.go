package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ronaldtieu/pomodoro-project/internal/handler"
	"github.com/ronaldtieu/pomodoro-project/internal/middleware"
	"github.com/ronaldtieu/pomodoro-project/internal/service"
)

func New(
	authService *service.AuthService,
	authHandler *handler.AuthHandler,
	timerHandler *handler.TimerHandler,
	settingsHandler *handler.SettingsHandler,
	taskHandler *handler.TaskHandler,
	corsOrigins []string,
) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	timer := api.Group("/timer")
	timer.Use(middleware.Auth(authService))
	timer.GET("/state", timerHandler.State)
	timer.POST("/start", timerHandler.Start)
	timer.POST("/pause", timerHandler.Pause)
	timer.POST("/resume", timerHandler.Resume)
	timer.POST("/reset", timerHandler.Reset)
	timer.POST("/skip-break", timerHandler.SkipBreak)
	timer.POST("/take-break", timerHandler.TakeBreak)
	timer.POST("/task", timerHandler.SelectTask)

	settings := api.Group("/settings")
	settings.Use(middleware.Auth(authService))
	settings.GET("", settingsHandler.Get)
	settings.PUT("", settingsHandler.Update)

	sessions := api.Group("/sessions")
	sessions.Use(middleware.Auth(authService))
	sessions.GET("", timerHandler.History)

	tasks := api.Group("/tasks")
	tasks.Use(middleware.Auth(authService))
	tasks.POST("", taskHandler.Create)
	tasks.GET("", taskHandler.List)
	tasks.POST("/:id/complete", taskHandler.Complete)
	tasks.DELETE("/:id", taskHandler.Delete)

	return engine
}
