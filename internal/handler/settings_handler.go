package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ronaldtieu/pomodoro-project/internal/middleware"
	"github.com/ronaldtieu/pomodoro-project/internal/model"
	"github.com/ronaldtieu/pomodoro-project/internal/service"
)

type SettingsHandler struct {
	timerService *service.TimerService
}

func NewSettingsHandler(timerService *service.TimerService) *SettingsHandler {
	return &SettingsHandler{timerService: timerService}
}

func (h *SettingsHandler) Get(c *gin.Context) {
	settings, apiErr := h.timerService.GetSettings(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (h *SettingsHandler) Update(c *gin.Context) {
	var patch model.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeInvalidJSON(c)
		return
	}

	settings, apiErr := h.timerService.UpdateSettings(c.Request.Context(), middleware.UserID(c), patch)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}
