package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ronaldtieu/pomodoro-project/internal/middleware"
	"github.com/ronaldtieu/pomodoro-project/internal/model"
	"github.com/ronaldtieu/pomodoro-project/internal/service"
)

// TimerHandler translates UI intents into engine calls. Invalid transitions
// (double-clicks, stale views) come back as the unchanged state, not errors.
type TimerHandler struct {
	timerService *service.TimerService
}

type startRequest struct {
	Type   model.SessionType `json:"type"`
	TaskID *string           `json:"taskId"`
}

type selectTaskRequest struct {
	TaskID *string `json:"taskId"`
}

func NewTimerHandler(timerService *service.TimerService) *TimerHandler {
	return &TimerHandler{timerService: timerService}
}

func (h *TimerHandler) State(c *gin.Context) {
	view, apiErr := h.timerService.State(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": view})
}

func (h *TimerHandler) Start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	view, apiErr := h.timerService.Start(c.Request.Context(), middleware.UserID(c), service.StartInput{
		SessionType: req.Type,
		TaskID:      req.TaskID,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": view})
}

func (h *TimerHandler) Pause(c *gin.Context) {
	view, apiErr := h.timerService.Pause(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": view})
}

func (h *TimerHandler) Resume(c *gin.Context) {
	view, apiErr := h.timerService.Resume(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": view})
}

func (h *TimerHandler) Reset(c *gin.Context) {
	view, apiErr := h.timerService.Reset(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": view})
}

func (h *TimerHandler) SkipBreak(c *gin.Context) {
	view, apiErr := h.timerService.SkipBreak(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": view})
}

func (h *TimerHandler) TakeBreak(c *gin.Context) {
	view, apiErr := h.timerService.TakeBreak(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": view})
}

func (h *TimerHandler) SelectTask(c *gin.Context) {
	var req selectTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	view, apiErr := h.timerService.SelectTask(c.Request.Context(), middleware.UserID(c), req.TaskID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": view})
}

func (h *TimerHandler) History(c *gin.Context) {
	filter := model.SessionFilter{}

	if raw := c.Query("type"); raw != "" {
		sessionType := model.SessionType(raw)
		if !model.ValidSessionType(sessionType) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{"code": "invalid_type", "message": "type must be one of work, short_break, long_break"},
			})
			return
		}
		filter.Type = sessionType
	}
	if c.Query("completed") == "true" {
		filter.CompletedOnly = true
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{"code": "invalid_from", "message": "from must be RFC3339"},
			})
			return
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{"code": "invalid_to", "message": "to must be RFC3339"},
			})
			return
		}
		filter.To = &to
	}
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			filter.Limit = parsed
		}
	}

	records, apiErr := h.timerService.History(c.Request.Context(), middleware.UserID(c), filter)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": records})
}
