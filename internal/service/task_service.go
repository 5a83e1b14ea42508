package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ronaldtieu/pomodoro-project/internal/apperrors"
	"github.com/ronaldtieu/pomodoro-project/internal/model"
	"github.com/ronaldtieu/pomodoro-project/internal/repository"
)

type TaskService struct {
	taskRepo *repository.TaskRepository
}

func NewTaskService(taskRepo *repository.TaskRepository) *TaskService {
	return &TaskService{taskRepo: taskRepo}
}

func (s *TaskService) Create(ctx context.Context, userID, title string, description *string) (*model.Task, *apperrors.APIError) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.BadRequest("invalid_title", "title is required")
	}

	now := time.Now().UTC()
	task := model.Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, apperrors.Internal("failed to create task")
	}
	return &task, nil
}

func (s *TaskService) List(ctx context.Context, userID string) ([]model.Task, *apperrors.APIError) {
	tasks, err := s.taskRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to list tasks")
	}
	return tasks, nil
}

func (s *TaskService) Complete(ctx context.Context, userID, taskID string) (*model.Task, *apperrors.APIError) {
	task, apiErr := s.owned(ctx, userID, taskID)
	if apiErr != nil {
		return nil, apiErr
	}

	if err := s.taskRepo.MarkCompleted(ctx, task.ID, time.Now().UTC()); err != nil {
		return nil, apperrors.Internal("failed to complete task")
	}

	updated, err := s.taskRepo.Get(ctx, task.ID)
	if err != nil {
		return nil, apperrors.Internal("failed to reload task")
	}
	return updated, nil
}

func (s *TaskService) Delete(ctx context.Context, userID, taskID string) *apperrors.APIError {
	task, apiErr := s.owned(ctx, userID, taskID)
	if apiErr != nil {
		return apiErr
	}

	if err := s.taskRepo.Delete(ctx, task.ID); err != nil {
		return apperrors.Internal("failed to delete task")
	}
	return nil
}

func (s *TaskService) owned(ctx context.Context, userID, taskID string) (*model.Task, *apperrors.APIError) {
	task, err := s.taskRepo.Get(ctx, taskID)
	if err == repository.ErrNotFound {
		return nil, apperrors.NotFound("task_not_found", "task not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load task")
	}
	if task.UserID != userID {
		return nil, apperrors.NotFound("task_not_found", "task not found")
	}
	return task, nil
}
