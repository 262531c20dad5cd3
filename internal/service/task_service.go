package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/anvy22/taskboard/internal/domain"
	"github.com/anvy22/taskboard/internal/repository"
	apperrors "github.com/anvy22/taskboard/pkg/util"
)

// TaskService handles personal todos. Tasks are private to their owner;
// a foreign task is reported as missing rather than forbidden.
type TaskService struct {
	tasks repository.TaskRepository
}

func NewTaskService(tasks repository.TaskRepository) *TaskService {
	return &TaskService{tasks: tasks}
}

// CreateTaskInput carries the writable task fields.
type CreateTaskInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	DueDate     *time.Time
}

// UpdateTaskInput carries partial updates; nil fields are left untouched.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *domain.TaskStatus
	Priority    *domain.TicketPriority
	DueDate     *time.Time
}

func (s *TaskService) CreateTask(ctx context.Context, owner *domain.User, input CreateTaskInput) (*domain.Task, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	if !validPriority(input.Priority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": string(input.Priority)})
	}
	task := &domain.Task{
		Title:       input.Title,
		Description: input.Description,
		Status:      domain.TaskStatusPending,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		CreatedBy:   owner.ID,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) ListTasks(ctx context.Context, owner *domain.User) ([]domain.Task, error) {
	return s.tasks.ListByOwner(ctx, owner.ID)
}

func (s *TaskService) GetTask(ctx context.Context, owner *domain.User, id string) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("task", nil)
		}
		return nil, err
	}
	if task.CreatedBy != owner.ID {
		return nil, apperrors.NewNotFound("task", nil)
	}
	return task, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, owner *domain.User, id string, input UpdateTaskInput) (*domain.Task, error) {
	task, err := s.GetTask(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title required", nil)
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		if *input.Status != domain.TaskStatusPending && *input.Status != domain.TaskStatusCompleted {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": string(*input.Status)})
		}
		task.Status = *input.Status
	}
	if input.Priority != nil {
		if !validPriority(*input.Priority) {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": string(*input.Priority)})
		}
		task.Priority = *input.Priority
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if err := s.tasks.Update(ctx, task); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("task", nil)
		}
		return nil, err
	}
	return task, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, owner *domain.User, id string) error {
	if _, err := s.GetTask(ctx, owner, id); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("task", nil)
		}
		return err
	}
	return nil
}

func validPriority(p domain.TicketPriority) bool {
	switch p {
	case domain.TicketPriorityLow, domain.TicketPriorityMedium, domain.TicketPriorityHigh:
		return true
	}
	return false
}
