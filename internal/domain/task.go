package domain

import "time"

// TaskStatus enumerates personal task states.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
)

// Task is a personal todo owned by its creator; not part of the board workflow.
type Task struct {
	ID          string
	Title       string
	Description string
	Status      TaskStatus
	Priority    TicketPriority
	DueDate     *time.Time
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
