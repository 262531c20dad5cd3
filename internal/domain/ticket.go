package domain

import "time"

// TicketStatus enumerates board columns.
type TicketStatus string

const (
	TicketStatusTodo       TicketStatus = "todo"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusDone       TicketStatus = "done"
)

// ValidStatus reports whether s is a known board column.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusTodo, TicketStatusInProgress, TicketStatusDone:
		return true
	}
	return false
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// Ticket is the aggregate for admin-assigned work items.
//
// IsReviewed may only be true while Status is done; every transition away
// from done resets it. Version guards concurrent transitions on the same
// ticket: updates are conditional on the version that was read.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	IsReviewed  bool
	Deadline    *time.Time
	AssignedTo  string
	CreatedBy   string
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Expanded references, populated on reads.
	Assignee *UserRef
	Creator  *UserRef
}
