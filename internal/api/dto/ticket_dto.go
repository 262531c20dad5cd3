package dto

import (
	"time"

	"github.com/anvy22/taskboard/internal/domain"
)

// CreateTicketRequest payload for ticket creation.
type CreateTicketRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Deadline    *time.Time `json:"deadline"`
	AssignedTo  string     `json:"assigned_to"`
}

// UpdateStatusRequest payload for the status endpoint.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// TicketResponse is the wire shape of a ticket, shared by the REST surface
// and the realtime pushes.
type TicketResponse struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      string           `json:"status"`
	Priority    string           `json:"priority"`
	IsReviewed  bool             `json:"is_reviewed"`
	Deadline    *time.Time       `json:"deadline,omitempty"`
	AssignedTo  string           `json:"assigned_to"`
	CreatedBy   string           `json:"created_by"`
	Assignee    *UserRefResponse `json:"assignee,omitempty"`
	Creator     *UserRefResponse `json:"creator,omitempty"`
	Version     int64            `json:"version"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ActivityResponse is the wire shape of an audit entry.
type ActivityResponse struct {
	ID        string           `json:"id"`
	TicketID  string           `json:"ticket_id"`
	Action    string           `json:"action"`
	OldValue  *string          `json:"old_value,omitempty"`
	NewValue  *string          `json:"new_value,omitempty"`
	Performer *UserRefResponse `json:"performed_by,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// TicketFromDomain converts a domain ticket.
func TicketFromDomain(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Status:      string(ticket.Status),
		Priority:    string(ticket.Priority),
		IsReviewed:  ticket.IsReviewed,
		Deadline:    ticket.Deadline,
		AssignedTo:  ticket.AssignedTo,
		CreatedBy:   ticket.CreatedBy,
		Assignee:    UserRefFromDomain(ticket.Assignee),
		Creator:     UserRefFromDomain(ticket.Creator),
		Version:     ticket.Version,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

// ActivityFromDomain converts a domain activity entry.
func ActivityFromDomain(activity *domain.Activity) ActivityResponse {
	return ActivityResponse{
		ID:        activity.ID,
		TicketID:  activity.TicketID,
		Action:    string(activity.Action),
		OldValue:  activity.OldValue,
		NewValue:  activity.NewValue,
		Performer: UserRefFromDomain(activity.Performer),
		CreatedAt: activity.CreatedAt,
	}
}
