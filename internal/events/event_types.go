package events

import (
	"time"

	"github.com/anvy22/taskboard/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketReviewed      EventType = "ticket_reviewed"
	EventTicketDeleted       EventType = "ticket_deleted"
	EventCommentAdded        EventType = "comment_added"
	EventCommentDeleted      EventType = "comment_deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Ticket *domain.Ticket `json:"ticket"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Ticket    *domain.Ticket      `json:"ticket"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketReviewedPayload payload.
type TicketReviewedPayload struct {
	Ticket *domain.Ticket `json:"ticket"`
}

// TicketDeletedPayload payload. The ticket row is gone by the time handlers
// run, so the fields interested parties need are carried here.
type TicketDeletedPayload struct {
	TicketID   string `json:"ticket_id"`
	Title      string `json:"title"`
	AssignedTo string `json:"assigned_to"`
	CreatedBy  string `json:"created_by"`
}

// CommentAddedPayload payload. RepliedAuthorID is set when the comment
// answers another comment; that author gets the reply notification.
type CommentAddedPayload struct {
	Ticket          *domain.Ticket  `json:"ticket"`
	Comment         *domain.Comment `json:"comment"`
	RepliedAuthorID *string         `json:"replied_author_id,omitempty"`
}

// CommentDeletedPayload payload.
type CommentDeletedPayload struct {
	Ticket    *domain.Ticket `json:"ticket"`
	CommentID string         `json:"comment_id"`
}
