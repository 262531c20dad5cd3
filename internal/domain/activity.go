package domain

import "time"

// ActivityAction tags one audited state-changing operation.
type ActivityAction string

const (
	ActionTicketCreated  ActivityAction = "TICKET_CREATED"
	ActionStatusUpdated  ActivityAction = "STATUS_UPDATED"
	ActionTicketReviewed ActivityAction = "TICKET_REVIEWED"
	ActionCommentAdded   ActivityAction = "COMMENT_ADDED"
	ActionCommentDeleted ActivityAction = "COMMENT_DELETED"
)

// Activity is an append-only audit record. Entries are never mutated and
// only removed as a cascade of ticket deletion.
type Activity struct {
	ID          string
	TicketID    string
	Action      ActivityAction
	OldValue    *string
	NewValue    *string
	PerformedBy string
	CreatedAt   time.Time

	Performer *UserRef
}
