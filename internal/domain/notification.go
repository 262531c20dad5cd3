package domain

import "time"

// NotificationType is the closed enumeration of ledger entry kinds.
type NotificationType string

const (
	NotificationTicketAssigned NotificationType = "ticket:assigned"
	NotificationTicketUpdated  NotificationType = "ticket:updated"
	NotificationTicketReviewed NotificationType = "ticket:reviewed"
	NotificationTicketDeleted  NotificationType = "ticket:deleted"
	NotificationCommentAdded   NotificationType = "comment:added"
	NotificationCommentReplied NotificationType = "comment:replied"
)

// NotificationRefType names the entity a notification links to.
type NotificationRefType string

const (
	RefTicket  NotificationRefType = "ticket"
	RefComment NotificationRefType = "comment"
)

// Notification is a durable record that a recipient was told something,
// independent of whether the live push reached them.
type Notification struct {
	ID        string
	Recipient string
	ActorID   *string
	Type      NotificationType
	Title     string
	Message   string
	RefType   *NotificationRefType
	RefID     *string
	IsRead    bool
	Metadata  map[string]any
	CreatedAt time.Time

	Actor *UserRef
}
