package domain

import "time"

// Comment is a ticket discussion entry, optionally replying to another comment.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Content   string
	ReplyTo   *string
	CreatedAt time.Time

	Author  *UserRef
	Replied *Comment
}
