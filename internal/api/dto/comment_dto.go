package dto

import (
	"time"

	"github.com/anvy22/taskboard/internal/domain"
)

// CreateCommentRequest payload for adding a comment.
type CreateCommentRequest struct {
	Content string  `json:"content"`
	ReplyTo *string `json:"reply_to,omitempty"`
}

// RepliedCommentResponse is the embedded shape of the comment being answered.
type RepliedCommentResponse struct {
	ID      string           `json:"id"`
	Content string           `json:"content"`
	Author  *UserRefResponse `json:"author,omitempty"`
}

// CommentResponse is the wire shape of a comment.
type CommentResponse struct {
	ID        string                  `json:"id"`
	TicketID  string                  `json:"ticket_id"`
	Content   string                  `json:"content"`
	Author    *UserRefResponse        `json:"author,omitempty"`
	ReplyTo   *RepliedCommentResponse `json:"reply_to,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

// CommentFromDomain converts a domain comment.
func CommentFromDomain(comment *domain.Comment) CommentResponse {
	resp := CommentResponse{
		ID:        comment.ID,
		TicketID:  comment.TicketID,
		Content:   comment.Content,
		Author:    UserRefFromDomain(comment.Author),
		CreatedAt: comment.CreatedAt,
	}
	if comment.Replied != nil {
		resp.ReplyTo = &RepliedCommentResponse{
			ID:      comment.Replied.ID,
			Content: comment.Replied.Content,
			Author:  UserRefFromDomain(comment.Replied.Author),
		}
	}
	return resp
}
