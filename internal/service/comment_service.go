package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/anvy22/taskboard/internal/domain"
	"github.com/anvy22/taskboard/internal/events"
	"github.com/anvy22/taskboard/internal/repository"
	apperrors "github.com/anvy22/taskboard/pkg/util"
)

// CommentService handles ticket discussion threads.
type CommentService struct {
	comments   repository.CommentRepository
	tickets    *TicketService
	activities repository.ActivityRepository
	dispatcher events.Dispatcher
}

// NewCommentService constructs the service.
func NewCommentService(comments repository.CommentRepository, tickets *TicketService, activities repository.ActivityRepository, dispatcher events.Dispatcher) *CommentService {
	return &CommentService{
		comments:   comments,
		tickets:    tickets,
		activities: activities,
		dispatcher: dispatcher,
	}
}

// AddComment appends a comment, optionally replying to another one on the
// same ticket. Writes one COMMENT_ADDED activity.
func (s *CommentService) AddComment(ctx context.Context, actor *domain.User, ticketID, content string, replyTo *string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("content required", nil)
	}
	ticket, err := s.tickets.GetTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}

	var repliedAuthorID *string
	if replyTo != nil {
		replied, err := s.comments.GetByID(ctx, *replyTo)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("comment", nil)
			}
			return nil, err
		}
		if replied.TicketID != ticketID {
			return nil, apperrors.NewValidationError("reply target belongs to another ticket", nil)
		}
		repliedAuthorID = &replied.AuthorID
	}

	comment := &domain.Comment{
		TicketID: ticketID,
		AuthorID: actor.ID,
		Content:  content,
		ReplyTo:  replyTo,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	// Re-read for the expanded author and reply fields.
	stored, err := s.comments.GetByID(ctx, comment.ID)
	if err != nil {
		stored = comment
	}

	if err := s.activities.Create(ctx, &domain.Activity{
		TicketID:    ticketID,
		Action:      domain.ActionCommentAdded,
		PerformedBy: actor.ID,
	}); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticketID,
		ActorID:  actor.ID,
		Payload: events.CommentAddedPayload{
			Ticket:          ticket,
			Comment:         stored,
			RepliedAuthorID: repliedAuthorID,
		},
	})
	return stored, nil
}

// ListComments returns the thread oldest-first.
func (s *CommentService) ListComments(ctx context.Context, actor *domain.User, ticketID string) ([]domain.Comment, error) {
	if _, err := s.tickets.GetTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	return s.comments.ListByTicket(ctx, ticketID)
}

// DeleteComment removes a comment. Allowed for its author or an admin.
// Writes one COMMENT_DELETED activity.
func (s *CommentService) DeleteComment(ctx context.Context, actor *domain.User, ticketID, commentID string) error {
	ticket, err := s.tickets.GetTicket(ctx, actor, ticketID)
	if err != nil {
		return err
	}
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("comment", nil)
		}
		return err
	}
	if comment.TicketID != ticketID {
		return apperrors.NewNotFound("comment", nil)
	}
	if comment.AuthorID != actor.ID && !actor.IsAdmin() {
		return apperrors.NewForbidden("not your comment")
	}

	if err := s.comments.Delete(ctx, commentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("comment", nil)
		}
		return err
	}
	if err := s.activities.Create(ctx, &domain.Activity{
		TicketID:    ticketID,
		Action:      domain.ActionCommentDeleted,
		PerformedBy: actor.ID,
	}); err != nil {
		return err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventCommentDeleted,
		TicketID: ticketID,
		ActorID:  actor.ID,
		Payload: events.CommentDeletedPayload{
			Ticket:    ticket,
			CommentID: commentID,
		},
	})
	return nil
}

func (s *CommentService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
