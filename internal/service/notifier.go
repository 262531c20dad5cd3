package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/anvy22/taskboard/internal/api/dto"
	"github.com/anvy22/taskboard/internal/domain"
	"github.com/anvy22/taskboard/internal/events"
	"github.com/anvy22/taskboard/internal/realtime"
	"github.com/anvy22/taskboard/internal/repository"
)

// Notifier turns workflow events into ledger entries and realtime pushes.
// It runs synchronously on the mutating request but its failures are
// contained here: a transition never rolls back because a push or a ledger
// write failed.
type Notifier struct {
	dispatcher    events.Dispatcher
	users         repository.UserRepository
	notifications *NotificationService
	emitter       *realtime.Emitter
	logger        *zap.Logger
}

// NewNotifier creates the notifier.
func NewNotifier(dispatcher events.Dispatcher, users repository.UserRepository, notifications *NotificationService, emitter *realtime.Emitter, logger *zap.Logger) *Notifier {
	return &Notifier{
		dispatcher:    dispatcher,
		users:         users,
		notifications: notifications,
		emitter:       emitter,
		logger:        logger,
	}
}

// RegisterHandlers subscribes to workflow events.
func (n *Notifier) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketReviewed, n.handleTicketReviewed)
	n.dispatcher.Subscribe(events.EventTicketDeleted, n.handleTicketDeleted)
	n.dispatcher.Subscribe(events.EventCommentAdded, n.handleCommentAdded)
	n.dispatcher.Subscribe(events.EventCommentDeleted, n.handleCommentDeleted)
}

func (n *Notifier) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	ticket := payload.Ticket
	actorName := n.actorName(ctx, event.ActorID)

	for _, recipient := range n.recipients(ctx, event.ActorID, ticket.AssignedTo, ticket.CreatedBy) {
		n.emitter.EmitToUser(recipient.AuthUID, "ticket:created", dto.TicketFromDomain(ticket))
		n.ledger(ctx, recipient, event.ActorID, CreateNotificationInput{
			Type:    domain.NotificationTicketAssigned,
			Title:   "New ticket assigned",
			Message: fmt.Sprintf("%s assigned you %q", actorName, ticket.Title),
			RefType: refTicket(),
			RefID:   &ticket.ID,
		})
	}
	return nil
}

func (n *Notifier) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	ticket := payload.Ticket
	actorName := n.actorName(ctx, event.ActorID)

	for _, recipient := range n.recipients(ctx, event.ActorID, ticket.AssignedTo, ticket.CreatedBy) {
		n.emitter.EmitToUser(recipient.AuthUID, "ticket:updated", dto.TicketFromDomain(ticket))
		n.ledger(ctx, recipient, event.ActorID, CreateNotificationInput{
			Type:    domain.NotificationTicketUpdated,
			Title:   "Ticket status changed",
			Message: fmt.Sprintf("%s moved %q from %s to %s", actorName, ticket.Title, payload.OldStatus, payload.NewStatus),
			RefType: refTicket(),
			RefID:   &ticket.ID,
		})
	}
	return nil
}

func (n *Notifier) handleTicketReviewed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketReviewedPayload)
	if !ok {
		return nil
	}
	ticket := payload.Ticket
	actorName := n.actorName(ctx, event.ActorID)

	for _, recipient := range n.recipients(ctx, event.ActorID, ticket.AssignedTo, ticket.CreatedBy) {
		n.emitter.EmitToUser(recipient.AuthUID, "ticket:reviewed", dto.TicketFromDomain(ticket))
		n.ledger(ctx, recipient, event.ActorID, CreateNotificationInput{
			Type:    domain.NotificationTicketReviewed,
			Title:   "Ticket reviewed",
			Message: fmt.Sprintf("%s reviewed %q", actorName, ticket.Title),
			RefType: refTicket(),
			RefID:   &ticket.ID,
		})
	}
	return nil
}

func (n *Notifier) handleTicketDeleted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketDeletedPayload)
	if !ok {
		return nil
	}
	actorName := n.actorName(ctx, event.ActorID)

	for _, recipient := range n.recipients(ctx, event.ActorID, payload.AssignedTo, payload.CreatedBy) {
		n.emitter.EmitToUser(recipient.AuthUID, "ticket:deleted", map[string]any{"ticketId": payload.TicketID})
		n.ledger(ctx, recipient, event.ActorID, CreateNotificationInput{
			Type:    domain.NotificationTicketDeleted,
			Title:   "Ticket deleted",
			Message: fmt.Sprintf("%s deleted %q", actorName, payload.Title),
		})
	}
	return nil
}

func (n *Notifier) handleCommentAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CommentAddedPayload)
	if !ok {
		return nil
	}
	ticket := payload.Ticket
	comment := payload.Comment
	actorName := n.actorName(ctx, event.ActorID)

	interested := []string{ticket.AssignedTo, ticket.CreatedBy}
	if payload.RepliedAuthorID != nil {
		interested = append(interested, *payload.RepliedAuthorID)
	}
	for _, recipient := range n.recipients(ctx, event.ActorID, interested...) {
		replied := payload.RepliedAuthorID != nil && recipient.ID == *payload.RepliedAuthorID
		eventName := "comment:added"
		notifType := domain.NotificationCommentAdded
		title := "New comment"
		message := fmt.Sprintf("%s commented on %q", actorName, ticket.Title)
		if replied {
			eventName = "comment:replied"
			notifType = domain.NotificationCommentReplied
			title = "New reply"
			message = fmt.Sprintf("%s replied to your comment on %q", actorName, ticket.Title)
		}
		n.emitter.EmitToUser(recipient.AuthUID, eventName, map[string]any{
			"ticketId": ticket.ID,
			"comment":  dto.CommentFromDomain(comment),
		})
		n.ledger(ctx, recipient, event.ActorID, CreateNotificationInput{
			Type:     notifType,
			Title:    title,
			Message:  message,
			RefType:  refComment(),
			RefID:    &comment.ID,
			Metadata: map[string]any{"ticketId": ticket.ID},
		})
	}
	return nil
}

func (n *Notifier) handleCommentDeleted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CommentDeletedPayload)
	if !ok {
		return nil
	}
	// Push only: deleted comments leave no ledger entry.
	for _, recipient := range n.recipients(ctx, event.ActorID, payload.Ticket.AssignedTo, payload.Ticket.CreatedBy) {
		n.emitter.EmitToUser(recipient.AuthUID, "comment:deleted", map[string]any{
			"ticketId":  payload.Ticket.ID,
			"commentId": payload.CommentID,
		})
	}
	return nil
}

// recipients resolves the interested identities: deduplicated, the acting
// identity never notified of its own action.
func (n *Notifier) recipients(ctx context.Context, actorID string, ids ...string) []*domain.User {
	seen := map[string]struct{}{actorID: {}}
	var result []*domain.User
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		user, err := n.users.GetByID(ctx, id)
		if err != nil {
			n.logger.Debug("recipient lookup failed", zap.String("user_id", id), zap.Error(err))
			continue
		}
		result = append(result, user)
	}
	return result
}

func (n *Notifier) ledger(ctx context.Context, recipient *domain.User, actorID string, input CreateNotificationInput) {
	input.RecipientID = recipient.ID
	input.RecipientAuthUID = recipient.AuthUID
	if input.ActorID == nil && actorID != "" {
		actor := actorID
		input.ActorID = &actor
	}
	if _, err := n.notifications.Create(ctx, input); err != nil {
		n.logger.Warn("notification ledger write failed",
			zap.String("recipient", recipient.ID),
			zap.String("type", string(input.Type)),
			zap.Error(err))
	}
}

func (n *Notifier) actorName(ctx context.Context, actorID string) string {
	if actorID == "" {
		return "Someone"
	}
	actor, err := n.users.GetByID(ctx, actorID)
	if err != nil {
		return "Someone"
	}
	return actor.Name
}

func refTicket() *domain.NotificationRefType {
	ref := domain.RefTicket
	return &ref
}

func refComment() *domain.NotificationRefType {
	ref := domain.RefComment
	return &ref
}
