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

// TicketService owns the ticket workflow: legal status transitions, the
// review gate, and the audit trail derived from them.
type TicketService struct {
	tickets    repository.TicketRepository
	activities repository.ActivityRepository
	comments   repository.CommentRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	ActivityRepo repository.ActivityRepository
	CommentRepo  repository.CommentRepository
	UserRepo     repository.UserRepository
	Dispatcher   events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	Deadline    *time.Time
	AssignedTo  string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		activities: deps.ActivityRepo,
		comments:   deps.CommentRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
	}
}

// memberTransitions is the forward-only path a non-privileged user may walk,
// one step at a time. Admins may set any status freely.
var memberTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusTodo:       {domain.TicketStatusInProgress},
	domain.TicketStatusInProgress: {domain.TicketStatusDone},
	domain.TicketStatusDone:       {},
}

// AllowedNext returns the statuses a role may move a ticket to from current.
func AllowedNext(current domain.TicketStatus, role domain.UserRole) []domain.TicketStatus {
	if role == domain.RoleAdmin {
		all := []domain.TicketStatus{domain.TicketStatusTodo, domain.TicketStatusInProgress, domain.TicketStatusDone}
		next := make([]domain.TicketStatus, 0, len(all)-1)
		for _, s := range all {
			if s != current {
				next = append(next, s)
			}
		}
		return next
	}
	return memberTransitions[current]
}

func transitionAllowed(current, next domain.TicketStatus, role domain.UserRole) bool {
	for _, candidate := range AllowedNext(current, role) {
		if candidate == next {
			return true
		}
	}
	return false
}

// CreateTicket creates a ticket; an admin-only action.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins can create tickets")
	}
	if strings.TrimSpace(input.Title) == "" || input.AssignedTo == "" {
		return nil, apperrors.NewValidationError("title and assigned_to required", nil)
	}
	if input.Priority != "" && !validPriority(input.Priority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": string(input.Priority)})
	}
	if _, err := s.users.GetByID(ctx, input.AssignedTo); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("assignee", nil)
		}
		return nil, err
	}

	ticket := &domain.Ticket{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusTodo,
		Priority:    input.Priority,
		Deadline:    input.Deadline,
		AssignedTo:  input.AssignedTo,
		CreatedBy:   actor.ID,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	if err := s.recordActivity(ctx, ticket.ID, domain.ActionTicketCreated, nil, nil, actor.ID); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketCreatedPayload{Ticket: ticket},
	})
	return ticket, nil
}

// ListTickets returns the tickets visible to the actor: all of them for an
// admin, only assigned ones for a member.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, limit, offset int) ([]domain.Ticket, error) {
	filter := repository.TicketFilter{Limit: limit, Offset: offset}
	if !actor.IsAdmin() {
		filter.AssignedTo = &actor.ID
	}
	return s.tickets.ListWithFilter(ctx, filter)
}

// GetTicket fetches a ticket ensuring the actor may see it.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, err
	}
	if !actor.IsAdmin() && ticket.AssignedTo != actor.ID {
		return nil, apperrors.NewForbidden("not your ticket")
	}
	return ticket, nil
}

// UpdateStatus applies the workflow transition function.
//
// Role gate: members advance forward one step at a time; admins set any
// status. Review gate: entering done sets isReviewed to whether the actor
// is an admin; leaving done always resets it. Exactly one Activity record
// is written per successful transition, then the event fan-out fires.
func (s *TicketService) UpdateStatus(ctx context.Context, actor *domain.User, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if !domain.ValidStatus(newStatus) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}
	ticket, err := s.GetTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == newStatus {
		return ticket, nil
	}
	if !transitionAllowed(ticket.Status, newStatus, actor.Role) {
		return nil, apperrors.NewForbidden("transition not allowed for role")
	}

	oldStatus := ticket.Status
	ticket.Status = newStatus
	if newStatus == domain.TicketStatusDone {
		ticket.IsReviewed = actor.IsAdmin()
	} else {
		ticket.IsReviewed = false
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, mapTicketWriteError(err)
	}
	oldVal, newVal := string(oldStatus), string(newStatus)
	if err := s.recordActivity(ctx, ticket.ID, domain.ActionStatusUpdated, &oldVal, &newVal, actor.ID); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketStatusChangedPayload{
			Ticket:    ticket,
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	})
	return ticket, nil
}

// Review marks a done ticket as reviewed; an admin-only action, valid only
// while the ticket is exactly in done.
func (s *TicketService) Review(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins can review tickets")
	}
	ticket, err := s.GetTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusDone {
		return nil, apperrors.NewInvalidState("can only review completed tickets")
	}

	ticket.IsReviewed = true
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, mapTicketWriteError(err)
	}
	if err := s.recordActivity(ctx, ticket.ID, domain.ActionTicketReviewed, nil, nil, actor.ID); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketReviewed,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketReviewedPayload{Ticket: ticket},
	})
	return ticket, nil
}

// DeleteTicket removes a ticket and cascades its owned activity and comment
// records; an admin-only action.
func (s *TicketService) DeleteTicket(ctx context.Context, actor *domain.User, ticketID string) error {
	if !actor.IsAdmin() {
		return apperrors.NewForbidden("only admins can delete tickets")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", nil)
		}
		return err
	}

	if err := s.activities.DeleteByTicket(ctx, ticketID); err != nil {
		return err
	}
	if err := s.comments.DeleteByTicket(ctx, ticketID); err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", nil)
		}
		return err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticketID,
		ActorID:  actor.ID,
		Payload: events.TicketDeletedPayload{
			TicketID:   ticketID,
			Title:      ticket.Title,
			AssignedTo: ticket.AssignedTo,
			CreatedBy:  ticket.CreatedBy,
		},
	})
	return nil
}

// ListActivity returns the audit trail for a ticket, newest first.
func (s *TicketService) ListActivity(ctx context.Context, actor *domain.User, ticketID string, limit, offset int) ([]domain.Activity, error) {
	if _, err := s.GetTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	return s.activities.ListByTicket(ctx, ticketID, limit, offset)
}

func (s *TicketService) recordActivity(ctx context.Context, ticketID string, action domain.ActivityAction, oldValue, newValue *string, actorID string) error {
	return s.activities.Create(ctx, &domain.Activity{
		TicketID:    ticketID,
		Action:      action,
		OldValue:    oldValue,
		NewValue:    newValue,
		PerformedBy: actorID,
	})
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
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

func mapTicketWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewConflict("ticket was modified concurrently", nil)
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.NewNotFound("ticket", nil)
	default:
		return err
	}
}
