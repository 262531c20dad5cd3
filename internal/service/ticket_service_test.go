package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/anvy22/taskboard/internal/domain"
	"github.com/anvy22/taskboard/internal/events"
	"github.com/anvy22/taskboard/internal/repository"
	apperrors "github.com/anvy22/taskboard/pkg/util"
)

type memTicketRepo struct {
	tickets map[string]*domain.Ticket
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	ticket.Version = 1
	cp := *ticket
	r.tickets[ticket.ID] = &cp
	return nil
}

func (r *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != ticket.Version {
		return repository.ErrVersionConflict
	}
	ticket.Version++
	cp := *ticket
	r.tickets[ticket.ID] = &cp
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	stored, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *stored
	return &cp, nil
}

func (r *memTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, t := range r.tickets {
		if filter.AssignedTo != nil && t.AssignedTo != *filter.AssignedTo {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *memTicketRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

type memActivityRepo struct {
	entries []domain.Activity
}

func (r *memActivityRepo) Create(_ context.Context, activity *domain.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	r.entries = append(r.entries, *activity)
	return nil
}

func (r *memActivityRepo) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.Activity, error) {
	var out []domain.Activity
	for _, e := range r.entries {
		if e.TicketID == ticketID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memActivityRepo) DeleteByTicket(_ context.Context, ticketID string) error {
	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.TicketID != ticketID {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	return nil
}

func (r *memActivityRepo) byAction(ticketID string, action domain.ActivityAction) []domain.Activity {
	var out []domain.Activity
	for _, e := range r.entries {
		if e.TicketID == ticketID && e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type memCommentRepo struct {
	comments map[string]*domain.Comment
}

func newMemCommentRepo() *memCommentRepo {
	return &memCommentRepo{comments: make(map[string]*domain.Comment)}
}

func (r *memCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	cp := *comment
	r.comments[comment.ID] = &cp
	return nil
}

func (r *memCommentRepo) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	stored, ok := r.comments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *stored
	return &cp, nil
}

func (r *memCommentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	var out []domain.Comment
	for _, c := range r.comments {
		if c.TicketID == ticketID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *memCommentRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.comments[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.comments, id)
	return nil
}

func (r *memCommentRepo) DeleteByTicket(_ context.Context, ticketID string) error {
	for id, c := range r.comments {
		if c.TicketID == ticketID {
			delete(r.comments, id)
		}
	}
	return nil
}

type memUserRepo struct {
	users map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	stored, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *stored
	return &cp, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) GetByAuthUID(_ context.Context, authUID string) (*domain.User, error) {
	for _, u := range r.users {
		if u.AuthUID == authUID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) List(_ context.Context, _, _ int) ([]domain.User, error) {
	var out []domain.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

type fixture struct {
	service    *TicketService
	tickets    *memTicketRepo
	activities *memActivityRepo
	users      *memUserRepo
	comments   *memCommentRepo
	dispatcher events.Dispatcher
	published  *[]events.Event
	admin      *domain.User
	member     *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tickets := newMemTicketRepo()
	activities := &memActivityRepo{}
	comments := newMemCommentRepo()
	users := newMemUserRepo()
	dispatcher := events.NewInMemoryDispatcher()

	published := &[]events.Event{}
	capture := func(_ context.Context, event events.Event) error {
		*published = append(*published, event)
		return nil
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketReviewed,
		events.EventTicketDeleted,
		events.EventCommentAdded,
		events.EventCommentDeleted,
	} {
		dispatcher.Subscribe(eventType, capture)
	}

	admin := &domain.User{AuthUID: uuid.NewString(), Name: "Ada", Email: "ada@example.com", Role: domain.RoleAdmin}
	member := &domain.User{AuthUID: uuid.NewString(), Name: "Mo", Email: "mo@example.com", Role: domain.RoleMember}
	_ = users.Create(context.Background(), admin)
	_ = users.Create(context.Background(), member)

	svc := NewTicketService(TicketDependencies{
		TicketRepo:   tickets,
		ActivityRepo: activities,
		CommentRepo:  comments,
		UserRepo:     users,
		Dispatcher:   dispatcher,
	})
	return &fixture{
		service:    svc,
		tickets:    tickets,
		activities: activities,
		users:      users,
		comments:   comments,
		dispatcher: dispatcher,
		published:  published,
		admin:      admin,
		member:     member,
	}
}

func (f *fixture) createTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := f.service.CreateTicket(context.Background(), f.admin, TicketCreateInput{
		Title:      "fix login",
		AssignedTo: f.member.ID,
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("error %v is not a DomainError", err)
	}
	return domainErr.Code
}

func TestCreateTicketDefaults(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	if ticket.Status != domain.TicketStatusTodo {
		t.Fatalf("status = %q, want todo", ticket.Status)
	}
	if ticket.IsReviewed {
		t.Fatal("new ticket marked reviewed")
	}
	if ticket.Priority != domain.TicketPriorityMedium {
		t.Fatalf("priority = %q, want default medium", ticket.Priority)
	}
	if got := f.activities.byAction(ticket.ID, domain.ActionTicketCreated); len(got) != 1 {
		t.Fatalf("TICKET_CREATED activities = %d, want 1", len(got))
	}
	if len(*f.published) != 1 || (*f.published)[0].Type != events.EventTicketCreated {
		t.Fatalf("published = %v", *f.published)
	}
}

func TestCreateTicketRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.CreateTicket(context.Background(), f.member, TicketCreateInput{
		Title:      "nope",
		AssignedTo: f.member.ID,
	})
	if code := domainCode(t, err); code != "FORBIDDEN" {
		t.Fatalf("code = %q, want FORBIDDEN", code)
	}
}

func TestCreateTicketUnknownAssignee(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.CreateTicket(context.Background(), f.admin, TicketCreateInput{
		Title:      "orphan",
		AssignedTo: uuid.NewString(),
	})
	if code := domainCode(t, err); code != "NOT_FOUND" {
		t.Fatalf("code = %q, want NOT_FOUND", code)
	}
}

func TestMemberAdvancesOneStep(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	ctx := context.Background()

	updated, err := f.service.UpdateStatus(ctx, f.member, ticket.ID, domain.TicketStatusInProgress)
	if err != nil {
		t.Fatalf("todo -> in_progress: %v", err)
	}
	if updated.Status != domain.TicketStatusInProgress {
		t.Fatalf("status = %q", updated.Status)
	}

	updated, err = f.service.UpdateStatus(ctx, f.member, ticket.ID, domain.TicketStatusDone)
	if err != nil {
		t.Fatalf("in_progress -> done: %v", err)
	}
	if updated.Status != domain.TicketStatusDone {
		t.Fatalf("status = %q", updated.Status)
	}
	// A member finishing work leaves the review gate closed.
	if updated.IsReviewed {
		t.Fatal("member completion marked ticket reviewed")
	}
}

func TestMemberCannotSkipOrGoBack(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	ctx := context.Background()

	_, err := f.service.UpdateStatus(ctx, f.member, ticket.ID, domain.TicketStatusDone)
	if code := domainCode(t, err); code != "FORBIDDEN" {
		t.Fatalf("skip-ahead code = %q, want FORBIDDEN", code)
	}

	// The rejected transition must leave the stored status untouched and
	// write no audit entry.
	stored, _ := f.tickets.GetByID(ctx, ticket.ID)
	if stored.Status != domain.TicketStatusTodo {
		t.Fatalf("stored status = %q after rejected move", stored.Status)
	}
	if got := f.activities.byAction(ticket.ID, domain.ActionStatusUpdated); len(got) != 0 {
		t.Fatalf("rejected move wrote %d activities", len(got))
	}

	if _, err := f.service.UpdateStatus(ctx, f.member, ticket.ID, domain.TicketStatusInProgress); err != nil {
		t.Fatalf("forward move: %v", err)
	}
	_, err = f.service.UpdateStatus(ctx, f.member, ticket.ID, domain.TicketStatusTodo)
	if code := domainCode(t, err); code != "FORBIDDEN" {
		t.Fatalf("backward code = %q, want FORBIDDEN", code)
	}
}

func TestAdminMovesAnywhere(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	ctx := context.Background()

	updated, err := f.service.UpdateStatus(ctx, f.admin, ticket.ID, domain.TicketStatusDone)
	if err != nil {
		t.Fatalf("todo -> done as admin: %v", err)
	}
	// An admin completing a ticket self-certifies the review.
	if !updated.IsReviewed {
		t.Fatal("admin completion did not mark ticket reviewed")
	}

	updated, err = f.service.UpdateStatus(ctx, f.admin, ticket.ID, domain.TicketStatusTodo)
	if err != nil {
		t.Fatalf("done -> todo as admin: %v", err)
	}
	// Leaving done always clears the review flag.
	if updated.IsReviewed {
		t.Fatal("review flag survived leaving done")
	}
}

func TestSameStatusIsNoOp(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	ctx := context.Background()

	before := len(*f.published)
	updated, err := f.service.UpdateStatus(ctx, f.member, ticket.ID, domain.TicketStatusTodo)
	if err != nil {
		t.Fatalf("no-op move: %v", err)
	}
	if updated.Status != domain.TicketStatusTodo {
		t.Fatalf("status = %q", updated.Status)
	}
	if len(*f.published) != before {
		t.Fatal("no-op move published an event")
	}
	if got := f.activities.byAction(ticket.ID, domain.ActionStatusUpdated); len(got) != 0 {
		t.Fatalf("no-op move wrote %d activities", len(got))
	}
}

func TestExactlyOneActivityPerTransition(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	ctx := context.Background()

	if _, err := f.service.UpdateStatus(ctx, f.member, ticket.ID, domain.TicketStatusInProgress); err != nil {
		t.Fatalf("move: %v", err)
	}
	entries := f.activities.byAction(ticket.ID, domain.ActionStatusUpdated)
	if len(entries) != 1 {
		t.Fatalf("STATUS_UPDATED activities = %d, want 1", len(entries))
	}
	if entries[0].OldValue == nil || *entries[0].OldValue != "todo" {
		t.Fatalf("old value = %v", entries[0].OldValue)
	}
	if entries[0].NewValue == nil || *entries[0].NewValue != "in_progress" {
		t.Fatalf("new value = %v", entries[0].NewValue)
	}
	if entries[0].PerformedBy != f.member.ID {
		t.Fatalf("performed by = %q", entries[0].PerformedBy)
	}
}

func TestVersionConflictSurfacesAsConflict(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	ctx := context.Background()

	// Another writer bumps the version underneath us.
	stale, _ := f.tickets.GetByID(ctx, ticket.ID)
	concurrent, _ := f.tickets.GetByID(ctx, ticket.ID)
	concurrent.Status = domain.TicketStatusInProgress
	if err := f.tickets.Update(ctx, concurrent); err != nil {
		t.Fatalf("concurrent update: %v", err)
	}

	stale.Status = domain.TicketStatusInProgress
	err := f.tickets.Update(ctx, stale)
	if !errors.Is(err, repository.ErrVersionConflict) {
		t.Fatalf("stale write err = %v, want ErrVersionConflict", err)
	}
	mapped := mapTicketWriteError(err)
	if code := domainCode(t, mapped); code != "CONFLICT" {
		t.Fatalf("mapped code = %q, want CONFLICT", code)
	}
}

func TestReviewRequiresDone(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	ctx := context.Background()

	_, err := f.service.Review(ctx, f.admin, ticket.ID)
	if code := domainCode(t, err); code != "INVALID_STATE" {
		t.Fatalf("code = %q, want INVALID_STATE", code)
	}

	if _, err := f.service.UpdateStatus(ctx, f.member, ticket.ID, domain.TicketStatusInProgress); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := f.service.UpdateStatus(ctx, f.member, ticket.ID, domain.TicketStatusDone); err != nil {
		t.Fatalf("move: %v", err)
	}

	reviewed, err := f.service.Review(ctx, f.admin, ticket.ID)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if !reviewed.IsReviewed {
		t.Fatal("review did not set the flag")
	}
	if got := f.activities.byAction(ticket.ID, domain.ActionTicketReviewed); len(got) != 1 {
		t.Fatalf("TICKET_REVIEWED activities = %d, want 1", len(got))
	}
}

func TestReviewRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	_, err := f.service.Review(context.Background(), f.member, ticket.ID)
	if code := domainCode(t, err); code != "FORBIDDEN" {
		t.Fatalf("code = %q, want FORBIDDEN", code)
	}
}

func TestMemberVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mine := f.createTicket(t)
	other, err := f.service.CreateTicket(ctx, f.admin, TicketCreateInput{
		Title:      "someone else's",
		AssignedTo: f.admin.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	listed, err := f.service.ListTickets(ctx, f.member, 50, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != mine.ID {
		t.Fatalf("member sees %d tickets", len(listed))
	}

	_, err = f.service.GetTicket(ctx, f.member, other.ID)
	if code := domainCode(t, err); code != "FORBIDDEN" {
		t.Fatalf("foreign ticket code = %q, want FORBIDDEN", code)
	}

	all, err := f.service.ListTickets(ctx, f.admin, 50, 0)
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("admin sees %d tickets, want 2", len(all))
	}
}

func TestDeleteTicketCascades(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	ctx := context.Background()

	comments := NewCommentService(f.comments, f.service, f.activities, f.dispatcher)
	if _, err := comments.AddComment(ctx, f.member, ticket.ID, "on it", nil); err != nil {
		t.Fatalf("add comment: %v", err)
	}

	if err := f.service.DeleteTicket(ctx, f.admin, ticket.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.tickets.GetByID(ctx, ticket.ID); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatal("ticket still stored after delete")
	}
	remaining, _ := f.comments.ListByTicket(ctx, ticket.ID)
	if len(remaining) != 0 {
		t.Fatalf("comments survived delete: %d", len(remaining))
	}
	if entries, _ := f.activities.ListByTicket(ctx, ticket.ID, 50, 0); len(entries) != 0 {
		t.Fatalf("activities survived delete: %d", len(entries))
	}

	last := (*f.published)[len(*f.published)-1]
	if last.Type != events.EventTicketDeleted {
		t.Fatalf("last event = %q, want ticket_deleted", last.Type)
	}
	payload, ok := last.Payload.(events.TicketDeletedPayload)
	if !ok || payload.AssignedTo != f.member.ID {
		t.Fatalf("deleted payload = %#v", last.Payload)
	}
}

func TestDeleteTicketRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	err := f.service.DeleteTicket(context.Background(), f.member, ticket.ID)
	if code := domainCode(t, err); code != "FORBIDDEN" {
		t.Fatalf("code = %q, want FORBIDDEN", code)
	}
}

func TestUnknownStatusRejected(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	_, err := f.service.UpdateStatus(context.Background(), f.admin, ticket.ID, domain.TicketStatus("blocked"))
	if code := domainCode(t, err); code != "VALIDATION_FAILED" {
		t.Fatalf("code = %q, want VALIDATION_FAILED", code)
	}
}
