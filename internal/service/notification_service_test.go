package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/anvy22/taskboard/internal/domain"
	"github.com/anvy22/taskboard/internal/observability"
	"github.com/anvy22/taskboard/internal/realtime"
	"github.com/anvy22/taskboard/internal/repository"
)

type memNotificationRepo struct {
	rows map[string]*domain.Notification
}

func newMemNotificationRepo() *memNotificationRepo {
	return &memNotificationRepo{rows: make(map[string]*domain.Notification)}
}

func (r *memNotificationRepo) Create(_ context.Context, notification *domain.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	notification.IsRead = false
	cp := *notification
	r.rows[notification.ID] = &cp
	return nil
}

func (r *memNotificationRepo) ListByRecipient(_ context.Context, recipientID string, filter repository.NotificationFilter) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, n := range r.rows {
		if n.Recipient != recipientID {
			continue
		}
		if filter.UnreadOnly && n.IsRead {
			continue
		}
		out = append(out, *n)
	}
	return out, nil
}

func (r *memNotificationRepo) MarkRead(_ context.Context, id, recipientID string) (*domain.Notification, error) {
	n, ok := r.rows[id]
	if !ok || n.Recipient != recipientID {
		return nil, pgx.ErrNoRows
	}
	n.IsRead = true
	cp := *n
	return &cp, nil
}

func (r *memNotificationRepo) MarkAllRead(_ context.Context, recipientID string) (int64, error) {
	var count int64
	for _, n := range r.rows {
		if n.Recipient == recipientID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

func (r *memNotificationRepo) UnreadCount(_ context.Context, recipientID string) (int64, error) {
	var count int64
	for _, n := range r.rows {
		if n.Recipient == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *memNotificationRepo) Delete(_ context.Context, id, recipientID string) error {
	n, ok := r.rows[id]
	if !ok || n.Recipient != recipientID {
		return pgx.ErrNoRows
	}
	delete(r.rows, id)
	return nil
}

func (r *memNotificationRepo) DeleteAll(_ context.Context, recipientID string) (int64, error) {
	var count int64
	for id, n := range r.rows {
		if n.Recipient == recipientID {
			delete(r.rows, id)
			count++
		}
	}
	return count, nil
}

type recordingSession struct {
	events []string
}

func (s *recordingSession) Send(event string, _ any) error {
	s.events = append(s.events, event)
	return nil
}

func newNotificationFixture() (*NotificationService, *memNotificationRepo, *realtime.Registry) {
	repo := newMemNotificationRepo()
	registry := realtime.NewRegistry()
	emitter := realtime.NewEmitter(registry, zap.NewNop(), observability.NewMetrics())
	svc := NewNotificationService(repo, emitter, nil, zap.NewNop())
	return svc, repo, registry
}

func TestCreateNotificationStartsUnread(t *testing.T) {
	svc, _, _ := newNotificationFixture()

	notification, err := svc.Create(context.Background(), CreateNotificationInput{
		RecipientID: "u1",
		Type:        domain.NotificationTicketAssigned,
		Title:       "New ticket",
		Message:     "Ada assigned you a ticket",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if notification.IsRead {
		t.Fatal("fresh notification marked read")
	}
	count, err := svc.UnreadCount(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 1 {
		t.Fatalf("unread count = %d, want 1", count)
	}
}

func TestCreatePushesToOnlineRecipient(t *testing.T) {
	svc, _, registry := newNotificationFixture()
	session := &recordingSession{}
	registry.Register("auth-1", session)

	_, err := svc.Create(context.Background(), CreateNotificationInput{
		RecipientID:      "u1",
		RecipientAuthUID: "auth-1",
		Type:             domain.NotificationCommentAdded,
		Title:            "New comment",
		Message:          "Mo commented",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(session.events) != 1 || session.events[0] != "notification:new" {
		t.Fatalf("session received %v", session.events)
	}
}

func TestCreateSurvivesOfflineRecipient(t *testing.T) {
	svc, repo, _ := newNotificationFixture()

	notification, err := svc.Create(context.Background(), CreateNotificationInput{
		RecipientID:      "u1",
		RecipientAuthUID: "nobody-home",
		Type:             domain.NotificationTicketUpdated,
		Title:            "Moved",
		Message:          "status changed",
	})
	if err != nil {
		t.Fatalf("create with offline recipient: %v", err)
	}
	if _, ok := repo.rows[notification.ID]; !ok {
		t.Fatal("notification not persisted")
	}
}

func TestMarkReadScopedToRecipient(t *testing.T) {
	svc, _, _ := newNotificationFixture()
	ctx := context.Background()

	notification, err := svc.Create(ctx, CreateNotificationInput{
		RecipientID: "u1",
		Type:        domain.NotificationTicketAssigned,
		Title:       "t",
		Message:     "m",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.MarkRead(ctx, notification.ID, "intruder"); err == nil {
		t.Fatal("foreign recipient marked someone else's notification read")
	}

	marked, err := svc.MarkRead(ctx, notification.ID, "u1")
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !marked.IsRead {
		t.Fatal("notification not marked read")
	}

	// Idempotent on an already-read row.
	if _, err := svc.MarkRead(ctx, notification.ID, "u1"); err != nil {
		t.Fatalf("second mark read: %v", err)
	}
}

func TestMarkAllReadThenCountZero(t *testing.T) {
	svc, _, _ := newNotificationFixture()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(ctx, CreateNotificationInput{
			RecipientID: "u1",
			Type:        domain.NotificationTicketUpdated,
			Title:       "t",
			Message:     "m",
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	updated, err := svc.MarkAllRead(ctx, "u1")
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if updated != 3 {
		t.Fatalf("updated = %d, want 3", updated)
	}

	count, err := svc.UnreadCount(ctx, "u1")
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 0 {
		t.Fatalf("unread count = %d, want 0", count)
	}

	// Running it again is a no-op.
	updated, err = svc.MarkAllRead(ctx, "u1")
	if err != nil {
		t.Fatalf("second mark all read: %v", err)
	}
	if updated != 0 {
		t.Fatalf("second run updated = %d, want 0", updated)
	}
}

func TestUnreadOnlyFilter(t *testing.T) {
	svc, _, _ := newNotificationFixture()
	ctx := context.Background()

	first, _ := svc.Create(ctx, CreateNotificationInput{
		RecipientID: "u1", Type: domain.NotificationTicketAssigned, Title: "a", Message: "m",
	})
	if _, err := svc.Create(ctx, CreateNotificationInput{
		RecipientID: "u1", Type: domain.NotificationTicketUpdated, Title: "b", Message: "m",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.MarkRead(ctx, first.ID, "u1"); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	unread, err := svc.List(ctx, "u1", repository.NotificationFilter{UnreadOnly: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(unread) != 1 || unread[0].Title != "b" {
		t.Fatalf("unread list = %v", unread)
	}
}

func TestDeleteAllClearsLedger(t *testing.T) {
	svc, repo, _ := newNotificationFixture()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.Create(ctx, CreateNotificationInput{
			RecipientID: "u1", Type: domain.NotificationTicketUpdated, Title: "t", Message: "m",
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	deleted, err := svc.DeleteAll(ctx, "u1")
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted = %d, want 2", deleted)
	}
	if len(repo.rows) != 0 {
		t.Fatalf("%d rows left behind", len(repo.rows))
	}
}
