package service

import (
	"context"
	"testing"

	"github.com/anvy22/taskboard/internal/domain"
)

func newCommentFixture(t *testing.T) (*fixture, *CommentService, *domain.Ticket) {
	t.Helper()
	f := newFixture(t)
	svc := NewCommentService(f.comments, f.service, f.activities, f.dispatcher)
	return f, svc, f.createTicket(t)
}

func TestAddCommentWritesActivity(t *testing.T) {
	f, svc, ticket := newCommentFixture(t)
	ctx := context.Background()

	comment, err := svc.AddComment(ctx, f.member, ticket.ID, "working on it", nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if comment.AuthorID != f.member.ID {
		t.Fatalf("author = %q", comment.AuthorID)
	}
	if got := f.activities.byAction(ticket.ID, domain.ActionCommentAdded); len(got) != 1 {
		t.Fatalf("COMMENT_ADDED activities = %d, want 1", len(got))
	}
}

func TestAddCommentRejectsEmptyContent(t *testing.T) {
	f, svc, ticket := newCommentFixture(t)

	_, err := svc.AddComment(context.Background(), f.member, ticket.ID, "   ", nil)
	if code := domainCode(t, err); code != "VALIDATION_FAILED" {
		t.Fatalf("code = %q, want VALIDATION_FAILED", code)
	}
}

func TestReplyMustTargetSameTicket(t *testing.T) {
	f, svc, ticket := newCommentFixture(t)
	ctx := context.Background()

	other, err := f.service.CreateTicket(ctx, f.admin, TicketCreateInput{
		Title:      "other",
		AssignedTo: f.member.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	foreign, err := svc.AddComment(ctx, f.member, other.ID, "elsewhere", nil)
	if err != nil {
		t.Fatalf("comment: %v", err)
	}

	_, err = svc.AddComment(ctx, f.member, ticket.ID, "reply", &foreign.ID)
	if code := domainCode(t, err); code != "VALIDATION_FAILED" {
		t.Fatalf("code = %q, want VALIDATION_FAILED", code)
	}
}

func TestReplyToMissingComment(t *testing.T) {
	f, svc, ticket := newCommentFixture(t)

	missing := "no-such-comment"
	_, err := svc.AddComment(context.Background(), f.member, ticket.ID, "reply", &missing)
	if code := domainCode(t, err); code != "NOT_FOUND" {
		t.Fatalf("code = %q, want NOT_FOUND", code)
	}
}

func TestDeleteCommentAuthorOrAdmin(t *testing.T) {
	f, svc, ticket := newCommentFixture(t)
	ctx := context.Background()

	mine, err := svc.AddComment(ctx, f.member, ticket.ID, "mine", nil)
	if err != nil {
		t.Fatalf("comment: %v", err)
	}

	if err := svc.DeleteComment(ctx, f.member, ticket.ID, mine.ID); err != nil {
		t.Fatalf("author delete: %v", err)
	}
	if got := f.activities.byAction(ticket.ID, domain.ActionCommentDeleted); len(got) != 1 {
		t.Fatalf("COMMENT_DELETED activities = %d, want 1", len(got))
	}

	second, err := svc.AddComment(ctx, f.member, ticket.ID, "another", nil)
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	// The admin may delete anyone's comment.
	if err := svc.DeleteComment(ctx, f.admin, ticket.ID, second.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
}

func TestMemberCannotDeleteForeignComment(t *testing.T) {
	f, svc, ticket := newCommentFixture(t)
	ctx := context.Background()

	adminComment, err := svc.AddComment(ctx, f.admin, ticket.ID, "from the top", nil)
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	err = svc.DeleteComment(ctx, f.member, ticket.ID, adminComment.ID)
	if code := domainCode(t, err); code != "FORBIDDEN" {
		t.Fatalf("code = %q, want FORBIDDEN", code)
	}
	if remaining, _ := f.comments.ListByTicket(ctx, ticket.ID); len(remaining) != 1 {
		t.Fatalf("comment went missing after rejected delete")
	}
}
