package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anvy22/taskboard/internal/domain"
)

// NotificationFilter captures listing options for a recipient's ledger.
type NotificationFilter struct {
	Limit      int
	Offset     int
	UnreadOnly bool
}

// NotificationRepository stores the durable notification ledger. Every
// operation is scoped to the recipient; a foreign id behaves as absent.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, filter NotificationFilter) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id, recipientID string) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	UnreadCount(ctx context.Context, recipientID string) (int64, error)
	Delete(ctx context.Context, id, recipientID string) error
	DeleteAll(ctx context.Context, recipientID string) (int64, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (recipient_id, actor_id, type, title, message, ref_type, ref_id, is_read, metadata)
        VALUES ($1,$2,$3,$4,$5,$6,$7,FALSE,$8)
        RETURNING id, is_read, created_at`
	return r.pool.QueryRow(ctx, query,
		notification.Recipient,
		notification.ActorID,
		notification.Type,
		notification.Title,
		notification.Message,
		notification.RefType,
		notification.RefID,
		notification.Metadata,
	).Scan(&notification.ID, &notification.IsRead, &notification.CreatedAt)
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string, filter NotificationFilter) ([]domain.Notification, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `
        SELECT n.id, n.recipient_id, n.actor_id, n.type, n.title, n.message,
               n.ref_type, n.ref_id, n.is_read, n.metadata, n.created_at,
               u.id, u.name, u.email
        FROM notifications n
        LEFT JOIN users u ON u.id = n.actor_id
        WHERE n.recipient_id=$1`
	args := []any{recipientID}
	if filter.UnreadOnly {
		query += ` AND n.is_read=FALSE`
	}
	args = append(args, limit, offset)
	query += ` ORDER BY n.created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var notification domain.Notification
		var actorID, actorName, actorEmail *string
		if err := rows.Scan(
			&notification.ID,
			&notification.Recipient,
			&notification.ActorID,
			&notification.Type,
			&notification.Title,
			&notification.Message,
			&notification.RefType,
			&notification.RefID,
			&notification.IsRead,
			&notification.Metadata,
			&notification.CreatedAt,
			&actorID,
			&actorName,
			&actorEmail,
		); err != nil {
			return nil, err
		}
		if actorID != nil {
			actor := domain.UserRef{ID: *actorID}
			if actorName != nil {
				actor.Name = *actorName
			}
			if actorEmail != nil {
				actor.Email = *actorEmail
			}
			notification.Actor = &actor
		}
		result = append(result, notification)
	}
	return result, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, recipientID string) (*domain.Notification, error) {
	// Idempotent: re-marking an already-read row is a successful no-op.
	const query = `
        UPDATE notifications SET is_read=TRUE
        WHERE id=$1 AND recipient_id=$2
        RETURNING id, recipient_id, actor_id, type, title, message, ref_type, ref_id, is_read, metadata, created_at`
	var notification domain.Notification
	if err := r.pool.QueryRow(ctx, query, id, recipientID).Scan(
		&notification.ID,
		&notification.Recipient,
		&notification.ActorID,
		&notification.Type,
		&notification.Title,
		&notification.Message,
		&notification.RefType,
		&notification.RefID,
		&notification.IsRead,
		&notification.Metadata,
		&notification.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE notifications SET is_read=TRUE WHERE recipient_id=$1 AND is_read=FALSE`, recipientID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id=$1 AND is_read=FALSE`, recipientID).Scan(&count)
	return count, err
}

func (r *notificationRepository) Delete(ctx context.Context, id, recipientID string) error {
	cmd, err := r.pool.Exec(ctx,
		`DELETE FROM notifications WHERE id=$1 AND recipient_id=$2`, id, recipientID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) DeleteAll(ctx context.Context, recipientID string) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE recipient_id=$1`, recipientID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
