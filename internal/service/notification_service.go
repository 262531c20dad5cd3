package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/anvy22/taskboard/internal/api/dto"
	"github.com/anvy22/taskboard/internal/domain"
	"github.com/anvy22/taskboard/internal/realtime"
	"github.com/anvy22/taskboard/internal/repository"
	apperrors "github.com/anvy22/taskboard/pkg/util"
)

const unreadCacheTTL = time.Minute

// NotificationService is the durable notification ledger. A created
// notification exists whether or not the recipient was connected; live
// delivery is a best-effort extra.
type NotificationService struct {
	notifications repository.NotificationRepository
	emitter       *realtime.Emitter
	cache         *redis.Client
	logger        *zap.Logger
}

// NewNotificationService creates the service. cache may be nil.
func NewNotificationService(notifications repository.NotificationRepository, emitter *realtime.Emitter, cache *redis.Client, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		emitter:       emitter,
		cache:         cache,
		logger:        logger,
	}
}

// CreateNotificationInput describes a ledger entry to persist.
// RecipientAuthUID is the realtime-transport identity used for the live
// push; it is resolved by the caller, separately from the storage id.
type CreateNotificationInput struct {
	RecipientID      string
	RecipientAuthUID string
	ActorID          *string
	Type             domain.NotificationType
	Title            string
	Message          string
	RefType          *domain.NotificationRefType
	RefID            *string
	Metadata         map[string]any
}

// Create persists a new unread notification and attempts live delivery.
// The stored record is returned regardless of delivery outcome.
func (n *NotificationService) Create(ctx context.Context, input CreateNotificationInput) (*domain.Notification, error) {
	notification := &domain.Notification{
		Recipient: input.RecipientID,
		ActorID:   input.ActorID,
		Type:      input.Type,
		Title:     input.Title,
		Message:   input.Message,
		RefType:   input.RefType,
		RefID:     input.RefID,
		Metadata:  input.Metadata,
	}
	if err := n.notifications.Create(ctx, notification); err != nil {
		return nil, err
	}
	n.invalidateUnread(ctx, input.RecipientID)

	if input.RecipientAuthUID != "" {
		delivered := n.emitter.EmitToUser(input.RecipientAuthUID, "notification:new", dto.NotificationFromDomain(notification))
		if !delivered {
			n.logger.Debug("notification stored, recipient offline",
				zap.String("recipient", input.RecipientID),
				zap.String("type", string(input.Type)))
		}
	}
	return notification, nil
}

// List returns the newest-first page of the recipient's notifications.
func (n *NotificationService) List(ctx context.Context, recipientID string, filter repository.NotificationFilter) ([]domain.Notification, error) {
	return n.notifications.ListByRecipient(ctx, recipientID, filter)
}

// MarkRead marks one notification read; idempotent for already-read rows.
// Acting on another recipient's notification reports not-found.
func (n *NotificationService) MarkRead(ctx context.Context, id, recipientID string) (*domain.Notification, error) {
	notification, err := n.notifications.MarkRead(ctx, id, recipientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("notification", nil)
		}
		return nil, err
	}
	n.invalidateUnread(ctx, recipientID)
	return notification, nil
}

// MarkAllRead marks every unread notification read; idempotent.
func (n *NotificationService) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	count, err := n.notifications.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	n.invalidateUnread(ctx, recipientID)
	return count, nil
}

// UnreadCount returns the recipient's unread total, served from Redis when warm.
func (n *NotificationService) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	if n.cache != nil {
		if cached, err := n.cache.Get(ctx, unreadKey(recipientID)).Result(); err == nil {
			if count, parseErr := strconv.ParseInt(cached, 10, 64); parseErr == nil {
				return count, nil
			}
		}
	}
	count, err := n.notifications.UnreadCount(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	if n.cache != nil {
		if err := n.cache.Set(ctx, unreadKey(recipientID), count, unreadCacheTTL).Err(); err != nil {
			n.logger.Debug("unread cache set failed", zap.Error(err))
		}
	}
	return count, nil
}

// Delete removes one notification scoped to the recipient.
func (n *NotificationService) Delete(ctx context.Context, id, recipientID string) error {
	if err := n.notifications.Delete(ctx, id, recipientID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("notification", nil)
		}
		return err
	}
	n.invalidateUnread(ctx, recipientID)
	return nil
}

// DeleteAll removes every notification of the recipient.
func (n *NotificationService) DeleteAll(ctx context.Context, recipientID string) (int64, error) {
	count, err := n.notifications.DeleteAll(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	n.invalidateUnread(ctx, recipientID)
	return count, nil
}

func (n *NotificationService) invalidateUnread(ctx context.Context, recipientID string) {
	if n.cache == nil {
		return
	}
	if err := n.cache.Del(ctx, unreadKey(recipientID)).Err(); err != nil {
		n.logger.Debug("unread cache invalidation failed", zap.Error(err))
	}
}

func unreadKey(recipientID string) string {
	return "notif:unread:" + recipientID
}
