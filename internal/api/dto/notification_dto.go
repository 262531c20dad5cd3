package dto

import (
	"time"

	"github.com/anvy22/taskboard/internal/domain"
)

// NotificationResponse is the wire shape of a ledger entry, shared by the
// REST surface and the notification:new push.
type NotificationResponse struct {
	ID        string           `json:"id"`
	Recipient string           `json:"recipient"`
	Actor     *UserRefResponse `json:"actor,omitempty"`
	Type      string           `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	RefType   *string          `json:"ref_type,omitempty"`
	RefID     *string          `json:"ref_id,omitempty"`
	IsRead    bool             `json:"is_read"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// NotificationFromDomain converts a domain notification.
func NotificationFromDomain(notification *domain.Notification) NotificationResponse {
	var refType *string
	if notification.RefType != nil {
		val := string(*notification.RefType)
		refType = &val
	}
	return NotificationResponse{
		ID:        notification.ID,
		Recipient: notification.Recipient,
		Actor:     UserRefFromDomain(notification.Actor),
		Type:      string(notification.Type),
		Title:     notification.Title,
		Message:   notification.Message,
		RefType:   refType,
		RefID:     notification.RefID,
		IsRead:    notification.IsRead,
		Metadata:  notification.Metadata,
		CreatedAt: notification.CreatedAt,
	}
}
