package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/anvy22/taskboard/internal/api/dto"
	"github.com/anvy22/taskboard/internal/auth"
	"github.com/anvy22/taskboard/internal/repository"
	"github.com/anvy22/taskboard/internal/service"
	apperrors "github.com/anvy22/taskboard/pkg/util"
)

// NotificationsHandler exposes the per-user notification ledger.
type NotificationsHandler struct {
	service *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

// List GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	filter := repository.NotificationFilter{
		Limit:      parseInt(c.Query("limit"), 50),
		Offset:     parseOffset(c.Query("skip")),
		UnreadOnly: c.QueryBool("unread_only"),
	}
	notifications, err := h.service.List(c.Context(), user.ID, filter)
	if err != nil {
		return err
	}
	items := make([]dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		items = append(items, dto.NotificationFromDomain(&notifications[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UnreadCount GET /notifications/unread-count.
func (h *NotificationsHandler) UnreadCount(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	count, err := h.service.UnreadCount(c.Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"count": count}})
}

// MarkRead PATCH /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	notification, err := h.service.MarkRead(c.Context(), c.Params("id"), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NotificationFromDomain(notification)})
}

// MarkAllRead PATCH /notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	updated, err := h.service.MarkAllRead(c.Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"updated": updated}})
}

// Delete DELETE /notifications/:id.
func (h *NotificationsHandler) Delete(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	if err := h.service.Delete(c.Context(), c.Params("id"), user.ID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// DeleteAll DELETE /notifications.
func (h *NotificationsHandler) DeleteAll(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	deleted, err := h.service.DeleteAll(c.Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": deleted}})
}
