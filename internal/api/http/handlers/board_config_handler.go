package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/anvy22/taskboard/internal/auth"
	"github.com/anvy22/taskboard/internal/config"
	apperrors "github.com/anvy22/taskboard/pkg/util"
)

// BoardConfigHandler tells clients the commit delays their scheduler
// should run with. The delay depends on the caller's role.
type BoardConfigHandler struct {
	realtime config.RealtimeConfig
}

// NewBoardConfigHandler constructs handler.
func NewBoardConfigHandler(realtime config.RealtimeConfig) *BoardConfigHandler {
	return &BoardConfigHandler{realtime: realtime}
}

// Get GET /board/config.
func (h *BoardConfigHandler) Get(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	delay := h.realtime.CommitDelayMemberMS
	if user.IsAdmin() {
		delay = h.realtime.CommitDelayAdminMS
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"role":                   user.Role,
			"commit_delay_ms":        delay,
			"commit_delay_admin_ms":  h.realtime.CommitDelayAdminMS,
			"commit_delay_member_ms": h.realtime.CommitDelayMemberMS,
			"ping_interval_seconds":  h.realtime.PingIntervalSeconds,
		},
	})
}
