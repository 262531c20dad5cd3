package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/anvy22/taskboard/internal/api/http/handlers"
	"github.com/anvy22/taskboard/internal/auth"
	"github.com/anvy22/taskboard/internal/realtime"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Comments       *handlers.CommentsHandler
	Notifications  *handlers.NotificationsHandler
	Tasks          *handlers.TasksHandler
	BoardConfig    *handlers.BoardConfigHandler
	Realtime       *realtime.Handler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	// The socket authenticates via token during the upgrade, not through
	// the header middleware.
	app.Use("/ws", cfg.Realtime.Upgrade)
	app.Get("/ws", cfg.Realtime.Serve())

	api := app.Group("", cfg.AuthMiddleware.Handle)

	api.Get("/users", cfg.Users.List)
	api.Get("/users/me", cfg.Users.Me)

	api.Get("/board/config", cfg.BoardConfig.Get)

	tickets := api.Group("/tickets")
	tickets.Post("", auth.RequireAdmin(), cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Patch("/:id/review", auth.RequireAdmin(), cfg.Tickets.Review)
	tickets.Delete("/:id", auth.RequireAdmin(), cfg.Tickets.DeleteTicket)
	tickets.Get("/:id/activity", cfg.Tickets.ListActivity)

	tickets.Post("/:id/comments", cfg.Comments.AddComment)
	tickets.Get("/:id/comments", cfg.Comments.ListComments)
	tickets.Delete("/:id/comments/:commentId", cfg.Comments.DeleteComment)

	notifications := api.Group("/notifications")
	notifications.Get("", cfg.Notifications.List)
	notifications.Get("/unread-count", cfg.Notifications.UnreadCount)
	notifications.Patch("/read-all", cfg.Notifications.MarkAllRead)
	notifications.Patch("/:id/read", cfg.Notifications.MarkRead)
	notifications.Delete("", cfg.Notifications.DeleteAll)
	notifications.Delete("/:id", cfg.Notifications.Delete)

	tasks := api.Group("/tasks")
	tasks.Post("", cfg.Tasks.CreateTask)
	tasks.Get("", cfg.Tasks.ListTasks)
	tasks.Get("/:id", cfg.Tasks.GetTask)
	tasks.Patch("/:id", cfg.Tasks.UpdateTask)
	tasks.Delete("/:id", cfg.Tasks.DeleteTask)
}
