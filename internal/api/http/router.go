package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpme/helpdesk/internal/api/http/handlers"
	"github.com/helpme/helpdesk/internal/auth"
	"github.com/helpme/helpdesk/internal/chat"
	"github.com/helpme/helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Notifications  *handlers.NotificationsHandler
	FAQs           *handlers.FAQsHandler
	Files          *handlers.FilesHandler
	Chat           *chat.Handler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/password/reset/request", cfg.Users.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Users.ConfirmPasswordReset)

	authed := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	authed.Post("/auth/password/change", cfg.Users.ChangePassword)
	authed.Get("/profile", cfg.Users.GetProfile)
	authed.Put("/profile", cfg.Users.UpdateProfile)

	tickets := authed.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)
	tickets.Post("/:id/close", cfg.Tickets.CloseTicket)
	tickets.Post("/:id/progress", cfg.Tickets.StartProgress)
	tickets.Post("/:id/attachments", cfg.Tickets.UploadAttachment)
	tickets.Get("/:id/attachments", cfg.Tickets.ListAttachments)

	authed.Get("/notifications", cfg.Notifications.List)
	authed.Post("/notifications/:id/read", cfg.Notifications.MarkRead)

	authed.Get("/files/:key", cfg.Files.Download)

	app.Get("/faqs", cfg.FAQs.List)
	app.Get("/faqs/:id", cfg.FAQs.Get)
	authed.Post("/faqs", auth.RequireRole(domain.RoleAgent, domain.RoleAdmin), cfg.FAQs.Create)

	// Websocket upgrade for the per-ticket conversation. The gate refuses
	// non-members before the upgrade happens.
	app.Get("/ws/tickets/:id", cfg.AuthMiddleware.Handle, cfg.Chat.Gate, cfg.Chat.Serve())
}
