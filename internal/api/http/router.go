package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/lankaconnect/support-service/internal/api/http/handlers"
	"github.com/lankaconnect/support-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Contact        *handlers.ContactHandler
	Tickets        *handlers.SupportTicketsHandler
	AuditLogs      *handlers.AuditLogsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        fiber.Handler
	// ContactRateLimit caps contact submissions per client IP per minute.
	// Zero disables the limit.
	ContactRateLimit int
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	public := app.Group("/api/support")
	if cfg.ContactRateLimit > 0 {
		public.Post("/contact", contactLimiter(cfg.ContactRateLimit), cfg.Contact.Submit)
	} else {
		public.Post("/contact", cfg.Contact.Submit)
	}
	public.Get("/tickets/:referenceId", cfg.Contact.Status)

	admin := app.Group("/api/admin", cfg.AuthMiddleware.Handle)

	support := admin.Group("/support", auth.RequireRole(auth.StaffRoles...))
	support.Get("/stats", cfg.Tickets.Stats)
	support.Get("/tickets", cfg.Tickets.List)
	support.Get("/tickets/:id", handlers.RequireTicketID, cfg.Tickets.Get)
	support.Post("/tickets/:id/replies", handlers.RequireTicketID, cfg.Tickets.Reply)
	support.Post("/tickets/:id/notes", handlers.RequireTicketID, cfg.Tickets.AddNote)
	support.Put("/tickets/:id/status", handlers.RequireTicketID, cfg.Tickets.UpdateStatus)
	support.Put("/tickets/:id/priority", handlers.RequireTicketID, cfg.Tickets.UpdatePriority)
	support.Put("/tickets/:id/assignee", handlers.RequireTicketID, cfg.Tickets.Assign)
	support.Delete("/tickets/:id/assignee", handlers.RequireTicketID, cfg.Tickets.Unassign)

	audit := admin.Group("/audit-logs", auth.RequireRole(auth.RoleAdmin))
	audit.Get("", cfg.AuditLogs.List)
	audit.Get("/export", cfg.AuditLogs.Export)
	audit.Get("/users/:userId", cfg.AuditLogs.ForUser)
	audit.Post("/users/:userId", cfg.AuditLogs.RecordUserAction)
}

func contactLimiter(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many submissions; try again later")
		},
	})
}
