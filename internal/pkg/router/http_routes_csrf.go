package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"

	"github.com/ManuelReschke/ServicePortal/app/controllers"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/env"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/middleware"
)

const csrfContextKey = "csrf"

func csrfMiddleware() fiber.Handler {
	return csrf.New(csrf.Config{
		KeyLookup:      "header:X-CSRF-Token",
		ContextKey:     csrfContextKey,
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
	})
}

// registerCSRFProtectedRoutes covers every session-authenticated route.
// Unsafe methods need the token from GET /csrf in X-CSRF-Token.
func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App, protect fiber.Handler) {
	group := app.Group("", protect)
	group.Post("/logout", middleware.RequireAuth, controllers.HandleAuthLogout)

	group.Post("/orders", middleware.RequireAuth, controllers.HandleOrderPlace)
	group.Get("/orders", middleware.RequireAuth, controllers.HandleOrderList)
	group.Get("/notifications", middleware.RequireAuth, controllers.HandleNotificationList)
	group.Post("/notifications/read", middleware.RequireAuth, controllers.HandleNotificationMarkRead)

	group.Get("/tickets", middleware.RequireAuth, controllers.HandleTicketList)
	group.Post("/tickets", middleware.RequireAuth, controllers.HandleTicketOpen)
	group.Get("/tickets/:id", middleware.RequireAuth, controllers.HandleTicketShow)
	group.Post("/tickets/:id/reply", middleware.RequireAuth, controllers.HandleTicketReply)
	group.Post("/tickets/:id/close", middleware.RequireAuth, controllers.HandleTicketCloseByClient)

	h.registerAdminRoutes(group)
}
