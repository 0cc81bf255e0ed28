package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ServicePortal/internal/pkg/middleware"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	if session.GetSessionStore() == nil {
		session.NewSessionStore()
	}

	// every route sees the resolved user context
	app.Use(middleware.UserContextMiddleware)

	// one instance so tokens issued by GET /csrf validate on the protected group
	protect := csrfMiddleware()
	h.registerPublicRoutes(app, protect)
	h.registerCSRFProtectedRoutes(app, protect)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
