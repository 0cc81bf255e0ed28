package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ServicePortal/app/controllers"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/portal"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter wires the controllers to svc and registers every route.
func InstallRouter(app *fiber.App, svc *portal.Services) {
	controllers.Initialize(svc)
	setup(app, NewHttpRouter())
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
