package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/ServicePortal/app/controllers"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App, protect fiber.Handler) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/services", controllers.HandleServiceList)
	app.Get("/services/:id/form", controllers.HandleServiceFormFields)

	// the csrf token cookie is issued on this safe request
	app.Get("/csrf", protect, func(c *fiber.Ctx) error {
		token, _ := c.Locals(csrfContextKey).(string)
		return c.JSON(fiber.Map{"csrf_token": token})
	})

	// login and signup are throttled per client IP
	authLimiter := limiter.New(limiter.Config{
		Max:        10,
		Expiration: time.Minute,
	})
	app.Post("/login", authLimiter, controllers.HandleAuthLogin)
	app.Post("/signup", authLimiter, controllers.HandleAuthSignup)
}
