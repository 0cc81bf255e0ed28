package main

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/ServicePortal/internal/pkg/cache"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/database"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/env"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/metrics"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/portal"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	svc := portal.NewServices(database.GetDB(), portal.OptionsFromEnv())

	app := fiber.New(fiber.Config{
		AppName:   "ServicePortal",
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// prometheus metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "change-me"),
		},
	}), metrics.Handler())

	// ROUTER
	router.InstallRouter(app, svc)

	return app
}
