package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ServicePortal/app/models"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/usercontext"
)

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// internalError logs err and answers with a generic 500.
func internalError(c *fiber.Ctx, message string, err error) error {
	log.Errorf("[HTTP] %s %s: %s: %v", c.Method(), c.Path(), message, err)
	return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", message)
}

// paramID parses a positive numeric route parameter.
func paramID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func (ct *Controller) currentUser(c *fiber.Ctx) (*models.User, error) {
	return ct.svc.Repos.User.GetByID(usercontext.GetUserID(c))
}

// accountError answers a failed currentUser lookup.
func accountError(c *fiber.Ctx, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "account not found")
	}
	return internalError(c, "failed to load account", err)
}
