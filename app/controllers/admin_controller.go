package controllers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/ServicePortal/app/models"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/catalog"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/notify"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/ordering"
)

// secretSettings are never echoed back to the admin UI.
var secretSettings = map[string]bool{
	models.SettingStripeSecretKey:    true,
	models.SettingPayPalClientSecret: true,
}

const maskedSecret = "********"

type paymentStatusRequest struct {
	Status    string `json:"status" form:"status"`
	Reference string `json:"reference" form:"reference"`
}

type templateRequest struct {
	Subject string `json:"subject" form:"subject"`
	Body    string `json:"body" form:"body"`
}

func (ct *Controller) HandleAdminServiceSave(c *fiber.Ctx) error {
	var in catalog.ServiceInput
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	service, err := ct.svc.Catalog.SaveService(c.UserContext(), in)
	if err != nil {
		var verr validator.ValidationErrors
		switch {
		case errors.As(err, &verr):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "fields": fieldErrors(verr)})
		case errors.Is(err, catalog.ErrServiceNotFound):
			return jsonError(c, fiber.StatusNotFound, "not_found", "service not found")
		case errors.Is(err, models.ErrNegativePrice):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "fields": fiber.Map{"price": err.Error()}})
		case errors.Is(err, catalog.ErrInvalidPrice):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "fields": fiber.Map{"price": "price is not a number"}})
		}
		return internalError(c, "failed to save service", err)
	}
	return c.JSON(fiber.Map{"service": service})
}

func (ct *Controller) HandleAdminServiceDelete(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid service id")
	}
	if err := ct.svc.Catalog.DeleteService(c.UserContext(), id); err != nil {
		if errors.Is(err, catalog.ErrServiceNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "service not found")
		}
		return internalError(c, "failed to delete service", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (ct *Controller) HandleAdminOrderPaymentStatus(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid order id")
	}
	var req paymentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}

	order, err := ct.svc.Orders.UpdatePaymentStatus(c.UserContext(), id, req.Status, req.Reference)
	if err != nil {
		switch {
		case errors.Is(err, ordering.ErrOrderNotFound):
			return jsonError(c, fiber.StatusNotFound, "not_found", "order not found")
		case errors.Is(err, ordering.ErrTerminalStatus), errors.Is(err, models.ErrInvalidTransition):
			return jsonError(c, fiber.StatusConflict, "conflict", err.Error())
		}
		return internalError(c, "failed to update payment status", err)
	}
	return c.JSON(fiber.Map{"order": order})
}

func (ct *Controller) HandleAdminTemplates(c *fiber.Ctx) error {
	templates, err := ct.svc.Templates.List()
	if err != nil {
		return internalError(c, "failed to load templates", err)
	}
	return c.JSON(fiber.Map{"templates": templates})
}

func (ct *Controller) HandleAdminTemplate(c *fiber.Ctx) error {
	tpl, err := ct.svc.Templates.Find(c.Params("slug"))
	if err != nil {
		if errors.Is(err, notify.ErrTemplateNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "template not found")
		}
		return internalError(c, "failed to load template", err)
	}
	return c.JSON(fiber.Map{"template": tpl})
}

func (ct *Controller) HandleAdminTemplateUpdate(c *fiber.Ctx) error {
	var req templateRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Body) == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "fields": fiber.Map{"subject": "subject and body are required"}})
	}
	tpl, err := ct.svc.Templates.Update(c.Params("slug"), req.Subject, req.Body)
	if err != nil {
		if errors.Is(err, notify.ErrTemplateNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "template not found")
		}
		return internalError(c, "failed to save template", err)
	}
	return c.JSON(fiber.Map{"template": tpl})
}

func (ct *Controller) HandleAdminSettings(c *fiber.Ctx) error {
	all, err := ct.svc.Settings.Snapshot()
	if err != nil {
		return internalError(c, "failed to load settings", err)
	}
	for key := range secretSettings {
		if all[key] != "" {
			all[key] = maskedSecret
		}
	}
	return c.JSON(fiber.Map{"settings": all})
}

// HandleAdminSettingsUpdate stores known keys only. Posting the mask back
// for a secret keeps the stored value.
func (ct *Controller) HandleAdminSettingsUpdate(c *fiber.Ctx) error {
	var req map[string]string
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}

	unknown := map[string]string{}
	for key := range req {
		if _, ok := models.DefaultSettings[key]; !ok {
			unknown[key] = "unknown setting"
		}
	}
	if len(unknown) > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "fields": unknown})
	}

	for key, value := range req {
		if secretSettings[key] && value == maskedSecret {
			continue
		}
		if err := ct.svc.Settings.Set(key, strings.TrimSpace(value)); err != nil {
			return internalError(c, "failed to save settings", err)
		}
	}
	log.Infof("[Settings] %d setting(s) updated", len(req))
	return ct.HandleAdminSettings(c)
}
