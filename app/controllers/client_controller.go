package controllers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ServicePortal/internal/pkg/accounts"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/catalog"
)

type applyFormRequest struct {
	ServiceID uint `json:"service_id" form:"service_id"`
}

func (ct *Controller) HandleAdminClients(c *fiber.Ctx) error {
	clients, err := ct.svc.Accounts.ListClients(c.UserContext())
	if err != nil {
		return internalError(c, "failed to load clients", err)
	}
	return c.JSON(fiber.Map{"clients": clients})
}

// HandleAdminClientInvite creates a client account and mails its password.
func (ct *Controller) HandleAdminClientInvite(c *fiber.Ctx) error {
	var req accounts.InviteInput
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	inviter, err := ct.currentUser(c)
	if err != nil {
		return accountError(c, err)
	}
	user, sent, err := ct.svc.Accounts.Invite(c.UserContext(), inviter, req)
	if err != nil {
		var verr validator.ValidationErrors
		switch {
		case errors.As(err, &verr):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "fields": fieldErrors(verr)})
		case errors.Is(err, accounts.ErrEmailExists):
			return jsonError(c, fiber.StatusConflict, "conflict", err.Error())
		}
		return internalError(c, "failed to invite client", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user, "email_sent": sent})
}

func (ct *Controller) HandleAdminFormTemplates(c *fiber.Ctx) error {
	templates, err := ct.svc.Catalog.ListFormTemplates(c.UserContext())
	if err != nil {
		return internalError(c, "failed to load form templates", err)
	}
	return c.JSON(fiber.Map{"form_templates": templates})
}

func (ct *Controller) HandleAdminFormTemplateSave(c *fiber.Ctx) error {
	var in catalog.FormTemplateInput
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	tpl, err := ct.svc.Catalog.SaveFormTemplate(c.UserContext(), in)
	if err != nil {
		var verr validator.ValidationErrors
		switch {
		case errors.As(err, &verr):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "fields": fieldErrors(verr)})
		case errors.Is(err, catalog.ErrEmptySchema):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "fields": fiber.Map{"schema": err.Error()}})
		case errors.Is(err, catalog.ErrFormTemplateNotFound):
			return jsonError(c, fiber.StatusNotFound, "not_found", "form template not found")
		}
		return internalError(c, "failed to save form template", err)
	}
	return c.JSON(fiber.Map{"form_template": tpl})
}

func (ct *Controller) HandleAdminFormTemplateDelete(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid form template id")
	}
	if err := ct.svc.Catalog.DeleteFormTemplate(c.UserContext(), id); err != nil {
		if errors.Is(err, catalog.ErrFormTemplateNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "form template not found")
		}
		return internalError(c, "failed to delete form template", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleAdminFormTemplateApply copies a template's fields onto a service.
func (ct *Controller) HandleAdminFormTemplateApply(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid form template id")
	}
	var req applyFormRequest
	if err := c.BodyParser(&req); err != nil || req.ServiceID == 0 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "service_id is required")
	}
	svc, err := ct.svc.Catalog.ApplyFormTemplate(c.UserContext(), id, req.ServiceID)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrFormTemplateNotFound):
			return jsonError(c, fiber.StatusNotFound, "not_found", "form template not found")
		case errors.Is(err, catalog.ErrServiceNotFound):
			return jsonError(c, fiber.StatusNotFound, "not_found", "service not found")
		}
		return internalError(c, "failed to apply form template", err)
	}
	return c.JSON(fiber.Map{"service": svc})
}
