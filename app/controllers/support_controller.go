package controllers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ServicePortal/internal/pkg/support"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/usercontext"
)

type ticketReplyRequest struct {
	Message string `json:"message" form:"message"`
	Status  string `json:"status" form:"status"`
}

func (ct *Controller) HandleTickets(c *fiber.Ctx) error {
	tickets, err := ct.svc.Support.ListForUser(c.UserContext(), usercontext.GetUserID(c), c.Query("q"))
	if err != nil {
		return internalError(c, "failed to load tickets", err)
	}
	return c.JSON(fiber.Map{"tickets": tickets})
}

func (ct *Controller) HandleTicketCreate(c *fiber.Ctx) error {
	var req support.OpenInput
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	user, err := ct.currentUser(c)
	if err != nil {
		return accountError(c, err)
	}
	ticket, err := ct.svc.Support.Open(c.UserContext(), user, req)
	if err != nil {
		return ticketError(c, err, "failed to open ticket")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ticket": ticket})
}

func (ct *Controller) HandleTicket(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid ticket id")
	}
	ticket, err := ct.svc.Support.Get(c.UserContext(), id, usercontext.GetUserID(c))
	if err != nil {
		return ticketError(c, err, "failed to load ticket")
	}
	return c.JSON(fiber.Map{"ticket": ticket})
}

func (ct *Controller) HandleTicketClientReply(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid ticket id")
	}
	var req ticketReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	user, err := ct.currentUser(c)
	if err != nil {
		return accountError(c, err)
	}
	ticket, err := ct.svc.Support.ReplyAsClient(c.UserContext(), id, user, req.Message)
	if err != nil {
		return ticketError(c, err, "failed to post reply")
	}
	return c.JSON(fiber.Map{"ticket": ticket})
}

func (ct *Controller) HandleTicketClose(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid ticket id")
	}
	ticket, err := ct.svc.Support.Close(c.UserContext(), id, usercontext.GetUserID(c))
	if err != nil {
		return ticketError(c, err, "failed to close ticket")
	}
	return c.JSON(fiber.Map{"ticket": ticket})
}

func (ct *Controller) HandleAdminTickets(c *fiber.Ctx) error {
	tickets, err := ct.svc.Support.List(c.UserContext(), c.Query("status"), c.Query("q"))
	if err != nil {
		return internalError(c, "failed to load tickets", err)
	}
	return c.JSON(fiber.Map{"tickets": tickets})
}

func (ct *Controller) HandleAdminTicket(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid ticket id")
	}
	ticket, err := ct.svc.Support.Get(c.UserContext(), id, 0)
	if err != nil {
		return ticketError(c, err, "failed to load ticket")
	}
	return c.JSON(fiber.Map{"ticket": ticket})
}

func (ct *Controller) HandleAdminTicketReply(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid ticket id")
	}
	var req ticketReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	staff, err := ct.currentUser(c)
	if err != nil {
		return accountError(c, err)
	}
	ticket, err := ct.svc.Support.ReplyAsStaff(c.UserContext(), id, staff, req.Message, req.Status)
	if err != nil {
		return ticketError(c, err, "failed to post reply")
	}
	return c.JSON(fiber.Map{"ticket": ticket})
}

func ticketError(c *fiber.Ctx, err error, message string) error {
	var verr validator.ValidationErrors
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "fields": fieldErrors(verr)})
	case errors.Is(err, support.ErrInvalidStatus):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "fields": fiber.Map{"status": "unknown ticket status"}})
	case errors.Is(err, support.ErrTicketNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "ticket not found")
	}
	return internalError(c, message, err)
}
