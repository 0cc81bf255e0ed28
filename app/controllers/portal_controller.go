package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ServicePortal/internal/pkg/catalog"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/ordering"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/usercontext"
)

func (ct *Controller) HandleServices(c *fiber.Ctx) error {
	services, err := ct.svc.Catalog.ListActive(c.UserContext())
	if err != nil {
		return internalError(c, "failed to load services", err)
	}
	return c.JSON(fiber.Map{"services": services})
}

// HandleServiceForm returns the intake form inputs of one service.
func (ct *Controller) HandleServiceForm(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid service id")
	}
	service, fields, err := ct.svc.Catalog.FormFor(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrServiceNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "service not found")
		}
		return internalError(c, "failed to load form", err)
	}
	return c.JSON(fiber.Map{"service": service, "fields": fields})
}

func (ct *Controller) HandleOrderCreate(c *fiber.Ctx) error {
	var req ordering.PlaceOrderInput
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}

	user, err := ct.currentUser(c)
	if err != nil {
		return accountError(c, err)
	}

	placement, err := ct.svc.Orders.PlaceOrder(c.UserContext(), user, req)
	if err != nil {
		var verr *ordering.ValidationError
		switch {
		case errors.As(err, &verr):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "fields": verr.Fields})
		case errors.Is(err, ordering.ErrServiceUnavailable):
			return jsonError(c, fiber.StatusNotFound, "not_found", "service is not available")
		}
		return internalError(c, "failed to place order", err)
	}
	return c.Status(fiber.StatusCreated).JSON(placement)
}

func (ct *Controller) HandleOrders(c *fiber.Ctx) error {
	orders, err := ct.svc.Orders.ListForUser(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return internalError(c, "failed to load orders", err)
	}
	return c.JSON(fiber.Map{"orders": orders})
}

func (ct *Controller) HandleNotifications(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	items, err := ct.svc.Messenger.ListNotifications(userID, c.QueryInt("limit", 0))
	if err != nil {
		return internalError(c, "failed to load notifications", err)
	}
	unread, err := ct.svc.Messenger.UnreadCount(userID)
	if err != nil {
		return internalError(c, "failed to count notifications", err)
	}
	return c.JSON(fiber.Map{"notifications": items, "unread": unread})
}

func (ct *Controller) HandleNotificationsRead(c *fiber.Ctx) error {
	n, err := ct.svc.Messenger.MarkNotificationsRead(usercontext.GetUserID(c))
	if err != nil {
		return internalError(c, "failed to mark notifications", err)
	}
	return c.JSON(fiber.Map{"marked": n})
}
