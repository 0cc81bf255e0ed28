package controllers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/ManuelReschke/ServicePortal/internal/pkg/billing"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/ordering"
)

const adminSubscriptionsPath = "/admin/subscriptions"

type stripeProfileRequest struct {
	CustomerID           string `json:"stripe_customer_id" form:"stripe_customer_id"`
	PaymentMethodID      string `json:"stripe_payment_method_id" form:"stripe_payment_method_id"`
	StripeSubscriptionID string `json:"stripe_subscription_id" form:"stripe_subscription_id"`
}

type payPalProfileRequest struct {
	SubscriptionID string `json:"paypal_subscription_id" form:"paypal_subscription_id"`
}

// HandleAdminBillingRun runs one billing cycle over every due subscription.
func (ct *Controller) HandleAdminBillingRun(c *fiber.Ctx) error {
	summary, err := ct.svc.Billing.RunBillingCycle(c.UserContext(), ct.svc.Clock.Now())
	if err != nil {
		if errors.Is(err, billing.ErrRunInProgress) {
			return jsonError(c, fiber.StatusConflict, "conflict", "a billing run is already in progress")
		}
		return internalError(c, "billing run failed", err)
	}
	return c.JSON(fiber.Map{"summary": summary})
}

// HandleAdminSubscriptions lists subscriptions together with the flash left
// by a test charge.
func (ct *Controller) HandleAdminSubscriptions(c *fiber.Ctx) error {
	subs, err := ct.svc.Repos.Subscription.List(c.Query("status"))
	if err != nil {
		return internalError(c, "failed to load subscriptions", err)
	}
	return c.JSON(fiber.Map{"subscriptions": subs, "flash": flash.Get(c)})
}

// HandleAdminTestCharge force-bills one subscription now, regardless of its
// schedule.
func (ct *Controller) HandleAdminTestCharge(c *fiber.Ctx) error {
	fm := fiber.Map{"type": "error"}

	id, ok := paramID(c, "id")
	if !ok {
		fm["message"] = "Invalid subscription id"
		return flash.WithError(c, fm).Redirect(adminSubscriptionsPath)
	}

	res, err := ct.svc.Billing.TestSubscriptionCycle(c.UserContext(), id)
	switch {
	case errors.Is(err, billing.ErrSubscriptionMissing):
		fm["message"] = fmt.Sprintf("Subscription #%d not found", id)
		return flash.WithError(c, fm).Redirect(adminSubscriptionsPath)
	case errors.Is(err, billing.ErrSubscriptionCancelled):
		fm["message"] = fmt.Sprintf("Subscription #%d is cancelled", id)
		return flash.WithError(c, fm).Redirect(adminSubscriptionsPath)
	case errors.Is(err, billing.ErrCycleInProgress):
		fm["message"] = fmt.Sprintf("Subscription #%d is being billed right now", id)
		return flash.WithError(c, fm).Redirect(adminSubscriptionsPath)
	case err != nil:
		fm["message"] = fmt.Sprintf("Test charge failed: %s", err)
		return flash.WithError(c, fm).Redirect(adminSubscriptionsPath)
	case res.Charged:
		fm = fiber.Map{"type": "success", "message": fmt.Sprintf("Invoice #%d charged", res.InvoiceID)}
		return flash.WithSuccess(c, fm).Redirect(adminSubscriptionsPath)
	case res.Settled:
		fm = fiber.Map{"type": "success", "message": fmt.Sprintf("Invoice #%d settled without a charge", res.InvoiceID)}
		return flash.WithSuccess(c, fm).Redirect(adminSubscriptionsPath)
	case res.Manual:
		fm = fiber.Map{"type": "success", "message": fmt.Sprintf("Invoice #%d created and awaiting manual payment", res.InvoiceID)}
		return flash.WithSuccess(c, fm).Redirect(adminSubscriptionsPath)
	}

	fm["message"] = fmt.Sprintf("Charge declined: %s", res.Error)
	return flash.WithError(c, fm).Redirect(adminSubscriptionsPath)
}

func (ct *Controller) HandleAdminStripeProfile(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid subscription id")
	}
	var req stripeProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	err := ct.svc.Orders.AttachStripeProfile(c.UserContext(), id, req.CustomerID, req.PaymentMethodID, req.StripeSubscriptionID)
	return ct.profileResponse(c, id, err)
}

func (ct *Controller) HandleAdminPayPalProfile(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid subscription id")
	}
	var req payPalProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	err := ct.svc.Orders.AttachPayPalSubscription(c.UserContext(), id, req.SubscriptionID)
	return ct.profileResponse(c, id, err)
}

func (ct *Controller) profileResponse(c *fiber.Ctx, id uint, err error) error {
	if err != nil {
		var verr *ordering.ValidationError
		switch {
		case errors.As(err, &verr):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "fields": verr.Fields})
		case errors.Is(err, ordering.ErrSubscriptionNotFound):
			return jsonError(c, fiber.StatusNotFound, "not_found", "subscription not found")
		}
		return internalError(c, "failed to update payment profile", err)
	}
	sub, err := ct.svc.Repos.Subscription.GetByID(id)
	if err != nil {
		return internalError(c, "failed to load subscription", err)
	}
	return c.JSON(fiber.Map{"subscription": sub})
}
