package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ServicePortal/app/controllers"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/middleware"
)

func (h HttpRouter) registerAdminRoutes(parent fiber.Router) {
	adminGroup := parent.Group("/admin", middleware.RequireAdmin)

	// Billing
	adminGroup.Post("/billing/run", controllers.HandleAdminBillingRunNow)
	adminGroup.Get("/subscriptions", controllers.HandleAdminSubscriptionList)
	adminGroup.Post("/subscriptions/:id/test-charge", controllers.HandleAdminSubscriptionTestCharge)
	adminGroup.Post("/subscriptions/:id/stripe-profile", controllers.HandleAdminSubscriptionStripeProfile)
	adminGroup.Post("/subscriptions/:id/paypal-profile", controllers.HandleAdminSubscriptionPayPalProfile)

	// Catalogue and orders
	adminGroup.Post("/services", controllers.HandleAdminServiceStore)
	adminGroup.Delete("/services/:id", controllers.HandleAdminServiceRemove)
	adminGroup.Post("/orders/:id/payment-status", controllers.HandleAdminOrderStatus)
	adminGroup.Get("/forms", controllers.HandleAdminFormTemplateList)
	adminGroup.Post("/forms", controllers.HandleAdminFormTemplateStore)
	adminGroup.Delete("/forms/:id", controllers.HandleAdminFormTemplateRemove)
	adminGroup.Post("/forms/:id/apply", controllers.HandleAdminFormTemplateApplyToService)

	// Clients and support
	adminGroup.Get("/clients", controllers.HandleAdminClientList)
	adminGroup.Post("/clients/invite", controllers.HandleAdminClientInviteSend)
	adminGroup.Get("/tickets", controllers.HandleAdminTicketList)
	adminGroup.Get("/tickets/:id", controllers.HandleAdminTicketShow)
	adminGroup.Post("/tickets/:id/reply", controllers.HandleAdminTicketRespond)

	// Templates and settings
	adminGroup.Get("/templates", controllers.HandleAdminTemplateList)
	adminGroup.Get("/templates/:slug", controllers.HandleAdminTemplateShow)
	adminGroup.Post("/templates/:slug", controllers.HandleAdminTemplateSave)
	adminGroup.Get("/settings", controllers.HandleAdminSettingsShow)
	adminGroup.Post("/settings", controllers.HandleAdminSettingsSave)
}
