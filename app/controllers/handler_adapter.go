package controllers

import "github.com/gofiber/fiber/v2"

// Adapter functions keep the router free of controller wiring.

func HandleAuthLogin(c *fiber.Ctx) error {
	return getController().HandleLogin(c)
}

func HandleAuthLogout(c *fiber.Ctx) error {
	return getController().HandleLogout(c)
}

func HandleAuthSignup(c *fiber.Ctx) error {
	return getController().HandleSignup(c)
}

func HandleServiceList(c *fiber.Ctx) error {
	return getController().HandleServices(c)
}

func HandleServiceFormFields(c *fiber.Ctx) error {
	return getController().HandleServiceForm(c)
}

func HandleOrderPlace(c *fiber.Ctx) error {
	return getController().HandleOrderCreate(c)
}

func HandleOrderList(c *fiber.Ctx) error {
	return getController().HandleOrders(c)
}

func HandleNotificationList(c *fiber.Ctx) error {
	return getController().HandleNotifications(c)
}

func HandleNotificationMarkRead(c *fiber.Ctx) error {
	return getController().HandleNotificationsRead(c)
}

func HandleAdminBillingRunNow(c *fiber.Ctx) error {
	return getController().HandleAdminBillingRun(c)
}

func HandleAdminSubscriptionList(c *fiber.Ctx) error {
	return getController().HandleAdminSubscriptions(c)
}

func HandleAdminSubscriptionTestCharge(c *fiber.Ctx) error {
	return getController().HandleAdminTestCharge(c)
}

func HandleAdminSubscriptionStripeProfile(c *fiber.Ctx) error {
	return getController().HandleAdminStripeProfile(c)
}

func HandleAdminSubscriptionPayPalProfile(c *fiber.Ctx) error {
	return getController().HandleAdminPayPalProfile(c)
}

func HandleAdminServiceStore(c *fiber.Ctx) error {
	return getController().HandleAdminServiceSave(c)
}

func HandleAdminServiceRemove(c *fiber.Ctx) error {
	return getController().HandleAdminServiceDelete(c)
}

func HandleAdminOrderStatus(c *fiber.Ctx) error {
	return getController().HandleAdminOrderPaymentStatus(c)
}

func HandleAdminTemplateList(c *fiber.Ctx) error {
	return getController().HandleAdminTemplates(c)
}

func HandleAdminTemplateShow(c *fiber.Ctx) error {
	return getController().HandleAdminTemplate(c)
}

func HandleAdminTemplateSave(c *fiber.Ctx) error {
	return getController().HandleAdminTemplateUpdate(c)
}

func HandleAdminSettingsShow(c *fiber.Ctx) error {
	return getController().HandleAdminSettings(c)
}

func HandleAdminSettingsSave(c *fiber.Ctx) error {
	return getController().HandleAdminSettingsUpdate(c)
}

func HandleTicketList(c *fiber.Ctx) error {
	return getController().HandleTickets(c)
}

func HandleTicketOpen(c *fiber.Ctx) error {
	return getController().HandleTicketCreate(c)
}

func HandleTicketShow(c *fiber.Ctx) error {
	return getController().HandleTicket(c)
}

func HandleTicketReply(c *fiber.Ctx) error {
	return getController().HandleTicketClientReply(c)
}

func HandleTicketCloseByClient(c *fiber.Ctx) error {
	return getController().HandleTicketClose(c)
}

func HandleAdminTicketList(c *fiber.Ctx) error {
	return getController().HandleAdminTickets(c)
}

func HandleAdminTicketShow(c *fiber.Ctx) error {
	return getController().HandleAdminTicket(c)
}

func HandleAdminTicketRespond(c *fiber.Ctx) error {
	return getController().HandleAdminTicketReply(c)
}

func HandleAdminClientList(c *fiber.Ctx) error {
	return getController().HandleAdminClients(c)
}

func HandleAdminClientInviteSend(c *fiber.Ctx) error {
	return getController().HandleAdminClientInvite(c)
}

func HandleAdminFormTemplateList(c *fiber.Ctx) error {
	return getController().HandleAdminFormTemplates(c)
}

func HandleAdminFormTemplateStore(c *fiber.Ctx) error {
	return getController().HandleAdminFormTemplateSave(c)
}

func HandleAdminFormTemplateRemove(c *fiber.Ctx) error {
	return getController().HandleAdminFormTemplateDelete(c)
}

func HandleAdminFormTemplateApplyToService(c *fiber.Ctx) error {
	return getController().HandleAdminFormTemplateApply(c)
}
