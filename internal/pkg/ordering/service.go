package ordering

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ServicePortal/app/models"
	"github.com/ManuelReschke/ServicePortal/app/repository"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/billing"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/clock"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/formschema"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/notify"
)

var (
	ErrServiceUnavailable   = errors.New("service is not available for ordering")
	ErrOrderNotFound        = errors.New("order not found")
	ErrTerminalStatus       = errors.New("order is already paid")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// ValidationError lists field errors keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("order validation failed: %d field(s)", len(e.Fields))
}

// Messenger is the part of notify.Messenger ordering uses.
type Messenger interface {
	SendTemplatedMessage(slug string, subs notify.Substitutions, recipient, fallbackSubject, fallbackBody string) bool
	Notify(userID uint, message, link string)
	NotifyAdmins(message, link, slug string, subs notify.Substitutions, fallbackSubject, fallbackBody string)
}

type Settings interface {
	Get(key, def string) string
}

type PlaceOrderInput struct {
	ServiceID     uint              `json:"service_id"`
	PaymentMethod string            `json:"payment_method"`
	Responses     map[string]string `json:"responses"`
}

// Placement is everything PlaceOrder created.
type Placement struct {
	Order        *models.Order        `json:"order"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
	Invoice      *models.Invoice      `json:"invoice"`
}

// Service places orders and applies admin payment decisions.
type Service struct {
	db        *gorm.DB
	messenger Messenger
	settings  Settings
	clock     clock.Clock
}

func NewService(db *gorm.DB, messenger Messenger, settings Settings, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	return &Service{db: db, messenger: messenger, settings: settings, clock: clk}
}

// PlaceOrder validates the intake responses against the service's form and
// stores the order with its price snapshot, a subscription for recurring
// services and the first invoice, all in one transaction.
func (s *Service) PlaceOrder(ctx context.Context, user *models.User, in PlaceOrderInput) (*Placement, error) {
	repos := repository.NewRepositories(s.db.WithContext(ctx))
	service, err := repos.Service.GetByID(in.ServiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceUnavailable
		}
		return nil, err
	}
	if !service.Active {
		return nil, ErrServiceUnavailable
	}

	method := strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	fieldErrs := map[string]string{}
	switch method {
	case models.PaymentMethodStripe, models.PaymentMethodPayPal, models.PaymentMethodManual:
	default:
		fieldErrs["payment_method"] = "Payment method is invalid"
	}
	result := formschema.ValidateResponse(formschema.ParseSchema(service.FormSchema), in.Responses)
	for k, v := range result.Errors {
		fieldErrs[k] = v
	}
	if len(fieldErrs) > 0 {
		return nil, &ValidationError{Fields: fieldErrs}
	}

	responses := make(map[string]string, len(in.Responses))
	for k, v := range in.Responses {
		responses[k] = strings.TrimSpace(v)
	}

	now := s.clock.Now()
	placement := &Placement{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepos := repository.NewRepositories(tx)

		order := &models.Order{
			UserID:          user.ID,
			ServiceID:       service.ID,
			PaymentMethod:   method,
			TotalAmount:     service.Price,
			BillingInterval: service.BillingInterval,
			FormData:        datatypes.NewJSONType(responses),
			PaymentStatus:   models.PaymentStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := txRepos.Order.Create(order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		placement.Order = order

		var src models.InvoiceSource = models.OneTime{OrderID: order.ID}
		if service.IsRecurring() {
			next, err := billing.NextBillingDate(now, service.BillingInterval, now.Day())
			if err != nil {
				return err
			}
			sub := &models.Subscription{
				OrderID:         order.ID,
				UserID:          user.ID,
				ServiceID:       service.ID,
				BillingInterval: service.BillingInterval,
				NextBillingAt:   next,
				AnchorDay:       now.Day(),
				Status:          models.SubscriptionStatusActive,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := txRepos.Subscription.Create(sub); err != nil {
				return fmt.Errorf("create subscription: %w", err)
			}
			placement.Subscription = sub
			src = models.Recurring{SubscriptionID: sub.ID, OrderID: order.ID}
		}

		invoice := models.NewInvoice(src, user.ID, service.ID, service.Price, now)
		if err := txRepos.Invoice.Create(invoice); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		placement.Invoice = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("[Orders] order %d placed by user %d for service %d (%s)", placement.Order.ID, user.ID, service.ID, method)
	s.notifyPlaced(user, service, placement.Order)
	return placement, nil
}

func (s *Service) notifyPlaced(user *models.User, service *models.Service, order *models.Order) {
	currency := s.settings.Get(models.SettingCurrencyCode, "GBP")
	subs := notify.Substitutions{
		notify.ClientName:    user.Name,
		notify.ServiceName:   service.Name,
		notify.TotalAmount:   order.TotalAmount.StringFixed(2),
		notify.Currency:      currency,
		notify.Order:         strconv.FormatUint(uint64(order.ID), 10),
		notify.PaymentStatus: order.PaymentStatus,
		notify.Company:       s.settings.Get(models.SettingCompanyName, ""),
	}

	s.messenger.SendTemplatedMessage(models.TemplateOrderConfirmation, subs, user.Email,
		"We received your order for "+service.Name,
		fmt.Sprintf("Hi %s,\n\nThanks for ordering %s. We will review it and get back to you shortly.", user.Name, service.Name))
	s.messenger.Notify(user.ID, fmt.Sprintf("Order #%d for %s received", order.ID, service.Name), "dashboard#orders")

	s.messenger.NotifyAdmins(
		fmt.Sprintf("New order #%d from %s for %s", order.ID, user.Name, service.Name),
		fmt.Sprintf("admin/orders/%d", order.ID),
		models.TemplateOrderNewAdmin, subs,
		"New order from "+user.Name,
		fmt.Sprintf("A new order for %s has been placed by %s. Total: %s %s.", service.Name, user.Name, currency, order.TotalAmount.StringFixed(2)),
	)
}

// UpdatePaymentStatus applies an admin decision to an order. Marking an order
// paid settles its open invoices. Paid orders cannot be changed.
func (s *Service) UpdatePaymentStatus(ctx context.Context, orderID uint, status, reference string) (*models.Order, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	reference = strings.TrimSpace(reference)
	now := s.clock.Now()

	var (
		order   *models.Order
		settled []models.Invoice
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := repository.NewRepositories(tx)
		current, err := repos.Order.GetByID(orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if current.PaymentStatus == models.PaymentStatusPaid {
			return ErrTerminalStatus
		}
		if !models.CanTransitionOrder(current.PaymentStatus, status) {
			return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, current.PaymentStatus, status)
		}

		ok, err := repos.Order.UpdatePaymentStatus(orderID, []string{current.PaymentStatus}, status, reference, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: order %d changed concurrently", models.ErrInvalidTransition, orderID)
		}

		if status == models.PaymentStatusPaid {
			open, err := repos.Invoice.ListOpenByOrder(orderID)
			if err != nil {
				return err
			}
			for _, inv := range open {
				paid, err := repos.Invoice.MarkPaid(inv.ID, now)
				if err != nil {
					return fmt.Errorf("settle invoice %d: %w", inv.ID, err)
				}
				if paid {
					settled = append(settled, inv)
				}
			}
		}

		order, err = repos.Order.GetByID(orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Infof("[Orders] order %d payment status set to %s", orderID, status)
	if status == models.PaymentStatusPaid {
		s.notifyPaid(ctx, order, settled)
	}
	return order, nil
}

func (s *Service) notifyPaid(ctx context.Context, order *models.Order, settled []models.Invoice) {
	repos := repository.NewRepositories(s.db.WithContext(ctx))
	user, err := repos.User.GetByID(order.UserID)
	if err != nil {
		log.Errorf("[Orders] order %d: load user %d: %v", order.ID, order.UserID, err)
		return
	}
	serviceName := "your service"
	if svc, err := repos.Service.GetByIDUnscoped(order.ServiceID); err == nil {
		serviceName = svc.Name
	}
	currency := s.settings.Get(models.SettingCurrencyCode, "GBP")

	for _, inv := range settled {
		subs := notify.Substitutions{
			notify.Name:     user.Name,
			notify.Invoice:  strconv.FormatUint(uint64(inv.ID), 10),
			notify.Service:  serviceName,
			notify.Amount:   inv.Total.StringFixed(2),
			notify.Currency: currency,
			notify.Company:  s.settings.Get(models.SettingCompanyName, ""),
		}
		s.messenger.SendTemplatedMessage(models.TemplateInvoicePaymentSuccess, subs, user.Email,
			fmt.Sprintf("Payment received for invoice #%d", inv.ID),
			fmt.Sprintf("Hi %s,\n\nWe've recorded your payment of %s %s for invoice #%d covering %s.", user.Name, currency, inv.Total.StringFixed(2), inv.ID, serviceName))
		s.messenger.Notify(user.ID, fmt.Sprintf("Invoice #%d for %s has been paid", inv.ID, serviceName), "dashboard#invoices")
	}
	if len(settled) == 0 {
		s.messenger.Notify(user.ID, fmt.Sprintf("Order #%d for %s has been marked paid", order.ID, serviceName), "dashboard#orders")
	}
}

// AttachStripeProfile stores the Stripe identifiers the billing run charges.
func (s *Service) AttachStripeProfile(ctx context.Context, subscriptionID uint, customerID, paymentMethodID, stripeSubscriptionID string) error {
	customerID = strings.TrimSpace(customerID)
	paymentMethodID = strings.TrimSpace(paymentMethodID)
	errs := map[string]string{}
	if customerID == "" {
		errs["stripe_customer_id"] = "Stripe customer id is required"
	}
	if paymentMethodID == "" {
		errs["stripe_payment_method_id"] = "Stripe payment method id is required"
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	fields := map[string]interface{}{
		"stripe_customer_id":       customerID,
		"stripe_payment_method_id": paymentMethodID,
	}
	if id := strings.TrimSpace(stripeSubscriptionID); id != "" {
		fields["stripe_subscription_id"] = id
	}
	return s.updateSubscription(ctx, subscriptionID, fields)
}

// AttachPayPalSubscription stores the PayPal subscription id the billing run captures against.
func (s *Service) AttachPayPalSubscription(ctx context.Context, subscriptionID uint, paypalSubscriptionID string) error {
	id := strings.TrimSpace(paypalSubscriptionID)
	if id == "" {
		return &ValidationError{Fields: map[string]string{"paypal_subscription_id": "PayPal subscription id is required"}}
	}
	return s.updateSubscription(ctx, subscriptionID, map[string]interface{}{"paypal_subscription_id": id})
}

func (s *Service) updateSubscription(ctx context.Context, id uint, fields map[string]interface{}) error {
	repos := repository.NewRepositories(s.db.WithContext(ctx))
	if err := repos.Subscription.UpdateFields(id, fields, s.clock.Now()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubscriptionNotFound
		}
		return err
	}
	log.Infof("[Orders] subscription %d payment profile updated", id)
	return nil
}

// ListForUser returns the user's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uint) ([]models.Order, error) {
	return repository.NewRepositories(s.db.WithContext(ctx)).Order.ListByUser(userID)
}
