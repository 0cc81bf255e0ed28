package repository

import (
	"time"

	"github.com/ManuelReschke/ServicePortal/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	ListAdmins() ([]models.User, error)
	ListClients() ([]models.User, error)
}

// ServiceRepository defines the interface for the service catalogue
type ServiceRepository interface {
	Create(service *models.Service) error
	Update(service *models.Service) error
	GetByID(id uint) (*models.Service, error)
	// GetByIDUnscoped also returns soft-deleted services so historical
	// orders and invoices keep resolving.
	GetByIDUnscoped(id uint) (*models.Service, error)
	ListActive() ([]models.Service, error)
	Delete(id uint) error
}

// OrderRepository defines the interface for order-related database operations
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	ListByUser(userID uint) ([]models.Order, error)
	UpdatePaymentStatus(id uint, from []string, status, reference string, now time.Time) (bool, error)
}

// SubscriptionRepository defines the interface for subscription rows
type SubscriptionRepository interface {
	Create(sub *models.Subscription) error
	GetByID(id uint) (*models.Subscription, error)
	ListByUser(userID uint) ([]models.Subscription, error)
	List(status string) ([]models.Subscription, error)
	UpdateFields(id uint, fields map[string]interface{}, now time.Time) error
}

// InvoiceRepository defines the interface for invoice rows
type InvoiceRepository interface {
	Create(invoice *models.Invoice) error
	GetByID(id uint) (*models.Invoice, error)
	ListByUser(userID uint) ([]models.Invoice, error)
	ListOpenByOrder(orderID uint) ([]models.Invoice, error)
	MarkPaid(id uint, now time.Time) (bool, error)
}

// NotificationRepository defines the interface for the in-app feed
type NotificationRepository interface {
	Create(n *models.Notification) error
	ListByUser(userID uint, limit int) ([]models.Notification, error)
	CountUnread(userID uint) (int64, error)
	MarkAllRead(userID uint, now time.Time) (int64, error)
}

// TemplateRepository defines the interface for email templates
type TemplateRepository interface {
	GetBySlug(slug string) (*models.EmailTemplate, error)
	List() ([]models.EmailTemplate, error)
	Save(tpl *models.EmailTemplate) error
	EnsureDefaults(defaults []models.EmailTemplate) error
}

// SettingRepository defines the interface for application settings
type SettingRepository interface {
	GetAll() (map[string]string, error)
	GetValue(key string) (string, error)
	SetValue(key, value string) error
	EnsureDefaults(defaults map[string]string) error
}

// TicketRepository defines the interface for support tickets and their threads
type TicketRepository interface {
	Create(ticket *models.Ticket) error
	AddMessage(msg *models.TicketMessage) error
	GetByID(id uint) (*models.Ticket, error)
	ListByUser(userID uint, search string) ([]models.Ticket, error)
	List(status, search string) ([]models.Ticket, error)
	UpdateStatus(id uint, status string, now time.Time) error
}

// FormTemplateRepository defines the interface for reusable intake forms
type FormTemplateRepository interface {
	Save(tpl *models.FormTemplate) error
	GetByID(id uint) (*models.FormTemplate, error)
	List() ([]models.FormTemplate, error)
	Delete(id uint) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Service      ServiceRepository
	Order        OrderRepository
	Subscription SubscriptionRepository
	Invoice      InvoiceRepository
	Notification NotificationRepository
	Template     TemplateRepository
	Setting      SettingRepository
	Ticket       TicketRepository
	FormTemplate FormTemplateRepository
}

// NewRepositories creates a new instance of all repositories. Passing a
// transaction handle scopes every repository to that transaction.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Service:      NewServiceRepository(db),
		Order:        NewOrderRepository(db),
		Subscription: NewSubscriptionRepository(db),
		Invoice:      NewInvoiceRepository(db),
		Notification: NewNotificationRepository(db),
		Template:     NewTemplateRepository(db),
		Setting:      NewSettingRepository(db),
		Ticket:       NewTicketRepository(db),
		FormTemplate: NewFormTemplateRepository(db),
	}
}
