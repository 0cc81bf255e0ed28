package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ServicePortal/app/models"
	"github.com/ManuelReschke/ServicePortal/app/repository"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/formschema"
)

var (
	ErrServiceNotFound = errors.New("service not found")
	ErrInvalidPrice    = errors.New("invalid price")
)

// ServiceInput is what the admin catalogue form posts. FormLines uses the
// "label|name|type|required" builder format, one field per line.
type ServiceInput struct {
	ID              uint   `json:"id"`
	Name            string `json:"name" validate:"required,min=1,max=191"`
	Description     string `json:"description" validate:"max=5000"`
	Price           string `json:"price" validate:"required"`
	BillingInterval string `json:"billing_interval" validate:"required,oneof=one_time monthly annual"`
	Active          bool   `json:"active"`
	FormLines       string `json:"form_lines"`
}

// Service manages the service catalogue and its reusable intake forms.
type Service struct {
	repo     repository.ServiceRepository
	forms    repository.FormTemplateRepository
	validate *validator.Validate
}

func NewService(repo repository.ServiceRepository, forms repository.FormTemplateRepository) *Service {
	return &Service{repo: repo, forms: forms, validate: validator.New()}
}

// SaveService creates or updates a catalogue entry. Existing orders keep their
// own price snapshot, so editing the price only affects future orders and
// future subscription invoices.
func (s *Service) SaveService(ctx context.Context, in ServiceInput) (*models.Service, error) {
	_ = ctx
	in.Name = strings.TrimSpace(in.Name)
	in.BillingInterval = strings.ToLower(strings.TrimSpace(in.BillingInterval))
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	price, err := decimal.NewFromString(strings.TrimSpace(in.Price))
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPrice, in.Price, err)
	}
	if price.IsNegative() {
		return nil, models.ErrNegativePrice
	}

	svc := &models.Service{}
	if in.ID != 0 {
		existing, err := s.repo.GetByID(in.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrServiceNotFound
			}
			return nil, err
		}
		svc = existing
	}
	svc.Name = in.Name
	svc.Description = strings.TrimSpace(in.Description)
	svc.Price = price.Round(2)
	svc.BillingInterval = in.BillingInterval
	svc.Active = in.Active
	svc.FormSchema = formschema.BuildSchemaFromLines(in.FormLines)

	if err := svc.Validate(); err != nil {
		return nil, err
	}
	if svc.ID == 0 {
		err = s.repo.Create(svc)
	} else {
		err = s.repo.Update(svc)
	}
	if err != nil {
		return nil, fmt.Errorf("save service: %w", err)
	}
	log.Infof("[Catalog] service %d saved (%s, %s %s)", svc.ID, svc.Name, svc.Price.StringFixed(2), svc.BillingInterval)
	return svc, nil
}

// DeleteService takes a service off sale. The row is soft-deleted so orders,
// subscriptions and invoices that reference it keep resolving.
func (s *Service) DeleteService(ctx context.Context, id uint) error {
	_ = ctx
	if err := s.repo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrServiceNotFound
		}
		return err
	}
	log.Infof("[Catalog] service %d deleted", id)
	return nil
}

func (s *Service) ListActive(ctx context.Context) ([]models.Service, error) {
	_ = ctx
	return s.repo.ListActive()
}

// FormFor returns the input descriptors of an orderable service.
func (s *Service) FormFor(ctx context.Context, id uint) (*models.Service, []formschema.FieldInputRequest, error) {
	_ = ctx
	svc, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrServiceNotFound
		}
		return nil, nil, err
	}
	return svc, formschema.RenderFieldRequests(formschema.ParseSchema(svc.FormSchema)), nil
}
