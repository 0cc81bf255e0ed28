package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ServicePortal/app/models"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/formschema"
)

var (
	ErrFormTemplateNotFound = errors.New("form template not found")
	ErrEmptySchema          = errors.New("form template needs at least one field")
)

// FormTemplateInput saves a reusable form. Schema takes the JSON field list;
// FormLines is used when Schema is empty.
type FormTemplateInput struct {
	ID          uint              `json:"id"`
	Name        string            `json:"name" validate:"required,min=1,max=191"`
	Description string            `json:"description" validate:"max=5000"`
	Schema      formschema.Schema `json:"schema"`
	FormLines   string            `json:"form_lines"`
}

func (s *Service) SaveFormTemplate(ctx context.Context, in FormTemplateInput) (*models.FormTemplate, error) {
	_ = ctx
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	schema := in.Schema
	if len(schema) == 0 {
		schema = formschema.ParseSchema(in.FormLines)
	}
	if len(schema) == 0 {
		return nil, ErrEmptySchema
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode form schema: %w", err)
	}

	tpl := &models.FormTemplate{}
	if in.ID != 0 {
		if tpl, err = s.formTemplate(in.ID); err != nil {
			return nil, err
		}
	}
	tpl.Name = in.Name
	tpl.Description = in.Description
	tpl.Schema = string(data)
	if err := s.forms.Save(tpl); err != nil {
		return nil, fmt.Errorf("save form template: %w", err)
	}
	log.Infof("[Catalog] form template %d saved (%s, %d field(s))", tpl.ID, tpl.Name, len(schema))
	return tpl, nil
}

// ListFormTemplates returns the newest templates first.
func (s *Service) ListFormTemplates(ctx context.Context) ([]models.FormTemplate, error) {
	_ = ctx
	return s.forms.List()
}

func (s *Service) DeleteFormTemplate(ctx context.Context, id uint) error {
	_ = ctx
	if err := s.forms.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFormTemplateNotFound
		}
		return err
	}
	log.Infof("[Catalog] form template %d deleted", id)
	return nil
}

// ApplyFormTemplate copies a template's fields onto a service. Later edits to
// the template do not reach the service.
func (s *Service) ApplyFormTemplate(ctx context.Context, templateID, serviceID uint) (*models.Service, error) {
	_ = ctx
	tpl, err := s.formTemplate(templateID)
	if err != nil {
		return nil, err
	}
	svc, err := s.repo.GetByID(serviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	svc.FormSchema = tpl.Schema
	if err := s.repo.Update(svc); err != nil {
		return nil, fmt.Errorf("apply form template: %w", err)
	}
	log.Infof("[Catalog] form template %d applied to service %d", tpl.ID, svc.ID)
	return svc, nil
}

func (s *Service) formTemplate(id uint) (*models.FormTemplate, error) {
	tpl, err := s.forms.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFormTemplateNotFound
		}
		return nil, err
	}
	return tpl, nil
}
