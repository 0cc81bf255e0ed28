package notify

import (
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ServicePortal/app/models"
	"github.com/ManuelReschke/ServicePortal/app/repository"
)

const templateCacheSize = 64

var ErrTemplateNotFound = errors.New("email template not found")

// TemplateStore looks templates up by slug through a small LRU. Updates go
// through the store so the cached copy is dropped.
type TemplateStore struct {
	repo  repository.TemplateRepository
	cache *lru.Cache[string, models.EmailTemplate]
}

func NewTemplateStore(repo repository.TemplateRepository) *TemplateStore {
	cache, err := lru.New[string, models.EmailTemplate](templateCacheSize)
	if err != nil {
		panic(err)
	}
	return &TemplateStore{repo: repo, cache: cache}
}

// Find returns the template for slug, or ErrTemplateNotFound.
func (s *TemplateStore) Find(slug string) (models.EmailTemplate, error) {
	if tpl, ok := s.cache.Get(slug); ok {
		return tpl, nil
	}
	tpl, err := s.repo.GetBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.EmailTemplate{}, ErrTemplateNotFound
		}
		return models.EmailTemplate{}, err
	}
	s.cache.Add(slug, *tpl)
	return *tpl, nil
}

func (s *TemplateStore) List() ([]models.EmailTemplate, error) {
	return s.repo.List()
}

// Update rewrites subject and body of an existing template.
func (s *TemplateStore) Update(slug, subject, body string) (*models.EmailTemplate, error) {
	tpl, err := s.repo.GetBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	tpl.Subject = subject
	tpl.Body = body
	defer s.cache.Remove(slug)
	if err := s.repo.Save(tpl); err != nil {
		return nil, fmt.Errorf("save template %s: %w", slug, err)
	}
	return tpl, nil
}
