package settings

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2/log"
	gocache "github.com/patrickmn/go-cache"

	"github.com/ManuelReschke/ServicePortal/app/repository"
)

const snapshotKey = "settings"

// Provider serves key/value settings from a process-wide cache. The cache has
// no expiry; every Set flushes it so the next read reloads from the store.
type Provider struct {
	repo     repository.SettingRepository
	defaults map[string]string
	cache    *gocache.Cache
	mu       sync.Mutex
}

func NewProvider(repo repository.SettingRepository, defaults map[string]string) *Provider {
	return &Provider{
		repo:     repo,
		defaults: defaults,
		cache:    gocache.New(gocache.NoExpiration, 0),
	}
}

// Snapshot returns a copy of all settings, loading them on a cache miss.
func (p *Provider) Snapshot() (map[string]string, error) {
	values, err := p.load()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out, nil
}

// Get returns the stored value, the registered default, or def.
func (p *Provider) Get(key, def string) string {
	values, err := p.load()
	if err != nil {
		log.Errorf("[Settings] load failed: %v", err)
		if v, ok := p.defaults[key]; ok {
			return v
		}
		return def
	}
	if v, ok := values[key]; ok && v != "" {
		return v
	}
	return def
}

func (p *Provider) Bool(key string) bool {
	ok, err := strconv.ParseBool(strings.TrimSpace(p.Get(key, "false")))
	return err == nil && ok
}

// Set persists a value and invalidates the cache.
func (p *Provider) Set(key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("setting key is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.cache.Flush()

	if err := p.repo.SetValue(key, value); err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return nil
}

// Invalidate drops the cached snapshot.
func (p *Provider) Invalidate() {
	p.cache.Flush()
}

func (p *Provider) load() (map[string]string, error) {
	if cached, ok := p.cache.Get(snapshotKey); ok {
		return cached.(map[string]string), nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if cached, ok := p.cache.Get(snapshotKey); ok {
		return cached.(map[string]string), nil
	}

	stored, err := p.repo.GetAll()
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(p.defaults)+len(stored))
	for k, v := range p.defaults {
		values[k] = v
	}
	for k, v := range stored {
		values[k] = v
	}
	p.cache.Set(snapshotKey, values, gocache.NoExpiration)
	return values, nil
}
