package portal

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/ManuelReschke/ServicePortal/app/models"
	"github.com/ManuelReschke/ServicePortal/app/repository"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/accounts"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/billing"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/cache"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/catalog"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/clock"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/env"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/hcaptcha"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/mail"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/notify"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/ordering"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/settings"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/support"
)

// Options carries the process-level collaborators of the portal services.
type Options struct {
	Transport  mail.Transport
	Fallback   *mail.FallbackLog
	Locker     billing.Locker
	Clock      clock.Clock
	HTTPClient *http.Client
	Billing    billing.Config
	Captcha    *hcaptcha.Verifier
}

// OptionsFromEnv builds SMTP delivery, the fallback log and the Redis lock
// from the environment.
func OptionsFromEnv() Options {
	cfg := billing.DefaultConfig()
	cfg.Workers = env.GetInt("BILLING_WORKERS", cfg.Workers)
	return Options{
		Transport: mail.NewSMTPTransportFromEnv(),
		Fallback:  mail.NewFallbackLog(env.GetEnv("MAIL_FALLBACK_LOG", "logs/mail_fallback.log")),
		Locker:    billing.NewRedisLocker(cache.GetClient()),
		Clock:     clock.Real(),
		Billing:   cfg,
		Captcha:   hcaptcha.NewFromEnv(),
	}
}

// Services bundles everything the web server and the billing job share.
type Services struct {
	DB        *gorm.DB
	Repos     *repository.Repositories
	Settings  *settings.Provider
	Templates *notify.TemplateStore
	Messenger *notify.Messenger
	Catalog   *catalog.Service
	Orders    *ordering.Service
	Billing   *billing.Processor
	Support   *support.Service
	Accounts  *accounts.Service
	Captcha   *hcaptcha.Verifier
	Clock     clock.Clock
}

func NewServices(db *gorm.DB, opts Options) *Services {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	repos := repository.NewFactory(db).GetRepositories()
	settingsProvider := settings.NewProvider(repos.Setting, models.DefaultSettings)
	templates := notify.NewTemplateStore(repos.Template)
	messenger := notify.NewMessenger(templates, opts.Transport, opts.Fallback, repos.Notification, repos.User, opts.Clock)

	resolver := billing.NewProviderResolver(
		settingsProvider,
		billing.NewStripeProvider(settingsProvider, opts.HTTPClient),
		billing.NewPayPalProvider(settingsProvider, opts.HTTPClient),
	)

	return &Services{
		DB:        db,
		Repos:     repos,
		Settings:  settingsProvider,
		Templates: templates,
		Messenger: messenger,
		Catalog:   catalog.NewService(repos.Service, repos.FormTemplate),
		Orders:    ordering.NewService(db, messenger, settingsProvider, opts.Clock),
		Billing: billing.NewProcessor(
			billing.NewStore(db), resolver, messenger, settingsProvider, opts.Locker, opts.Clock, opts.Billing,
		),
		Support:  support.NewService(db, messenger, settingsProvider, opts.Clock),
		Accounts: accounts.NewService(repos.User, messenger, settingsProvider),
		Captcha:  opts.Captcha,
		Clock:    opts.Clock,
	}
}
