package accounts

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ServicePortal/app/models"
	"github.com/ManuelReschke/ServicePortal/app/repository"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/notify"
)

var ErrEmailExists = errors.New("an account with this email already exists")

// Messenger is the part of notify.Messenger invitations use.
type Messenger interface {
	SendTemplatedMessage(slug string, subs notify.Substitutions, recipient, fallbackSubject, fallbackBody string) bool
}

type Settings interface {
	Get(key, def string) string
}

type InviteInput struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email"`
	Company string `json:"company" form:"company"`
}

// Service manages client accounts created by staff.
type Service struct {
	users     repository.UserRepository
	messenger Messenger
	settings  Settings
	password  func() (string, error)
}

func NewService(users repository.UserRepository, messenger Messenger, settings Settings) *Service {
	return &Service{users: users, messenger: messenger, settings: settings, password: randomPassword}
}

// Invite creates a client account with a generated password and emails the
// sign-in details. The returned bool reports whether the email went out.
func (s *Service) Invite(ctx context.Context, inviter *models.User, in InviteInput) (*models.User, bool, error) {
	_ = ctx
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := s.users.GetByEmail(email); err == nil {
		return nil, false, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	password, err := s.password()
	if err != nil {
		return nil, false, fmt.Errorf("generate password: %w", err)
	}
	user, err := models.CreateUser(strings.TrimSpace(in.Name), email, password)
	if err != nil {
		return nil, false, err
	}
	user.Company = strings.TrimSpace(in.Company)
	user.InvitedBy = &inviter.ID
	if err := s.users.Create(user); err != nil {
		return nil, false, fmt.Errorf("create invited user: %w", err)
	}
	log.Infof("[Accounts] client %d invited by user %d", user.ID, inviter.ID)

	portalURL := strings.TrimRight(s.settings.Get(models.SettingPortalURL, ""), "/") + "/login"
	subs := notify.Substitutions{
		notify.Name:       user.Name,
		notify.ClientName: user.Name,
		notify.Password:   password,
		notify.PortalURL:  portalURL,
		notify.Company:    s.settings.Get(models.SettingCompanyName, ""),
	}
	sent := s.messenger.SendTemplatedMessage(models.TemplateInviteClient, subs, user.Email,
		"You have been invited to the client portal",
		fmt.Sprintf("Hi %s,\n\nWe created an account for you. Use the following password to sign in: %s\n\nPortal URL: %s", user.Name, password, portalURL),
	)
	return user, sent, nil
}

func (s *Service) ListClients(ctx context.Context) ([]models.User, error) {
	_ = ctx
	return s.users.ListClients()
}

func randomPassword() (string, error) {
	b := make([]byte, 10)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
