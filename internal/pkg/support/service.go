package support

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ServicePortal/app/models"
	"github.com/ManuelReschke/ServicePortal/app/repository"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/clock"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/notify"
)

var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrInvalidStatus  = errors.New("invalid ticket status")
)

// Messenger is the part of notify.Messenger the help desk uses.
type Messenger interface {
	SendTemplatedMessage(slug string, subs notify.Substitutions, recipient, fallbackSubject, fallbackBody string) bool
	Notify(userID uint, message, link string)
	NotifyAdmins(message, link, slug string, subs notify.Substitutions, fallbackSubject, fallbackBody string)
}

type Settings interface {
	Get(key, def string) string
}

type OpenInput struct {
	Subject string `json:"subject" form:"subject" validate:"required,max=191"`
	Message string `json:"message" form:"message" validate:"required,max=10000"`
}

type replyInput struct {
	Message string `validate:"required,max=10000"`
}

// Service runs support tickets between clients and staff.
type Service struct {
	db        *gorm.DB
	messenger Messenger
	settings  Settings
	clock     clock.Clock
	validate  *validator.Validate
}

func NewService(db *gorm.DB, messenger Messenger, settings Settings, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	return &Service{db: db, messenger: messenger, settings: settings, clock: clk, validate: validator.New()}
}

// Open creates a ticket with the client's first message and alerts every admin.
func (s *Service) Open(ctx context.Context, user *models.User, in OpenInput) (*models.Ticket, error) {
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ticket := &models.Ticket{
		UserID:    user.ID,
		Subject:   in.Subject,
		Status:    models.TicketStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []models.TicketMessage{{UserID: user.ID, Body: in.Message, CreatedAt: now}},
	}
	if err := repository.NewRepositories(s.db.WithContext(ctx)).Ticket.Create(ticket); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	log.Infof("[Support] ticket %d opened by user %d", ticket.ID, user.ID)

	s.messenger.NotifyAdmins(
		fmt.Sprintf("New ticket #%d from %s", ticket.ID, user.Name),
		fmt.Sprintf("admin/tickets/%d", ticket.ID),
		models.TemplateTicketNewAdmin,
		s.substitutions(user, ticket),
		fmt.Sprintf("Support request from %s", user.Name),
		fmt.Sprintf("A new support ticket %q was opened by %s.", ticket.Subject, user.Name),
	)
	s.messenger.Notify(user.ID, fmt.Sprintf("Ticket #%d created", ticket.ID), fmt.Sprintf("dashboard/tickets/%d", ticket.ID))
	return ticket, nil
}

func (s *Service) ListForUser(ctx context.Context, userID uint, search string) ([]models.Ticket, error) {
	return repository.NewRepositories(s.db.WithContext(ctx)).Ticket.ListByUser(userID, strings.TrimSpace(search))
}

func (s *Service) List(ctx context.Context, status, search string) ([]models.Ticket, error) {
	return repository.NewRepositories(s.db.WithContext(ctx)).Ticket.List(strings.TrimSpace(status), strings.TrimSpace(search))
}

// Get loads a ticket with its thread. A non-zero ownerID hides tickets of
// other users.
func (s *Service) Get(ctx context.Context, id, ownerID uint) (*models.Ticket, error) {
	ticket, err := repository.NewRepositories(s.db.WithContext(ctx)).Ticket.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	if ownerID != 0 && ticket.UserID != ownerID {
		return nil, ErrTicketNotFound
	}
	return ticket, nil
}

// ReplyAsStaff appends a staff message, moves the ticket to status and emails
// the client. An empty status means the ticket now waits on the client.
func (s *Service) ReplyAsStaff(ctx context.Context, id uint, staff *models.User, message, status string) (*models.Ticket, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		status = models.TicketStatusAwaitingClient
	}
	if !models.IsTicketStatus(status) {
		return nil, fmt.Errorf("%w %q", ErrInvalidStatus, status)
	}
	ticket, err := s.reply(ctx, id, 0, staff.ID, true, message, status)
	if err != nil {
		return nil, err
	}

	client, err := repository.NewRepositories(s.db.WithContext(ctx)).User.GetByID(ticket.UserID)
	if err != nil {
		log.Errorf("[Support] ticket %d client lookup failed: %v", ticket.ID, err)
		return ticket, nil
	}
	subs := s.substitutions(client, ticket)
	subs[notify.Message] = strings.TrimSpace(message)
	s.messenger.SendTemplatedMessage(models.TemplateTicketReplyClient, subs, client.Email,
		fmt.Sprintf("New reply to %q", ticket.Subject),
		fmt.Sprintf("Hi %s,\n\nWe have responded to your ticket %q:\n\n%s", client.Name, ticket.Subject, subs[notify.Message]),
	)
	s.messenger.Notify(client.ID, fmt.Sprintf("New reply on ticket #%d", ticket.ID), fmt.Sprintf("dashboard/tickets/%d", ticket.ID))
	return ticket, nil
}

// ReplyAsClient appends the owner's message and reopens the ticket.
func (s *Service) ReplyAsClient(ctx context.Context, id uint, user *models.User, message string) (*models.Ticket, error) {
	ticket, err := s.reply(ctx, id, user.ID, user.ID, false, message, models.TicketStatusOpen)
	if err != nil {
		return nil, err
	}
	s.messenger.NotifyAdmins(
		fmt.Sprintf("Client replied to ticket #%d", ticket.ID),
		fmt.Sprintf("admin/tickets/%d", ticket.ID),
		models.TemplateTicketNewAdmin,
		s.substitutions(user, ticket),
		fmt.Sprintf("Support request from %s", user.Name),
		fmt.Sprintf("%s replied to the support ticket %q.", user.Name, ticket.Subject),
	)
	return ticket, nil
}

// Close marks the owner's ticket closed. Closing twice is a no-op.
func (s *Service) Close(ctx context.Context, id, ownerID uint) (*models.Ticket, error) {
	ticket, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if ticket.IsClosed() {
		return ticket, nil
	}
	now := s.clock.Now()
	if err := repository.NewRepositories(s.db.WithContext(ctx)).Ticket.UpdateStatus(id, models.TicketStatusClosed, now); err != nil {
		return nil, err
	}
	ticket.Status = models.TicketStatusClosed
	ticket.UpdatedAt = now
	log.Infof("[Support] ticket %d closed by user %d", id, ownerID)
	return ticket, nil
}

func (s *Service) reply(ctx context.Context, id, ownerID, authorID uint, staff bool, message, status string) (*models.Ticket, error) {
	in := replyInput{Message: strings.TrimSpace(message)}
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var ticket *models.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := repository.NewRepositories(tx)
		found, err := repos.Ticket.GetByID(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTicketNotFound
			}
			return err
		}
		if ownerID != 0 && found.UserID != ownerID {
			return ErrTicketNotFound
		}
		msg := models.TicketMessage{TicketID: id, UserID: authorID, IsStaff: staff, Body: in.Message, CreatedAt: now}
		if err := repos.Ticket.AddMessage(&msg); err != nil {
			return err
		}
		if err := repos.Ticket.UpdateStatus(id, status, now); err != nil {
			return err
		}
		found.Status = status
		found.UpdatedAt = now
		found.Messages = append(found.Messages, msg)
		ticket = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Infof("[Support] ticket %d reply by user %d (staff=%t), status %s", id, authorID, staff, status)
	return ticket, nil
}

func (s *Service) substitutions(user *models.User, ticket *models.Ticket) notify.Substitutions {
	return notify.Substitutions{
		notify.Name:       user.Name,
		notify.ClientName: user.Name,
		notify.Subject:    ticket.Subject,
		notify.Company:    s.settings.Get(models.SettingCompanyName, ""),
		notify.PortalURL:  s.settings.Get(models.SettingPortalURL, ""),
	}
}
