package notify

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/ServicePortal/app/models"
	"github.com/ManuelReschke/ServicePortal/app/repository"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/clock"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/mail"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/metrics"
)

const DefaultFeedLimit = 20

// Messenger sends templated email and writes the in-app feed. Delivery
// problems are logged and written to the fallback log, never returned.
type Messenger struct {
	templates     *TemplateStore
	transport     mail.Transport
	fallback      *mail.FallbackLog
	notifications repository.NotificationRepository
	users         repository.UserRepository
	clock         clock.Clock
}

func NewMessenger(
	templates *TemplateStore,
	transport mail.Transport,
	fallback *mail.FallbackLog,
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	clk clock.Clock,
) *Messenger {
	if clk == nil {
		clk = clock.Real()
	}
	return &Messenger{
		templates:     templates,
		transport:     transport,
		fallback:      fallback,
		notifications: notifications,
		users:         users,
		clock:         clk,
	}
}

// SendTemplatedMessage renders the template for slug and dispatches it. An
// unknown slug sends fallbackSubject and fallbackBody verbatim.
func (m *Messenger) SendTemplatedMessage(slug string, subs Substitutions, recipient, fallbackSubject, fallbackBody string) bool {
	subject, body := fallbackSubject, fallbackBody

	tpl, err := m.templates.Find(slug)
	switch {
	case err == nil:
		subject = Render(tpl.Subject, subs)
		body = Render(tpl.Body, subs)
	case errors.Is(err, ErrTemplateNotFound):
		log.Warnf("[Notify] template %q not found, using fallback text", slug)
	default:
		log.Errorf("[Notify] template %q lookup failed, using fallback text: %v", slug, err)
	}

	return m.Dispatch(recipient, subject, body)
}

// Dispatch hands the message to the transport. On failure the message is
// appended to the fallback log.
func (m *Messenger) Dispatch(recipient, subject, body string) bool {
	var sendErr error
	if strings.TrimSpace(recipient) == "" {
		sendErr = errors.New("no recipient")
	} else {
		sendErr = m.transport.Send(recipient, subject, body)
	}
	if sendErr == nil {
		metrics.MailDispatch.WithLabelValues("sent").Inc()
		return true
	}

	metrics.MailDispatch.WithLabelValues("fallback").Inc()
	log.Warnf("[Notify] delivery to %q failed, writing fallback entry: %v", recipient, sendErr)
	entry := mail.FallbackEntry{
		Timestamp: m.clock.Now(),
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		Error:     sendErr.Error(),
	}
	if err := m.fallback.Append(entry); err != nil {
		log.Errorf("[Notify] fallback log write failed for %q: %v", recipient, err)
	}
	return false
}

// RecordNotification adds an entry to the user's in-app feed.
func (m *Messenger) RecordNotification(userID uint, message, link string) error {
	n := &models.Notification{
		UserID:    userID,
		Message:   message,
		CreatedAt: m.clock.Now(),
	}
	if link != "" {
		n.Link = &link
	}
	return m.notifications.Create(n)
}

// Notify records an in-app notification and logs instead of failing.
func (m *Messenger) Notify(userID uint, message, link string) {
	if err := m.RecordNotification(userID, message, link); err != nil {
		log.Errorf("[Notify] could not record notification for user %d: %v", userID, err)
	}
}

// MarkNotificationsRead stamps read_at on every unread notification of the user.
func (m *Messenger) MarkNotificationsRead(userID uint) (int64, error) {
	return m.notifications.MarkAllRead(userID, m.clock.Now())
}

func (m *Messenger) ListNotifications(userID uint, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	return m.notifications.ListByUser(userID, limit)
}

func (m *Messenger) UnreadCount(userID uint) (int64, error) {
	return m.notifications.CountUnread(userID)
}

// NotifyAdmins emails every active admin and adds the message to their feeds.
func (m *Messenger) NotifyAdmins(message, link, slug string, subs Substitutions, fallbackSubject, fallbackBody string) {
	admins, err := m.users.ListAdmins()
	if err != nil {
		log.Errorf("[Notify] listing admins failed: %v", err)
		return
	}
	for _, admin := range admins {
		m.Notify(admin.ID, message, link)
		m.SendTemplatedMessage(slug, subs, admin.Email, fallbackSubject, fallbackBody)
	}
}
