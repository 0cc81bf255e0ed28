package controllers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ServicePortal/app/models"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/session"
	"github.com/ManuelReschke/ServicePortal/internal/pkg/usercontext"
)

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type signupRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Company  string `json:"company" form:"company"`
	Captcha  string `json:"h-captcha-response" form:"h-captcha-response"`
}

func (ct *Controller) HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}

	// one message for every failure so accounts cannot be enumerated
	user, err := ct.svc.Repos.User.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return internalError(c, "login failed", err)
		}
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "invalid email or password")
	}
	if !user.IsActive() || !user.CheckPassword(req.Password) {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "invalid email or password")
	}

	if err := startSession(c, user); err != nil {
		return internalError(c, "could not start session", err)
	}
	return c.JSON(fiber.Map{"user": user})
}

func (ct *Controller) HandleLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return internalError(c, "could not load session", err)
	}
	if err := sess.Destroy(); err != nil {
		return internalError(c, "could not end session", err)
	}
	usercontext.Set(c, usercontext.UserContext{})
	return c.SendStatus(fiber.StatusNoContent)
}

func (ct *Controller) HandleSignup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	if ct.svc.Captcha != nil {
		if err := ct.svc.Captcha.Verify(c.UserContext(), req.Captcha, c.IP()); err != nil {
			log.Warnf("[Auth] signup captcha rejected: %v", err)
			return jsonError(c, fiber.StatusBadRequest, "captcha_failed", "Captcha validation failed. Please try again.")
		}
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := ct.svc.Repos.User.GetByEmail(email); err == nil {
		return jsonError(c, fiber.StatusConflict, "conflict", "an account with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return internalError(c, "signup failed", err)
	}

	user, err := models.CreateUser(strings.TrimSpace(req.Name), email, req.Password)
	if err != nil {
		var verr validator.ValidationErrors
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "fields": fieldErrors(verr)})
		}
		return internalError(c, "signup failed", err)
	}
	user.Company = strings.TrimSpace(req.Company)
	if err := ct.svc.Repos.User.Create(user); err != nil {
		return internalError(c, "signup failed", err)
	}
	log.Infof("[Auth] client account %d created", user.ID)

	if err := startSession(c, user); err != nil {
		return internalError(c, "could not start session", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user})
}

func startSession(c *fiber.Ctx, user *models.User) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}
	if err := sess.Regenerate(); err != nil {
		return err
	}
	sess.Set(usercontext.AuthKey, true)
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyUsername, user.Name)
	sess.Set(usercontext.KeyEmail, user.Email)
	sess.Set(usercontext.KeyIsAdmin, user.IsAdmin())
	return sess.Save()
}

// fieldErrors maps validator errors to lower-case field names.
func fieldErrors(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		out[strings.ToLower(fe.Field())] = "failed on " + fe.Tag()
	}
	return out
}
