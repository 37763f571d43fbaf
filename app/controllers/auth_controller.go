package controllers

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/memorizu/memorizu/app/models"
	"github.com/memorizu/memorizu/app/repository"
	"github.com/memorizu/memorizu/internal/pkg/hcaptcha"
	"github.com/memorizu/memorizu/internal/pkg/session"
	"github.com/memorizu/memorizu/internal/pkg/usercontext"
	"github.com/memorizu/memorizu/internal/pkg/utils"
)

type registerRequest struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captchaToken"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginSession writes the authenticated user into the session. The plan is
// cached alongside so the context middleware can skip the DB on most requests.
func loginSession(c *fiber.Ctx, user *models.User) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}
	sess.Set(usercontext.AuthKey, true)
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyUsername, user.Name)
	sess.Set(usercontext.KeyIsAdmin, user.IsAdmin())
	sess.Set(usercontext.KeyUserPlan, user.Plan)
	return sess.Save()
}

func userJSON(user *models.User) fiber.Map {
	return fiber.Map{
		"id":        user.ID,
		"username":  user.Name,
		"email":     user.Email,
		"plan":      user.Plan,
		"isAdmin":   user.IsAdmin(),
		"avatarUrl": utils.GetGravatarURL(user.Email, 200),
	}
}

// HandleRegister creates an account and logs it in.
// POST /api/auth/register
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}
	if len(req.Password) < 8 {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Password must be at least 8 characters")
	}
	if hcaptcha.Enabled() {
		if ok, err := hcaptcha.Verify(req.CaptchaToken); !ok {
			log.Printf("[Auth] captcha verification failed: %v", err)
			return jsonError(c, fiber.StatusBadRequest, "captcha_failed", "Captcha verification failed")
		}
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	userRepo := repository.GetGlobalFactory().GetUserRepository()
	if _, err := userRepo.GetByEmail(email); err == nil {
		return jsonError(c, fiber.StatusConflict, "email_taken", "An account with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[Auth] email lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Registration failed")
	}

	user, err := models.CreateUser(strings.TrimSpace(req.Username), email, req.Password)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Username or email is invalid")
	}
	if err := userRepo.Create(user); err != nil {
		log.Printf("[Auth] failed to create user %s: %v", email, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Registration failed")
	}

	if err := loginSession(c, user); err != nil {
		log.Printf("[Auth] failed to create session for user %d: %v", user.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Registration failed")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": userJSON(user)})
}

// HandleLogin authenticates by email and password.
// POST /api/auth/login
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := repository.GetGlobalFactory().GetUserRepository().GetByEmail(email)
	if err != nil || !user.CheckPassword(req.Password) {
		// Identical response for unknown email and wrong password.
		return jsonError(c, fiber.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
	}
	if !user.IsActive() {
		return jsonError(c, fiber.StatusForbidden, "account_disabled", "This account is disabled")
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := repository.GetGlobalFactory().GetUserRepository().Update(user); err != nil {
		log.Printf("[Auth] failed to update last login for user %d: %v", user.ID, err)
	}

	if err := loginSession(c, user); err != nil {
		log.Printf("[Auth] failed to create session for user %d: %v", user.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Login failed")
	}

	return c.JSON(fiber.Map{"user": userJSON(user)})
}

// HandleLogout destroys the session.
// POST /api/auth/logout
func HandleLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err == nil {
		if err := sess.Destroy(); err != nil {
			log.Printf("[Auth] failed to destroy session: %v", err)
		}
	}
	return c.JSON(fiber.Map{"success": true})
}
