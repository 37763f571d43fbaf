package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/memorizu/memorizu/app/models"
	"github.com/memorizu/memorizu/internal/pkg/database"
	"github.com/memorizu/memorizu/internal/pkg/session"
	"github.com/memorizu/memorizu/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the complete user context for every request.
// This centralizes session handling so controllers only read the context.
func UserContextMiddleware(c *fiber.Ctx) error {
	// Goth uses its own fiber session store on OAuth routes; skip the app
	// session there to prevent cross-store collisions.
	if strings.HasPrefix(c.Path(), "/auth/") {
		return c.Next()
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		c.Locals(usercontext.KeyUserContext, usercontext.UserContext{IsLoggedIn: false, IsAdmin: false})
		return c.Next()
	}

	userID, ok := sess.Get(usercontext.KeyUserID).(uint)
	if !ok || userID == 0 {
		c.Locals(usercontext.KeyUserContext, usercontext.UserContext{IsLoggedIn: false, IsAdmin: false})
		return c.Next()
	}

	username := session.GetSessionValue(c, usercontext.KeyUsername)
	isAdmin := sess.Get(usercontext.KeyIsAdmin)

	// Plan is cached in the session; fall back to the user record once.
	plan := session.GetSessionValue(c, usercontext.KeyUserPlan)
	if plan == "" {
		plan = "free"
		if db := database.GetDB(); db != nil {
			var user models.User
			if err := db.First(&user, userID).Error; err == nil && user.Plan != "" {
				plan = user.Plan
			}
		}
		_ = session.SetSessionValue(c, usercontext.KeyUserPlan, plan)
	}

	c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
		UserID:     userID,
		Username:   username,
		IsLoggedIn: true,
		IsAdmin:    isAdmin != nil && isAdmin.(bool),
		Plan:       plan,
	})

	return c.Next()
}
