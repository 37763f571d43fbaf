package controllers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/memorizu/memorizu/app/repository"
	"github.com/memorizu/memorizu/internal/pkg/entitlements"
	"github.com/memorizu/memorizu/internal/pkg/usercontext"
)

// HandleGetMe returns the current user's profile, effective plan and limits.
// The effective plan is computed per request, so an expired subscription
// reads as free without any background job.
// GET /api/me
func HandleGetMe(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	repos := repository.GetGlobalFactory().GetRepositories()
	user, err := repos.User.GetByID(uc.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "User not found")
	}

	now := time.Now()
	plan := entitlements.EffectivePlan(user, now)
	limits := entitlements.LimitsFor(plan)

	pageCount, err := repos.Page.CountByUserID(user.ID)
	if err != nil {
		log.Printf("[User] failed to count pages for user %d: %v", user.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load profile")
	}

	return c.JSON(fiber.Map{
		"user": userJSON(user),
		"subscription": fiber.Map{
			"plan":              string(plan),
			"status":            user.SubscriptionStatus,
			"currentPeriodEnd":  formatTimePtr(user.CurrentPeriodEnd),
			"cancelAtPeriodEnd": user.CancelAtPeriodEnd,
		},
		"limits": fiber.Map{
			"maxPages":           limits.MaxPages,
			"canRemoveBranding":  limits.CanRemoveBranding,
			"hasCustomDomain":    limits.HasCustomDomain,
			"hasAnalytics":       limits.HasAnalytics,
			"hasPrioritySupport": limits.HasPrioritySupport,
		},
		"usage": fiber.Map{
			"pages": pageCount,
		},
	})
}
