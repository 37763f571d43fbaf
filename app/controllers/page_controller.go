package controllers

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/memorizu/memorizu/app/models"
	"github.com/memorizu/memorizu/app/repository"
	"github.com/memorizu/memorizu/internal/pkg/entitlements"
	"github.com/memorizu/memorizu/internal/pkg/env"
	"github.com/memorizu/memorizu/internal/pkg/metrics/counter"
	"github.com/memorizu/memorizu/internal/pkg/security"
	"github.com/memorizu/memorizu/internal/pkg/slugger"
	"github.com/memorizu/memorizu/internal/pkg/usercontext"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Route prefixes a slug must not collide with.
var reservedSlugs = map[string]bool{
	"api": true, "admin": true, "auth": true, "login": true,
	"register": true, "assets": true, "docs": true, "p": true,
}

type pageRequest struct {
	Title           string `json:"title"`
	Components      string `json:"components"`
	BackgroundColor string `json:"backgroundColor"`
	Font            string `json:"font"`
	CustomCSS       string `json:"customCss"`
}

type claimSlugRequest struct {
	Slug string `json:"slug"`
}

func pageJSON(p *models.Page) fiber.Map {
	return fiber.Map{
		"id":              p.UUID,
		"title":           p.Title,
		"components":      p.Components,
		"backgroundColor": p.BackgroundColor,
		"font":            p.Font,
		"customCss":       p.CustomCSS,
		"slug":            p.Slug,
		"published":       p.Published,
		"paymentStatus":   p.PaymentStatus,
		"publicPath":      p.PublicPath(),
		"createdAt":       p.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":       p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// ownedPage loads a page by UUID and verifies the current user owns it.
// Foreign pages read as not found so UUIDs cannot be probed.
func ownedPage(c *fiber.Ctx) (*models.Page, error) {
	uc := usercontext.GetUserContext(c)
	page, err := repository.GetGlobalFactory().GetPageRepository().GetByUUID(c.Params("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, jsonError(c, fiber.StatusNotFound, "not_found", "Page not found")
		}
		log.Printf("[Page] lookup failed for page %s: %v", c.Params("uuid"), err)
		return nil, jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load page")
	}
	if page.UserID != uc.UserID && !uc.IsAdmin {
		return nil, jsonError(c, fiber.StatusNotFound, "not_found", "Page not found")
	}
	return page, nil
}

// HandleCreatePage creates a draft page, subject to the plan's page limit.
// POST /api/pages
func HandleCreatePage(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	var req pageRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}
	if strings.TrimSpace(req.Title) == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "title is required")
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	user, err := repos.User.GetByID(uc.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "User not found")
	}

	limits := entitlements.EffectiveLimits(user, time.Now())
	count, err := repos.Page.CountByUserID(uc.UserID)
	if err != nil {
		log.Printf("[Page] failed to count pages for user %d: %v", uc.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create page")
	}
	if count >= int64(limits.MaxPages) {
		return jsonError(c, fiber.StatusForbidden, "plan_limit_reached",
			fmt.Sprintf("Your plan allows up to %d pages", limits.MaxPages))
	}

	page := &models.Page{
		UUID:            uuid.New().String(),
		UserID:          uc.UserID,
		Title:           strings.TrimSpace(req.Title),
		Components:      req.Components,
		BackgroundColor: req.BackgroundColor,
		Font:            req.Font,
		CustomCSS:       req.CustomCSS,
		PaymentStatus:   models.PaymentStatusUnpaid,
	}
	if err := page.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Page validation failed")
	}
	if err := repos.Page.Create(page); err != nil {
		log.Printf("[Page] failed to create page for user %d: %v", uc.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create page")
	}

	return c.Status(fiber.StatusCreated).JSON(pageJSON(page))
}

// HandleListPages lists the current user's pages.
// GET /api/pages
func HandleListPages(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	pages, err := repository.GetGlobalFactory().GetPageRepository().GetByUserID(uc.UserID)
	if err != nil {
		log.Printf("[Page] failed to list pages for user %d: %v", uc.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to list pages")
	}

	out := make([]fiber.Map, 0, len(pages))
	for i := range pages {
		out = append(out, pageJSON(&pages[i]))
	}
	return c.JSON(fiber.Map{"pages": out})
}

// HandleGetPage returns a single page owned by the current user.
// GET /api/pages/:uuid
func HandleGetPage(c *fiber.Ctx) error {
	page, err := ownedPage(c)
	if err != nil {
		return err
	}
	return c.JSON(pageJSON(page))
}

// HandleUpdatePage updates the builder content of a page. Publication and
// payment fields are never written here, whatever the body contains.
// PUT /api/pages/:uuid
func HandleUpdatePage(c *fiber.Ctx) error {
	page, err := ownedPage(c)
	if err != nil {
		return err
	}

	var req pageRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}
	if strings.TrimSpace(req.Title) != "" {
		page.Title = strings.TrimSpace(req.Title)
	}
	page.Components = req.Components
	page.BackgroundColor = req.BackgroundColor
	page.Font = req.Font
	page.CustomCSS = req.CustomCSS

	if err := page.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Page validation failed")
	}
	if err := repository.GetGlobalFactory().GetPageRepository().Update(page); err != nil {
		log.Printf("[Page] failed to update page %s: %v", page.UUID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update page")
	}
	return c.JSON(pageJSON(page))
}

// HandleDeletePage soft-deletes a page. Paid pages must be refunded first.
// DELETE /api/pages/:uuid
func HandleDeletePage(c *fiber.Ctx) error {
	page, err := ownedPage(c)
	if err != nil {
		return err
	}
	if page.IsPaidAndPublished() {
		return jsonError(c, fiber.StatusConflict, "page_published",
			"Published pages must be refunded before deletion")
	}
	if err := repository.GetGlobalFactory().GetPageRepository().Delete(page.ID); err != nil {
		log.Printf("[Page] failed to delete page %s: %v", page.UUID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete page")
	}
	return c.JSON(fiber.Map{"success": true})
}

// HandleClaimSlug assigns a unique public slug to a page.
// POST /api/pages/:uuid/slug
func HandleClaimSlug(c *fiber.Ctx) error {
	page, err := ownedPage(c)
	if err != nil {
		return err
	}

	var req claimSlugRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if slug == "" {
		// Empty request asks for a random slug.
		generated, err := slugger.GenerateSlug(10)
		if err != nil {
			log.Printf("[Page] slug generation failed: %v", err)
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to claim slug")
		}
		slug = generated
	}
	if len(slug) < 3 || len(slug) > 64 || !slugPattern.MatchString(slug) {
		return jsonError(c, fiber.StatusBadRequest, "invalid_slug",
			"Slug must be 3-64 characters of lowercase letters, digits and hyphens")
	}
	if reservedSlugs[slug] {
		return jsonError(c, fiber.StatusConflict, "slug_taken", "This slug is reserved")
	}

	pageRepo := repository.GetGlobalFactory().GetPageRepository()
	taken, err := pageRepo.SlugExistsExceptID(slug, page.ID)
	if err != nil {
		log.Printf("[Page] slug check failed for %q: %v", slug, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to claim slug")
	}
	if taken {
		return jsonError(c, fiber.StatusConflict, "slug_taken", "This slug is already in use")
	}

	page.Slug = slug
	if err := pageRepo.Update(page); err != nil {
		log.Printf("[Page] failed to save slug %q for page %s: %v", slug, page.UUID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to claim slug")
	}
	return c.JSON(fiber.Map{"success": true, "slug": slug, "publicPath": page.PublicPath()})
}

// HandleCreatePreviewToken issues a short-lived link for sharing an
// unpublished page.
// POST /api/pages/:uuid/preview-token
func HandleCreatePreviewToken(c *fiber.Ctx) error {
	page, err := ownedPage(c)
	if err != nil {
		return err
	}

	secret := env.GetEnv("PREVIEW_TOKEN_SECRET", "")
	if secret == "" {
		return jsonError(c, fiber.StatusServiceUnavailable, "preview_unavailable", "Preview links are not configured")
	}

	uc := usercontext.GetUserContext(c)
	token, err := security.GeneratePreviewToken(uc.UserID, page.UUID, time.Hour, secret)
	if err != nil {
		log.Printf("[Page] preview token generation failed for page %s: %v", page.UUID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create preview link")
	}

	return c.JSON(fiber.Map{
		"token":      token,
		"previewUrl": fmt.Sprintf("/p/%s?preview=%s", page.UUID, token),
		"expiresIn":  int(time.Hour.Seconds()),
	})
}

// HandlePageStats returns view analytics for a page. Requires a plan with
// the analytics entitlement.
// GET /api/pages/:uuid/stats
func HandlePageStats(c *fiber.Ctx) error {
	page, err := ownedPage(c)
	if err != nil {
		return err
	}

	uc := usercontext.GetUserContext(c)
	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(uc.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "User not found")
	}
	if !entitlements.EffectiveLimits(user, time.Now()).HasAnalytics {
		return jsonError(c, fiber.StatusForbidden, "plan_required", "Analytics requires the Pro or Business plan")
	}

	return c.JSON(fiber.Map{
		"pageId":    page.UUID,
		"viewCount": page.ViewCount,
	})
}

// HandlePublicPage serves a published page by slug or UUID.
// GET /p/:identifier
func HandlePublicPage(c *fiber.Ctx) error {
	identifier := c.Params("identifier")
	pageRepo := repository.GetGlobalFactory().GetPageRepository()

	page, err := pageRepo.GetBySlug(identifier)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		page, err = pageRepo.GetByUUID(identifier)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).Render("404", fiber.Map{})
		}
		log.Printf("[Page] public lookup failed for %q: %v", identifier, err)
		return c.Status(fiber.StatusInternalServerError).SendString("Something went wrong")
	}

	// Unpaid or refunded pages are invisible to the public, except through
	// a valid preview token.
	if !page.IsPaidAndPublished() {
		if !validPreviewToken(c, page) {
			return c.Status(fiber.StatusNotFound).Render("404", fiber.Map{})
		}
		return renderPage(c, page)
	}

	if err := counter.AddPageView(page.ID); err != nil {
		log.Printf("[Page] failed to count view for page %s: %v", page.UUID, err)
	}

	return renderPage(c, page)
}

func renderPage(c *fiber.Ctx, page *models.Page) error {
	return c.Render("page", fiber.Map{
		"Title":           page.Title,
		"Components":      page.Components,
		"BackgroundColor": page.BackgroundColor,
		"Font":            page.Font,
		"CustomCSS":       page.CustomCSS,
	})
}

func validPreviewToken(c *fiber.Ctx, page *models.Page) bool {
	token := c.Query("preview")
	if token == "" {
		return false
	}
	secret := env.GetEnv("PREVIEW_TOKEN_SECRET", "")
	if secret == "" {
		return false
	}
	claims, err := security.VerifyPreviewToken(token, secret)
	if err != nil {
		return false
	}
	return claims.PageUUID == page.UUID
}
