package controllers

import (
	"encoding/json"
	"log"
	"math"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/memorizu/memorizu/internal/pkg/cache"
	"github.com/memorizu/memorizu/internal/pkg/database"
	"github.com/memorizu/memorizu/internal/pkg/payment"
)

const pricingCacheKey = "publication_pricing"
const pricingCacheTTL = 15 * time.Minute

// priceToCents converts a decimal price to whole cents. Rounded, not
// truncated: 19.99 is not representable in binary and truncation would
// yield 1998.
func priceToCents(price float64) int64 {
	return int64(math.Round(price * 100))
}

type pricingResponse struct {
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
}

type initPricingRequest struct {
	Price       *float64 `json:"price"`
	Currency    string   `json:"currency"`
	Description string   `json:"description"`
}

// HandleGetPricing returns the current publication fee, seeding the default
// on first access. The response is cached to keep this public endpoint cheap.
// GET /api/publication/pricing
func HandleGetPricing(c *fiber.Ctx) error {
	if cached, err := cache.Get(pricingCacheKey); err == nil && cached != "" {
		c.Set("Content-Type", "application/json")
		return c.SendString(cached)
	}

	svc := payment.NewServiceFromDB(database.GetDB())
	pricing, err := svc.GetOrInitPricing(c.Context())
	if err != nil {
		log.Printf("[Pricing] failed to load publication pricing: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load pricing")
	}

	resp := pricingResponse{
		Price:       float64(pricing.AmountCents) / 100,
		Currency:    pricing.Currency,
		Description: pricing.Description,
	}
	if body, err := json.Marshal(resp); err == nil {
		if err := cache.Set(pricingCacheKey, string(body), pricingCacheTTL); err != nil {
			log.Printf("[Pricing] failed to cache pricing: %v", err)
		}
	}
	return c.JSON(resp)
}

// HandleInitPricing creates or updates the publication fee document.
// Omitted fields keep the defaults. Admin only.
// POST /api/admin/init-pricing
func HandleInitPricing(c *fiber.Ctx) error {
	var req initPricingRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}

	svc := payment.NewServiceFromDB(database.GetDB())
	current, err := svc.GetOrInitPricing(c.Context())
	if err != nil {
		log.Printf("[Pricing] failed to load publication pricing: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load pricing")
	}

	amountCents := current.AmountCents
	if req.Price != nil {
		if *req.Price <= 0 {
			return jsonError(c, fiber.StatusBadRequest, "invalid_request", "price must be positive")
		}
		amountCents = priceToCents(*req.Price)
	}
	currency := current.Currency
	if req.Currency != "" {
		currency = strings.ToLower(req.Currency)
	}
	description := current.Description
	if req.Description != "" {
		description = req.Description
	}

	pricing, err := svc.UpdatePricing(c.Context(), amountCents, currency, description)
	if err != nil {
		log.Printf("[Pricing] failed to update publication pricing: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update pricing")
	}

	if err := cache.Delete(pricingCacheKey); err != nil {
		log.Printf("[Pricing] failed to invalidate pricing cache: %v", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"pricing": pricingResponse{
			Price:       float64(pricing.AmountCents) / 100,
			Currency:    pricing.Currency,
			Description: pricing.Description,
		},
	})
}
