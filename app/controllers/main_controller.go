package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/memorizu/memorizu/internal/pkg/database"
	"github.com/memorizu/memorizu/internal/pkg/statistics"
	"github.com/memorizu/memorizu/internal/pkg/usercontext"
)

// HandleIndex is the API landing route.
// GET /
func HandleIndex(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	stats := statistics.GetStatisticsData()
	return c.JSON(fiber.Map{
		"name":     "memorizu",
		"loggedIn": uc.IsLoggedIn,
		"stats": fiber.Map{
			"totalUsers":     stats.TotalUsers,
			"totalPages":     stats.TotalPages,
			"publishedPages": stats.PublishedPages,
			"todayPages":     stats.TodayPages,
		},
	})
}

// HandleHealth reports process and database health for the load balancer.
// GET /healthz
func HandleHealth(c *fiber.Ctx) error {
	db := database.GetDB()
	if db == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
	}
	sqlDB, err := db.DB()
	if err != nil || sqlDB.Ping() != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
