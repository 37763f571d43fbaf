package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/memorizu/memorizu/app/controllers"
	"github.com/memorizu/memorizu/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max: 120,
	}))

	// Auth
	auth := api.Group("/auth")
	auth.Post("/register", controllers.HandleRegister)
	auth.Post("/login", controllers.HandleLogin)
	auth.Post("/logout", controllers.HandleLogout)

	// Public
	api.Get("/publication/pricing", controllers.HandleGetPricing)

	// Provider webhook, signature-verified rather than session-authenticated
	api.Post("/stripe/webhook", controllers.HandleStripeWebhook)

	// Profile
	api.Get("/me", middleware.RequireAuth, controllers.HandleGetMe)

	// Page builder
	pages := api.Group("/pages", middleware.RequireAuth)
	pages.Post("/", controllers.HandleCreatePage)
	pages.Get("/", controllers.HandleListPages)
	pages.Get("/:uuid", controllers.HandleGetPage)
	pages.Put("/:uuid", controllers.HandleUpdatePage)
	pages.Delete("/:uuid", controllers.HandleDeletePage)
	pages.Post("/:uuid/slug", controllers.HandleClaimSlug)
	pages.Get("/:uuid/stats", controllers.HandlePageStats)
	pages.Post("/:uuid/preview-token", controllers.HandleCreatePreviewToken)

	// Builder assets
	api.Post("/assets", middleware.RequireAuth, controllers.HandleUploadAsset)

	// Payments
	api.Post("/stripe/checkout", middleware.RequireAuth, controllers.HandleStripeCheckout)
	api.Post("/stripe/publish-payment", middleware.RequireAuth, controllers.HandlePublishPayment)
	api.Post("/stripe/refund", middleware.RequireAuth, controllers.HandleRefund)
	api.Post("/payment/verify-and-publish", middleware.RequireAuth, controllers.HandleVerifyAndPublish)

	// Admin
	admin := api.Group("/admin", middleware.RequireAdmin)
	admin.Post("/init-pricing", controllers.HandleInitPricing)
	admin.Post("/force-publish", controllers.HandleForcePublish)
	admin.Get("/page-status", controllers.HandlePageStatus)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
