package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/memorizu/memorizu/app/controllers"
	"github.com/memorizu/memorizu/internal/pkg/middleware"
	"github.com/memorizu/memorizu/internal/pkg/oauth"
	"github.com/memorizu/memorizu/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	h.registerPublicRoutes(app)
}

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get("/", controllers.HandleIndex)
	app.Get("/healthz", controllers.HandleHealth)

	// Published pages, by slug or UUID
	app.Get("/p/:identifier", controllers.HandlePublicPage)

	// OAuth flow (goth keeps its own session store on these routes)
	app.Get("/auth/logout", controllers.HandleOAuthLogout)
	app.Get("/auth/:provider", controllers.HandleOAuthStart)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
