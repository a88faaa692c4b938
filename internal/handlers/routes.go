package handlers

import (
	"comparador/internal/middleware"
	"comparador/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// Handlers bundles every route group of the API.
type Handlers struct {
	Auth    *AuthHandler
	Cart    *CartHandler
	Product *ProductHandler
	Chat    *ChatHandler
	Admin   *AdminHandler
}

// SetupRoutes mounts the API under /api/v1. Every API request runs inside a transport session
// and carries the principal bound to it, if any.
func SetupRoutes(app *fiber.App, sessionStore *session.Store, sessionService *services.SessionService, h Handlers) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	apiV1 := app.Group("/api/v1", middleware.Session(sessionStore), middleware.LoadPrincipal(sessionService))

	h.Auth.RegisterRoutes(apiV1)
	h.Cart.RegisterRoutes(apiV1)
	h.Product.RegisterRoutes(apiV1)
	h.Chat.RegisterRoutes(apiV1)
	h.Admin.RegisterRoutes(apiV1)
}
