package handlers

import (
	"comparador/internal/middleware"
	"comparador/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CartHandler handles HTTP requests for the session cart.
type CartHandler struct {
	service  *services.CartService
	validate *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the cart routes. None of them require a login.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Delete("/", h.HandleClearCart)
}

// HandleGetCart returns the items and their total.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	cart, err := h.service.List(c.UserContext(), middleware.SessionID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"items":         cart.Items,
		"total":         cart.Total,
		"total_display": FormatPrice(cart.Total),
	})
}

// AddItemRequest represents the request body for adding a product to the cart.
type AddItemRequest struct {
	ProductID string `json:"product_id" form:"product_id" validate:"required"`
}

// HandleAddItem appends a product to the cart.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return err
	}

	item, err := h.service.Add(c.UserContext(), middleware.SessionID(c), req.ProductID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// HandleClearCart empties the cart.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	if err := h.service.Clear(c.UserContext(), middleware.SessionID(c)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Cart cleared"})
}
