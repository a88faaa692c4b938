package handlers

import (
	"comparador/internal/middleware"
	"comparador/internal/models"
	"comparador/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ProductHandler handles HTTP requests for the price catalog.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the product routes. Reads are public, writes need a login.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/search", h.HandleSearchProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/", middleware.AuthRequired(), h.HandleCreateProduct)
	productRoutes.Put("/:id", middleware.AuthRequired(), h.HandleUpdateProduct)
	productRoutes.Delete("/:id", middleware.AuthRequired(), h.HandleDeleteProduct)
}

type productView struct {
	models.Product
	PriceDisplay string `json:"price_display"`
}

func viewOf(p models.Product) productView {
	return productView{Product: p, PriceDisplay: FormatPrice(p.Price)}
}

func viewsOf(products []models.Product) []productView {
	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, viewOf(p))
	}
	return views
}

// HandleGetProducts lists every product, newest first.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(viewsOf(products))
}

// HandleSearchProducts filters by the q query parameter.
func (h *ProductHandler) HandleSearchProducts(c *fiber.Ctx) error {
	products, err := h.service.SearchProducts(c.UserContext(), c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(viewsOf(products))
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(viewOf(*product))
}

// ProductRequest represents the editable fields of a product.
type ProductRequest struct {
	Name  string   `json:"name" form:"name" validate:"required,max=100"`
	Brand string   `json:"brand" form:"brand" validate:"required,max=100"`
	Price *float64 `json:"price" form:"price" validate:"required,gte=0"`
	Place string   `json:"place" form:"place" validate:"required,max=100"`
}

func (r ProductRequest) product(id string) *models.Product {
	return &models.Product{ID: id, Name: r.Name, Brand: r.Brand, Price: *r.Price, Place: r.Place}
}

// HandleCreateProduct uploads a new price listing.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var req ProductRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return err
	}

	product := req.product("")
	if err := h.service.CreateProduct(c.UserContext(), product); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(viewOf(*product))
}

// HandleUpdateProduct overwrites the editable fields of a product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var req ProductRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return err
	}

	id := c.Params("id")
	if err := h.service.UpdateProduct(c.UserContext(), req.product(id)); err != nil {
		return err
	}
	product, err := h.service.GetProductByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(viewOf(*product))
}

// HandleDeleteProduct deletes a product by its ID.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.service.DeleteProduct(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
