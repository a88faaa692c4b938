package handlers

import (
	"fmt"
	"io"

	"comparador/internal/apperr"
	"comparador/internal/middleware"
	"comparador/internal/services"

	"github.com/gofiber/fiber/v2"
)

const snapshotFilename = "database.db"

// AdminHandler exposes the snapshot transfer. The service enforces the administrator check.
type AdminHandler struct {
	snapshots *services.SnapshotService
}

func NewAdminHandler(snapshots *services.SnapshotService) *AdminHandler {
	return &AdminHandler{snapshots: snapshots}
}

func (h *AdminHandler) RegisterRoutes(router fiber.Router) {
	adminRoutes := router.Group("/admin", middleware.AuthRequired())
	adminRoutes.Get("/snapshot", h.HandleExport)
	adminRoutes.Post("/snapshot", h.HandleImport)
}

// HandleExport downloads the whole store.
func (h *AdminHandler) HandleExport(c *fiber.Ctx) error {
	blob, err := h.snapshots.Export(c.UserContext(), middleware.Principal(c))
	if err != nil {
		return err
	}
	c.Attachment(snapshotFilename)
	c.Set(fiber.HeaderContentType, "application/vnd.sqlite3")
	return c.Send(blob)
}

// HandleImport replaces the whole store with the uploaded file.
func (h *AdminHandler) HandleImport(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fmt.Errorf("%w: multipart field 'file' is required", apperr.ErrValidation)
	}
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidFormat, err)
	}
	defer f.Close()

	blob, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidFormat, err)
	}
	if err := h.snapshots.Import(c.UserContext(), middleware.Principal(c), blob); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Database imported"})
}
