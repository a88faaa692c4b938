package handlers

import (
	"time"

	"comparador/internal/middleware"
	"comparador/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ChatHandler handles HTTP requests for the community board.
type ChatHandler struct {
	service  *services.ChatService
	location *time.Location
	validate *validator.Validate
}

// NewChatHandler creates a new ChatHandler. Timestamps are rendered in loc.
func NewChatHandler(service *services.ChatService, loc *time.Location) *ChatHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ChatHandler{
		service:  service,
		location: loc,
		validate: newValidator(),
	}
}

func (h *ChatHandler) RegisterRoutes(router fiber.Router) {
	chatRoutes := router.Group("/chat")
	chatRoutes.Get("/", h.HandleGetMessages)
	chatRoutes.Post("/", h.HandlePostMessage)
}

type chatView struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// HandleGetMessages returns the latest messages, newest first.
func (h *ChatHandler) HandleGetMessages(c *fiber.Ctx) error {
	msgs, err := h.service.Recent(c.UserContext())
	if err != nil {
		return err
	}
	views := make([]chatView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, chatView{
			ID:        m.ID,
			Username:  m.Username,
			Message:   m.Message,
			Timestamp: m.CreatedAt.In(h.location).Format(time.DateTime),
		})
	}
	return c.JSON(views)
}

// PostMessageRequest represents a new board message. Username defaults to the logged in user.
type PostMessageRequest struct {
	Username string `json:"username" form:"username" validate:"required,max=100"`
	Message  string `json:"message" form:"message" validate:"required,max=1000"`
}

// HandlePostMessage stores a message.
func (h *ChatHandler) HandlePostMessage(c *fiber.Ctx) error {
	var req PostMessageRequest
	if err := c.BodyParser(&req); err == nil && req.Username == "" {
		if p := middleware.Principal(c); p != nil {
			req.Username = p.Username
		}
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailure(err)
	}

	msg, err := h.service.Post(c.UserContext(), req.Username, req.Message)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(chatView{
		ID:        msg.ID,
		Username:  msg.Username,
		Message:   msg.Message,
		Timestamp: msg.CreatedAt.In(h.location).Format(time.DateTime),
	})
}
