package handlers

import (
	"errors"
	"log/slog"
	"time"

	"comparador/internal/apperr"
	"comparador/internal/middleware"
	"comparador/internal/security"
	"comparador/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

const rememberCookie = "remember_me"

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService    *services.AuthService
	sessionService *services.SessionService
	tokenService   *services.TokenService
	remember       *security.RememberMe
	exposeTokens   bool
	validate       *validator.Validate
	log            *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. With exposeTokens the forgot-password response
// carries the issued token, for environments without a mailer.
func NewAuthHandler(authService *services.AuthService, sessionService *services.SessionService, tokenService *services.TokenService, remember *security.RememberMe, exposeTokens bool, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		sessionService: sessionService,
		tokenService:   tokenService,
		remember:       remember,
		exposeTokens:   exposeTokens,
		validate:       newValidator(),
		log:            log,
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Get("/login", h.HandleLoginForm)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/logout", h.HandleLogout)
	authRoutes.Get("/me", middleware.AuthRequired(), h.HandleMe)
	authRoutes.Post("/forgot-password", h.HandleForgotPassword)
	authRoutes.Post("/reset-password", h.HandleResetPassword)
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Username string `json:"username" form:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" form:"password" validate:"required,min=6,passwordbytes"`
	Email    string `json:"email" form:"email" validate:"required,email,max=100"`
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.UserContext(), req.Username, req.Password, req.Email)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

// HandleLoginForm returns the username remembered by this browser, if any. It never logs in.
func (h *AuthHandler) HandleLoginForm(c *fiber.Ctx) error {
	username := ""
	if marker := c.Cookies(rememberCookie); marker != "" {
		if name, err := h.remember.Username(marker); err == nil {
			username = name
		}
	}
	return c.JSON(fiber.Map{"username": username})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
	Remember bool   `json:"remember" form:"remember"`
}

// HandleLogin checks the credentials, binds the user to the session under a new session id and
// sets or clears the remember-me marker.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	principal, err := h.sessionService.Login(ctx, middleware.SessionID(c), req.Username, req.Password)
	if err != nil {
		return err
	}

	oldID, newID, err := middleware.RotateSession(c)
	if err != nil {
		return err
	}
	if err := h.sessionService.Rotate(ctx, oldID, newID); err != nil {
		return err
	}

	if req.Remember {
		marker, err := h.remember.Issue(principal.Username)
		if err != nil {
			return err
		}
		c.Cookie(&fiber.Cookie{
			Name:     rememberCookie,
			Value:    marker,
			Expires:  time.Now().Add(h.remember.TTL()),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	} else {
		c.ClearCookie(rememberCookie)
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user":    principal,
	})
}

// HandleLogout ends the session: principal, cart and remember-me marker are all dropped.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	oldID, err := middleware.EndSession(c)
	if err != nil {
		return err
	}
	if oldID != "" {
		if err := h.sessionService.Logout(c.UserContext(), oldID); err != nil {
			return err
		}
	}
	c.ClearCookie(rememberCookie)
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// HandleMe returns the principal of the session.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	return c.JSON(middleware.Principal(c))
}

// ForgotPasswordRequest represents the request body for a reset request.
type ForgotPasswordRequest struct {
	Email string `json:"email" form:"email" validate:"required,email"`
}

// HandleForgotPassword issues a reset token. The answer is the same whether or not the email
// belongs to an account.
func (h *AuthHandler) HandleForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return err
	}

	body := fiber.Map{"message": "If the email is registered, a reset link has been sent"}
	token, err := h.tokenService.RequestReset(c.UserContext(), req.Email)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		h.log.Debug("password reset requested for unknown email")
	case err != nil:
		return err
	case h.exposeTokens:
		body["token"] = token.Token
	}
	return c.Status(fiber.StatusAccepted).JSON(body)
}

// ResetPasswordRequest represents the request body for redeeming a reset token.
type ResetPasswordRequest struct {
	Token    string `json:"token" form:"token" validate:"required"`
	Password string `json:"password" form:"password" validate:"required,min=6,passwordbytes"`
}

// HandleResetPassword redeems a reset token.
func (h *AuthHandler) HandleResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return err
	}

	if err := h.tokenService.Redeem(c.UserContext(), req.Token, req.Password); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Password updated"})
}
