package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/access-token-service/internal/api/dto"
	"github.com/spec-kit/access-token-service/internal/auth"
	"github.com/spec-kit/access-token-service/internal/ratelimit"
	"github.com/spec-kit/access-token-service/internal/repository"
	"github.com/spec-kit/access-token-service/internal/service"
	apperrors "github.com/spec-kit/access-token-service/pkg/util"
)

// UsersHandler exposes registration, login and the current-user endpoint.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Register handles POST /user.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError("validation failed", dto.ValidationDetails(err))
	}

	user, err := h.auth.Register(c.UserContext(), req.FullName, req.Email, req.Password, c.IP())
	switch {
	case errors.Is(err, repository.ErrEmailTaken):
		return apperrors.NewConflict("email already registered", nil)
	case errors.Is(err, auth.ErrPasswordTooLong):
		return apperrors.NewValidationError("validation failed", map[string]any{"password": err.Error()})
	case err != nil:
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.NewUserResponse(user),
	})
}

// Login handles POST /user/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError("validation failed", dto.ValidationDetails(err))
	}

	user, tok, err := h.auth.Login(c.UserContext(), req.Email, req.Password, c.IP())
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return apperrors.NewUnauthorized("invalid credentials")
	case errors.Is(err, ratelimit.ErrRateLimited):
		return apperrors.NewTooManyRequests("too many login attempts")
	case err != nil:
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.NewUserResponse(user),
			"auth": dto.NewAuthResponse(tok),
		},
	})
}

// Me handles GET /user for the bearer of a verified token.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	tok, ok := auth.TokenFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	user, err := h.auth.CurrentUser(c.UserContext(), tok)
	if errors.Is(err, service.ErrUnknownSubject) {
		return apperrors.NewUnauthorized("invalid token")
	}
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user":  dto.NewUserResponse(user),
			"token": tok,
		},
	})
}
