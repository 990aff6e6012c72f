package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/crm-whatsapp/crm-service/internal/api/dto"
	"github.com/crm-whatsapp/crm-service/internal/auth"
	"github.com/crm-whatsapp/crm-service/internal/domain"
	"github.com/crm-whatsapp/crm-service/internal/service"
	apperrors "github.com/crm-whatsapp/crm-service/pkg/util"
)

// AuthHandler exposes login, logout and session endpoints.
type AuthHandler struct {
	auth     *service.AuthService
	sessions *service.SessionService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, sessionService *service.SessionService) *AuthHandler {
	return &AuthHandler{auth: authService, sessions: sessionService}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	res, err := h.auth.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     res.Token,
		ExpiresAt: res.Session.ExpiresAt,
		Username:  res.Operator.Username,
		Role:      res.Operator.Role,
	}})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := h.auth.Logout(c.UserContext(), sess); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Me handles GET /auth/me and GET /session.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(sess)})
}

// SetFilters handles PUT /session/filters.
func (h *AuthHandler) SetFilters(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	var req domain.ClientQuery
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.sessions.SetFilters(c.UserContext(), sess, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(updated)})
}

// SetEditTarget handles PUT /session/edit-target.
func (h *AuthHandler) SetEditTarget(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.EditTargetRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.sessions.SetEditTarget(c.UserContext(), sess, req.ClientID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(updated)})
}

func currentSession(c *fiber.Ctx) (*domain.Session, error) {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("session required")
	}
	return sess, nil
}
