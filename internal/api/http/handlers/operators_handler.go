package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/crm-whatsapp/crm-service/internal/api/dto"
	"github.com/crm-whatsapp/crm-service/internal/service"
	apperrors "github.com/crm-whatsapp/crm-service/pkg/util"
)

// OperatorsHandler exposes admin account management and the activity log.
type OperatorsHandler struct {
	operators *service.OperatorService
	activity  *service.ActivityService
}

// NewOperatorsHandler constructs handler.
func NewOperatorsHandler(operators *service.OperatorService, activity *service.ActivityService) *OperatorsHandler {
	return &OperatorsHandler{operators: operators, activity: activity}
}

// List GET /operators.
func (h *OperatorsHandler) List(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	ops, err := h.operators.List(c.UserContext(), sess.Actor())
	if err != nil {
		return err
	}
	items := make([]dto.OperatorResponse, 0, len(ops))
	for i := range ops {
		items = append(items, dto.NewOperatorResponse(&ops[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create POST /operators.
func (h *OperatorsHandler) Create(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.CreateOperatorRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	op, err := h.operators.Create(c.UserContext(), sess.Actor(), service.OperatorCreateInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewOperatorResponse(op)})
}

// Update PATCH /operators/:username.
func (h *OperatorsHandler) Update(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.UpdateOperatorRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	op, err := h.operators.Update(c.UserContext(), sess.Actor(), c.Params("username"), service.OperatorPatch{
		Role:     req.Role,
		Active:   req.Active,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOperatorResponse(op)})
}

// Delete DELETE /operators/:username.
func (h *OperatorsHandler) Delete(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := h.operators.Delete(c.UserContext(), sess.Actor(), c.Params("username")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Logs GET /logs.
func (h *OperatorsHandler) Logs(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	entries, err := h.activity.List(c.UserContext(), sess.Actor(), c.QueryInt("limit", service.DefaultActivityLimit))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLogEntryList(entries)})
}
