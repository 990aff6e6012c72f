package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/crm-whatsapp/crm-service/internal/api/dto"
	"github.com/crm-whatsapp/crm-service/internal/domain"
	"github.com/crm-whatsapp/crm-service/internal/service"
	apperrors "github.com/crm-whatsapp/crm-service/pkg/util"
)

// ClientsHandler manages client record and outreach endpoints.
type ClientsHandler struct {
	clients  *service.ClientService
	outreach *service.OutreachService
}

// NewClientsHandler constructs handler.
func NewClientsHandler(clients *service.ClientService, outreach *service.OutreachService) *ClientsHandler {
	return &ClientsHandler{clients: clients, outreach: outreach}
}

// List GET /clients. Without query parameters the session's active filters apply.
func (h *ClientsHandler) List(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	q := sess.ActiveFilters
	if len(c.Request().URI().QueryString()) > 0 {
		q, err = parseClientQuery(c)
		if err != nil {
			return err
		}
	}

	records, err := h.clients.List(c.UserContext(), sess.Actor(), q)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewClientList(records), "filters": q})
}

// Create POST /clients.
func (h *ClientsHandler) Create(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.CreateClientRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	client, err := h.clients.Create(c.UserContext(), sess.Actor(), service.ClientCreateInput{
		Name:         req.Name,
		Phone:        req.Phone,
		Document:     req.Document,
		Bank:         req.Bank,
		ContractType: req.ContractType,
		Status:       req.Status,
		Notes:        req.Notes,
		Priority:     req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewClientResponse(client)})
}

// Get GET /clients/:id.
func (h *ClientsHandler) Get(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	client, err := h.clients.Get(c.UserContext(), sess.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewClientResponse(client)})
}

// Update PATCH /clients/:id.
func (h *ClientsHandler) Update(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.UpdateClientRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	client, err := h.clients.Update(c.UserContext(), sess.Actor(), c.Params("id"), service.ClientPatch{
		Name:              req.Name,
		Phone:             req.Phone,
		Document:          req.Document,
		Bank:              req.Bank,
		ContractType:      req.ContractType,
		Status:            req.Status,
		Notes:             req.Notes,
		Priority:          req.Priority,
		ClearPriority:     req.ClearPriority,
		ExpectedUpdatedAt: req.ExpectedUpdatedAt,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewClientResponse(client)})
}

// Delete DELETE /clients/:id.
func (h *ClientsHandler) Delete(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := h.clients.Delete(c.UserContext(), sess.Actor(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// MarkContacted POST /clients/:id/contact.
func (h *ClientsHandler) MarkContacted(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	client, err := h.clients.MarkContacted(c.UserContext(), sess.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewClientResponse(client)})
}

// ComposeMessage POST /clients/:id/message.
func (h *ClientsHandler) ComposeMessage(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	id := c.Params("id")
	res, err := h.outreach.ComposeMessage(c.UserContext(), sess, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MessageResponse{ClientID: id, Text: res.Text, Fallback: res.Fallback}})
}

// SaveMessage POST /clients/:id/message/save.
func (h *ClientsHandler) SaveMessage(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.SaveMessageRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	client, err := h.outreach.SaveMessageToNotes(c.UserContext(), sess, c.Params("id"), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewClientResponse(client)})
}

// WhatsAppLink GET /clients/:id/whatsapp.
func (h *ClientsHandler) WhatsAppLink(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	id := c.Params("id")
	link, err := h.outreach.Link(c.UserContext(), sess, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LinkResponse{ClientID: id, URL: link.URL, Message: link.Message, Fallback: link.Fallback}})
}

func parseClientQuery(c *fiber.Ctx) (domain.ClientQuery, error) {
	q := domain.ClientQuery{
		Status:       c.Query("status"),
		Owner:        c.Query("owner"),
		Bank:         c.Query("bank"),
		ContractType: c.Query("contract_type"),
		Search:       c.Query("q", c.Query("search")),
		Order:        c.Query("order"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return q, apperrors.NewValidationError("invalid query", map[string]any{"limit": raw})
		}
		q.Limit = limit
	}
	return q, nil
}
