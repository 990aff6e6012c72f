package dto

import (
	"time"

	"github.com/crm-whatsapp/crm-service/internal/domain"
)

// CreateClientRequest payload.
type CreateClientRequest struct {
	Name         string              `json:"name"`
	Phone        string              `json:"phone"`
	Document     string              `json:"document"`
	Bank         string              `json:"bank"`
	ContractType string              `json:"contract_type"`
	Status       domain.ClientStatus `json:"status"`
	Notes        string              `json:"notes"`
	Priority     *int                `json:"priority"`
}

// UpdateClientRequest payload. Omitted fields are left unchanged.
type UpdateClientRequest struct {
	Name              *string              `json:"name"`
	Phone             *string              `json:"phone"`
	Document          *string              `json:"document"`
	Bank              *string              `json:"bank"`
	ContractType      *string              `json:"contract_type"`
	Status            *domain.ClientStatus `json:"status"`
	Notes             *string              `json:"notes"`
	Priority          *int                 `json:"priority"`
	ClearPriority     bool                 `json:"clear_priority"`
	ExpectedUpdatedAt *time.Time           `json:"expected_updated_at"`
}

// SaveMessageRequest payload. An empty text saves the message generated in this session.
type SaveMessageRequest struct {
	Text string `json:"text"`
}

// ClientResponse is the wire form of a client record.
type ClientResponse struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Phone         string              `json:"phone"`
	Document      string              `json:"document,omitempty"`
	Bank          string              `json:"bank,omitempty"`
	ContractType  string              `json:"contract_type,omitempty"`
	Status        domain.ClientStatus `json:"status"`
	Notes         string              `json:"notes,omitempty"`
	Owner         string              `json:"owner"`
	Priority      *int                `json:"priority,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	LastContactAt *time.Time          `json:"last_contact_at,omitempty"`
}

// MessageResponse is a composed outreach message.
type MessageResponse struct {
	ClientID string `json:"client_id"`
	Text     string `json:"text"`
	Fallback bool   `json:"fallback"`
}

// LinkResponse is a WhatsApp deep link.
type LinkResponse struct {
	ClientID string `json:"client_id"`
	URL      string `json:"url"`
	Message  string `json:"message"`
	Fallback bool   `json:"fallback"`
}

// NewClientResponse maps a client record.
func NewClientResponse(c *domain.Client) ClientResponse {
	return ClientResponse{
		ID:            c.ID,
		Name:          c.Name,
		Phone:         c.Phone,
		Document:      c.Document,
		Bank:          c.Bank,
		ContractType:  c.ContractType,
		Status:        c.Status,
		Notes:         c.Notes,
		Owner:         c.Owner,
		Priority:      c.Priority,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		LastContactAt: c.LastContactAt,
	}
}

// NewClientList maps a slice of records.
func NewClientList(clients []domain.Client) []ClientResponse {
	items := make([]ClientResponse, 0, len(clients))
	for i := range clients {
		items = append(items, NewClientResponse(&clients[i]))
	}
	return items
}
