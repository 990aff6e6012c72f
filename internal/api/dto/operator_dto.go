package dto

import (
	"time"

	"github.com/crm-whatsapp/crm-service/internal/domain"
)

// CreateOperatorRequest payload.
type CreateOperatorRequest struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// UpdateOperatorRequest payload. Omitted fields are left unchanged.
type UpdateOperatorRequest struct {
	Role     *domain.Role `json:"role"`
	Active   *bool        `json:"active"`
	Password *string      `json:"password"`
}

// OperatorResponse never carries the password hash.
type OperatorResponse struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"created_at"`
}

// LogEntryResponse is one audit record.
type LogEntryResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// NewOperatorResponse maps an operator.
func NewOperatorResponse(op *domain.Operator) OperatorResponse {
	return OperatorResponse{
		ID:        op.ID,
		Username:  op.Username,
		Role:      op.Role,
		Active:    op.Active,
		CreatedAt: op.CreatedAt,
	}
}

// NewLogEntryList maps audit records.
func NewLogEntryList(entries []domain.LogEntry) []LogEntryResponse {
	items := make([]LogEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, LogEntryResponse{ID: e.ID, Username: e.Username, Action: e.Action, CreatedAt: e.CreatedAt})
	}
	return items
}
