package dto

import (
	"time"

	"github.com/crm-whatsapp/crm-service/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
}

// SessionResponse exposes the caller's session state.
type SessionResponse struct {
	Username          string             `json:"username"`
	Role              domain.Role        `json:"role"`
	ExpiresAt         time.Time          `json:"expires_at"`
	ActiveFilters     domain.ClientQuery `json:"active_filters"`
	PendingEditTarget string             `json:"pending_edit_target,omitempty"`
	Messages          map[string]string  `json:"messages"`
}

// EditTargetRequest selects the client the edit form is open for.
type EditTargetRequest struct {
	ClientID string `json:"client_id"`
}

// NewSessionResponse maps a session.
func NewSessionResponse(sess *domain.Session) SessionResponse {
	messages := sess.Messages
	if messages == nil {
		messages = map[string]string{}
	}
	return SessionResponse{
		Username:          sess.Username,
		Role:              sess.Role,
		ExpiresAt:         sess.ExpiresAt,
		ActiveFilters:     sess.ActiveFilters,
		PendingEditTarget: sess.PendingEditTarget,
		Messages:          messages,
	}
}
