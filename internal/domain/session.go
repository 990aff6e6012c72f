package domain

import "time"

// ClientQuery is the persisted form of the client board filters.
type ClientQuery struct {
	Status       string `json:"status,omitempty"`
	Owner        string `json:"owner,omitempty"`
	Bank         string `json:"bank,omitempty"`
	ContractType string `json:"contract_type,omitempty"`
	Search       string `json:"search,omitempty"`
	Order        string `json:"order,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

// Session is the server-side state of one login.
type Session struct {
	ID                string            `json:"id"`
	Username          string            `json:"username"`
	Role              Role              `json:"role"`
	CreatedAt         time.Time         `json:"created_at"`
	ExpiresAt         time.Time         `json:"expires_at"`
	ActiveFilters     ClientQuery       `json:"active_filters"`
	PendingEditTarget string            `json:"pending_edit_target,omitempty"`
	Messages          map[string]string `json:"messages,omitempty"`
}

// Actor returns the identity carried by the session.
func (s *Session) Actor() Actor {
	return Actor{Username: s.Username, Role: s.Role}
}

// CachedMessage returns the generated message kept for a client, if any.
func (s *Session) CachedMessage(clientID string) (string, bool) {
	msg, ok := s.Messages[clientID]
	return msg, ok
}

// RememberMessage keeps a generated message for the rest of the session.
func (s *Session) RememberMessage(clientID, message string) {
	if s.Messages == nil {
		s.Messages = make(map[string]string)
	}
	s.Messages[clientID] = message
}
