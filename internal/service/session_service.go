package service

import (
	"context"
	"strings"

	"github.com/crm-whatsapp/crm-service/internal/domain"
	"github.com/crm-whatsapp/crm-service/internal/filter"
	"github.com/crm-whatsapp/crm-service/internal/session"
	apperrors "github.com/crm-whatsapp/crm-service/pkg/util"
)

// SessionService edits the UI state kept on a session.
type SessionService struct {
	sessions session.Store
	clients  *ClientService
}

// NewSessionService constructs the service.
func NewSessionService(sessions session.Store, clients *ClientService) *SessionService {
	return &SessionService{sessions: sessions, clients: clients}
}

// SetFilters replaces the session's active board filters.
func (s *SessionService) SetFilters(ctx context.Context, sess *domain.Session, q domain.ClientQuery) (*domain.Session, error) {
	q.Search = strings.TrimSpace(q.Search)
	if q.Status != "" && !filter.IsAll(q.Status) && !domain.ClientStatus(q.Status).Valid() {
		return nil, apperrors.NewValidationError("invalid filters", map[string]any{"status": "unknown status"})
	}
	if q.Limit < 0 {
		return nil, apperrors.NewValidationError("invalid filters", map[string]any{"limit": "must not be negative"})
	}
	q.Order = filter.NormalizeOrder(q.Order)

	if err := s.sessions.SetFilters(ctx, sess, q); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	sess.ActiveFilters = q
	return sess, nil
}

// SetEditTarget records which client the edit form is open for. An empty id clears it.
func (s *SessionService) SetEditTarget(ctx context.Context, sess *domain.Session, clientID string) (*domain.Session, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID != "" {
		if _, err := s.clients.Get(ctx, sess.Actor(), clientID); err != nil {
			return nil, err
		}
	}
	if err := s.sessions.SetEditTarget(ctx, sess, clientID); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	sess.PendingEditTarget = clientID
	return sess, nil
}
