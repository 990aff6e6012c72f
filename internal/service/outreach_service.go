package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/crm-whatsapp/crm-service/internal/composer"
	"github.com/crm-whatsapp/crm-service/internal/domain"
	"github.com/crm-whatsapp/crm-service/internal/outreach"
	"github.com/crm-whatsapp/crm-service/internal/session"
	apperrors "github.com/crm-whatsapp/crm-service/pkg/util"
)

// OutreachService generates messages and WhatsApp links for a client.
type OutreachService struct {
	clients  *ClientService
	composer *composer.Composer
	links    *outreach.LinkBuilder
	sessions session.Store
	logger   *zap.Logger
}

// OutreachDependencies bundles requirements for the outreach service.
type OutreachDependencies struct {
	Clients  *ClientService
	Composer *composer.Composer
	Links    *outreach.LinkBuilder
	Sessions session.Store
	Logger   *zap.Logger
}

// OutreachLink is a deep link plus the message it carries.
type OutreachLink struct {
	URL      string
	Message  string
	Fallback bool
}

// NewOutreachService constructs the service.
func NewOutreachService(deps OutreachDependencies) *OutreachService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	links := deps.Links
	if links == nil {
		links = outreach.NewLinkBuilder("", "")
	}
	return &OutreachService{
		clients:  deps.Clients,
		composer: deps.Composer,
		links:    links,
		sessions: deps.Sessions,
		logger:   logger,
	}
}

// ComposeMessage generates a fresh message and keeps it on the session. The record is not modified.
func (s *OutreachService) ComposeMessage(ctx context.Context, sess *domain.Session, clientID string) (composer.Result, error) {
	client, err := s.clients.Get(ctx, sess.Actor(), clientID)
	if err != nil {
		return composer.Result{}, err
	}
	result := s.composer.Compose(ctx, client)
	s.remember(ctx, sess, clientID, result.Text)
	return result, nil
}

// Link builds the WhatsApp link for a client, composing a message first when the session has none.
func (s *OutreachService) Link(ctx context.Context, sess *domain.Session, clientID string) (*OutreachLink, error) {
	client, err := s.clients.Get(ctx, sess.Actor(), clientID)
	if err != nil {
		return nil, err
	}

	message, ok := sess.CachedMessage(clientID)
	fallback := false
	if !ok {
		result := s.composer.Compose(ctx, client)
		message, fallback = result.Text, result.Fallback
		s.remember(ctx, sess, clientID, message)
	} else {
		fallback = strings.HasPrefix(message, composer.FallbackMarker)
	}

	return &OutreachLink{
		URL:      s.links.Build(client.Phone, message),
		Message:  message,
		Fallback: fallback,
	}, nil
}

// SaveMessageToNotes appends a message to the record's notes. An empty text uses the message
// cached on the session.
func (s *OutreachService) SaveMessageToNotes(ctx context.Context, sess *domain.Session, clientID, text string) (*domain.Client, error) {
	if strings.TrimSpace(text) == "" {
		cached, ok := sess.CachedMessage(clientID)
		if !ok {
			return nil, apperrors.NewValidationError("no generated message for this client", map[string]any{"client_id": clientID})
		}
		text = cached
	}
	return s.clients.AppendNote(ctx, sess.Actor(), clientID, text)
}

func (s *OutreachService) remember(ctx context.Context, sess *domain.Session, clientID, message string) {
	sess.RememberMessage(clientID, message)
	if err := s.sessions.SetMessage(ctx, sess, clientID, message); err != nil {
		s.logger.Warn("session message not persisted", zap.String("session_id", sess.ID), zap.Error(err))
	}
}
