package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/crm-whatsapp/crm-service/internal/cache"
	"github.com/crm-whatsapp/crm-service/internal/domain"
	"github.com/crm-whatsapp/crm-service/internal/events"
	"github.com/crm-whatsapp/crm-service/internal/repository"
)

// ActivityRecorder turns domain events into audit log entries.
type ActivityRecorder struct {
	dispatcher events.Dispatcher
	entries    repository.ActivityRepository
	cache      cache.Cache
	logger     *zap.Logger
}

// NewActivityRecorder creates the recorder.
func NewActivityRecorder(dispatcher events.Dispatcher, entries repository.ActivityRepository, c cache.Cache, logger *zap.Logger) *ActivityRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityRecorder{
		dispatcher: dispatcher,
		entries:    entries,
		cache:      c,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (r *ActivityRecorder) RegisterHandlers() {
	if r.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventLogin,
		events.EventLogout,
		events.EventClientCreated,
		events.EventClientUpdated,
		events.EventClientDeleted,
		events.EventClientContacted,
		events.EventMessageSaved,
		events.EventOperatorCreated,
		events.EventOperatorUpdated,
		events.EventOperatorDeleted,
	} {
		r.dispatcher.Subscribe(eventType, r.record)
	}
}

// record appends one entry. A failure is returned to the dispatcher, which logs it.
func (r *ActivityRecorder) record(ctx context.Context, event events.Event) error {
	entry := &domain.LogEntry{Username: event.Actor, Action: Describe(event)}
	if err := r.entries.Append(ctx, entry); err != nil {
		return fmt.Errorf("append activity %q: %w", entry.Action, err)
	}
	if r.cache != nil {
		if err := r.cache.Invalidate(ctx, cache.ScopeActivity); err != nil {
			r.logger.Error("activity cache invalidation failed", zap.Error(err))
		}
	}
	r.logger.Debug("activity recorded",
		zap.String("event_type", string(event.Type)),
		zap.String("username", event.Actor))
	return nil
}

// Describe renders the human-readable action text of an event.
func Describe(event events.Event) string {
	switch event.Type {
	case events.EventLogin:
		return "Login"
	case events.EventLogout:
		return "Logout"
	}

	switch p := event.Payload.(type) {
	case events.ClientChangedPayload:
		switch event.Type {
		case events.EventClientCreated:
			return "Adicionou cliente " + p.Name
		case events.EventClientUpdated:
			return fmt.Sprintf("Atualizou cliente %s (%s)", p.Name, strings.Join(p.Fields, ", "))
		case events.EventClientDeleted:
			return "Excluiu cliente " + p.Name
		case events.EventClientContacted:
			return "Registrou contato com cliente " + p.Name
		case events.EventMessageSaved:
			return "Salvou mensagem nas observações do cliente " + p.Name
		}
	case events.OperatorChangedPayload:
		switch event.Type {
		case events.EventOperatorCreated:
			return fmt.Sprintf("Criou usuário %s (%s)", event.Subject, p.Role)
		case events.EventOperatorUpdated:
			return fmt.Sprintf("Atualizou usuário %s (%s)", event.Subject, strings.Join(p.Fields, ", "))
		case events.EventOperatorDeleted:
			if p.Deactivated {
				return "Desativou usuário " + event.Subject
			}
			return "Excluiu usuário " + event.Subject
		}
	}
	return fmt.Sprintf("%s %s", event.Type, event.Subject)
}
