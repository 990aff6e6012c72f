package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/crm-whatsapp/crm-service/internal/auth"
	"github.com/crm-whatsapp/crm-service/internal/cache"
	"github.com/crm-whatsapp/crm-service/internal/domain"
	"github.com/crm-whatsapp/crm-service/internal/events"
	"github.com/crm-whatsapp/crm-service/internal/filter"
	"github.com/crm-whatsapp/crm-service/internal/repository"
	apperrors "github.com/crm-whatsapp/crm-service/pkg/util"
)

// ClientService coordinates client record workflows.
type ClientService struct {
	clients    repository.ClientRepository
	cache      cache.Cache
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// ClientDependencies bundles requirements for the client service.
type ClientDependencies struct {
	ClientRepo repository.ClientRepository
	Cache      cache.Cache
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// ClientCreateInput describes the create form.
type ClientCreateInput struct {
	Name         string
	Phone        string
	Document     string
	Bank         string
	ContractType string
	Status       domain.ClientStatus
	Notes        string
	Priority     *int
}

// ClientPatch carries the fields an update replaces. Nil fields are left untouched.
type ClientPatch struct {
	Name              *string
	Phone             *string
	Document          *string
	Bank              *string
	ContractType      *string
	Status            *domain.ClientStatus
	Notes             *string
	Priority          *int
	ClearPriority     bool
	ExpectedUpdatedAt *time.Time
}

// NewClientService constructs the service.
func NewClientService(deps ClientDependencies) *ClientService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientService{
		clients:    deps.ClientRepo,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Create validates and stores a new record owned by the actor.
func (s *ClientService) Create(ctx context.Context, actor domain.Actor, input ClientCreateInput) (*domain.Client, error) {
	client := &domain.Client{
		Name:         strings.TrimSpace(input.Name),
		Phone:        strings.TrimSpace(input.Phone),
		Document:     strings.TrimSpace(input.Document),
		Bank:         strings.TrimSpace(input.Bank),
		ContractType: strings.TrimSpace(input.ContractType),
		Status:       input.Status,
		Notes:        strings.TrimSpace(input.Notes),
		Owner:        actor.Username,
		Priority:     input.Priority,
	}
	if client.Status == "" {
		client.Status = domain.StatusEmAnalise
	}
	if err := validateClient(client); err != nil {
		return nil, err
	}

	if err := s.clients.Create(ctx, client); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.invalidate(ctx)
	publish(ctx, s.dispatcher, events.NewEvent(events.EventClientCreated, actor.Username, client.ID,
		events.ClientChangedPayload{Name: client.Name}))
	return client, nil
}

// List returns the actor's visible records narrowed by q. Admins see every record; everyone else
// only sees what they own, regardless of q.Owner.
func (s *ClientService) List(ctx context.Context, actor domain.Actor, q domain.ClientQuery) ([]domain.Client, error) {
	repoFilter := repository.ClientFilter{}
	key := "all"
	if !actor.IsAdmin() {
		owner := actor.Username
		repoFilter.Owner = &owner
		key = "owner:" + owner
	}

	records, err := cache.Remember(ctx, s.cache, s.logger, cache.ScopeClients, key,
		func(ctx context.Context) ([]domain.Client, error) {
			return s.clients.List(ctx, repoFilter)
		})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return filter.Apply(records, q), nil
}

// Get returns a record the actor may act on.
func (s *ClientService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Client, error) {
	client, err := s.clients.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("client", map[string]any{"id": id})
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !auth.CanMutate(actor, client) {
		return nil, apperrors.NewForbidden("client belongs to another operator")
	}
	return client, nil
}

// Update merges patch into the record.
func (s *ClientService) Update(ctx context.Context, actor domain.Actor, id string, patch ClientPatch) (*domain.Client, error) {
	client, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if patch.ExpectedUpdatedAt != nil && !client.UpdatedAt.Equal(*patch.ExpectedUpdatedAt) {
		return nil, apperrors.NewConflict("client was modified by someone else", map[string]any{"id": client.ID})
	}

	changed := applyPatch(client, patch)
	if err := validateClient(client); err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		return client, nil
	}

	if err := s.save(ctx, client, patch.ExpectedUpdatedAt); err != nil {
		return nil, err
	}
	publish(ctx, s.dispatcher, events.NewEvent(events.EventClientUpdated, actor.Username, client.ID,
		events.ClientChangedPayload{Name: client.Name, Fields: changed}))
	return client, nil
}

// MarkContacted stamps the record's last contact time.
func (s *ClientService) MarkContacted(ctx context.Context, actor domain.Actor, id string) (*domain.Client, error) {
	client, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	client.LastContactAt = &now

	if err := s.save(ctx, client, nil); err != nil {
		return nil, err
	}
	publish(ctx, s.dispatcher, events.NewEvent(events.EventClientContacted, actor.Username, client.ID,
		events.ClientChangedPayload{Name: client.Name, Fields: []string{"last_contact_at"}}))
	return client, nil
}

// AppendNote adds text to the record's notes as a new paragraph.
func (s *ClientService) AppendNote(ctx context.Context, actor domain.Actor, id, text string) (*domain.Client, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("note is empty", map[string]any{"field": "notes"})
	}
	client, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if client.Notes == "" {
		client.Notes = text
	} else {
		client.Notes = client.Notes + "\n\n" + text
	}

	if err := s.save(ctx, client, nil); err != nil {
		return nil, err
	}
	publish(ctx, s.dispatcher, events.NewEvent(events.EventMessageSaved, actor.Username, client.ID,
		events.ClientChangedPayload{Name: client.Name, Fields: []string{"notes"}}))
	return client, nil
}

// Delete removes the record permanently.
func (s *ClientService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	client, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.clients.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("client", map[string]any{"id": id})
		}
		return apperrors.NewInternalError(err)
	}
	s.invalidate(ctx)
	publish(ctx, s.dispatcher, events.NewEvent(events.EventClientDeleted, actor.Username, client.ID,
		events.ClientChangedPayload{Name: client.Name}))
	return nil
}

func (s *ClientService) save(ctx context.Context, client *domain.Client, expected *time.Time) error {
	if err := s.clients.Update(ctx, client, expected); err != nil {
		switch {
		case errors.Is(err, repository.ErrStale):
			return apperrors.NewConflict("client was modified by someone else", map[string]any{"id": client.ID})
		case errors.Is(err, pgx.ErrNoRows):
			return apperrors.NewNotFound("client", map[string]any{"id": client.ID})
		default:
			return apperrors.NewInternalError(err)
		}
	}
	s.invalidate(ctx)
	return nil
}

func (s *ClientService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cache.ScopeClients); err != nil {
		s.logger.Error("client cache invalidation failed", zap.Error(err))
	}
}

func validateClient(client *domain.Client) error {
	details := map[string]any{}
	if client.Name == "" {
		details["name"] = "required"
	}
	if client.Phone == "" {
		details["phone"] = "required"
	}
	if !client.Status.Valid() {
		details["status"] = "unknown status"
	}
	if p := client.Priority; p != nil && (*p < domain.MinPriority || *p > domain.MaxPriority) {
		details["priority"] = "must be between 1 and 3"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid client", details)
	}
	return nil
}

func applyPatch(client *domain.Client, patch ClientPatch) []string {
	var changed []string
	setString := func(field string, dst *string, val *string) {
		if val == nil {
			return
		}
		trimmed := strings.TrimSpace(*val)
		if trimmed != *dst {
			*dst = trimmed
			changed = append(changed, field)
		}
	}

	setString("name", &client.Name, patch.Name)
	setString("phone", &client.Phone, patch.Phone)
	setString("document", &client.Document, patch.Document)
	setString("bank", &client.Bank, patch.Bank)
	setString("contract_type", &client.ContractType, patch.ContractType)
	if patch.Status != nil && *patch.Status != client.Status {
		client.Status = *patch.Status
		changed = append(changed, "status")
	}
	setString("notes", &client.Notes, patch.Notes)

	switch {
	case patch.ClearPriority:
		if client.Priority != nil {
			client.Priority = nil
			changed = append(changed, "priority")
		}
	case patch.Priority != nil:
		if client.Priority == nil || *client.Priority != *patch.Priority {
			p := *patch.Priority
			client.Priority = &p
			changed = append(changed, "priority")
		}
	}
	return changed
}
