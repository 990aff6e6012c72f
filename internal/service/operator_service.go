package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/crm-whatsapp/crm-service/internal/auth"
	"github.com/crm-whatsapp/crm-service/internal/cache"
	"github.com/crm-whatsapp/crm-service/internal/domain"
	"github.com/crm-whatsapp/crm-service/internal/events"
	"github.com/crm-whatsapp/crm-service/internal/repository"
	apperrors "github.com/crm-whatsapp/crm-service/pkg/util"
)

const minPasswordLength = 4

// OperatorService manages dashboard accounts. Every operation requires an admin actor.
type OperatorService struct {
	operators  repository.OperatorRepository
	cache      cache.Cache
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	hardDelete bool
}

// OperatorDependencies bundles requirements for the operator service.
type OperatorDependencies struct {
	OperatorRepo repository.OperatorRepository
	Cache        cache.Cache
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	BcryptCost   int
	HardDelete   bool
}

// OperatorCreateInput describes a new account.
type OperatorCreateInput struct {
	Username string
	Password string
	Role     domain.Role
}

// OperatorPatch carries account changes. Nil fields are left untouched.
type OperatorPatch struct {
	Role     *domain.Role
	Active   *bool
	Password *string
}

// NewOperatorService constructs the service.
func NewOperatorService(deps OperatorDependencies) *OperatorService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OperatorService{
		operators:  deps.OperatorRepo,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		bcryptCost: deps.BcryptCost,
		hardDelete: deps.HardDelete,
	}
}

// Create adds an account.
func (s *OperatorService) Create(ctx context.Context, actor domain.Actor, input OperatorCreateInput) (*domain.Operator, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("admin role required")
	}
	op, err := s.create(ctx, input)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.dispatcher, events.NewEvent(events.EventOperatorCreated, actor.Username, op.Username,
		events.OperatorChangedPayload{Role: string(op.Role)}))
	return op, nil
}

// EnsureAdmin creates an admin account when the store has no accounts at all.
// It reports whether an account was created.
func (s *OperatorService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	count, err := s.operators.Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if _, err := s.create(ctx, OperatorCreateInput{Username: username, Password: password, Role: domain.RoleAdmin}); err != nil {
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			return false, nil
		}
		return false, err
	}
	s.logger.Info("bootstrap admin created", zap.String("username", username))
	return true, nil
}

// List returns every account ordered by username.
func (s *OperatorService) List(ctx context.Context, actor domain.Actor) ([]domain.Operator, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("admin role required")
	}
	ops, err := cache.Remember(ctx, s.cache, s.logger, cache.ScopeOperators, "all", s.operators.List)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return ops, nil
}

// Update changes role, active flag or password. Admins cannot demote or deactivate themselves.
func (s *OperatorService) Update(ctx context.Context, actor domain.Actor, username string, patch OperatorPatch) (*domain.Operator, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("admin role required")
	}
	op, err := s.get(ctx, username)
	if err != nil {
		return nil, err
	}

	var changed []string
	if patch.Role != nil && *patch.Role != op.Role {
		if !patch.Role.Valid() {
			return nil, apperrors.NewValidationError("invalid operator", map[string]any{"role": "unknown role"})
		}
		if username == actor.Username {
			return nil, apperrors.NewConflict("admins cannot change their own role", nil)
		}
		op.Role = *patch.Role
		changed = append(changed, "role")
	}
	if patch.Active != nil && *patch.Active != op.Active {
		if username == actor.Username && !*patch.Active {
			return nil, apperrors.NewConflict("admins cannot deactivate themselves", nil)
		}
		op.Active = *patch.Active
		changed = append(changed, "active")
	}
	if patch.Password != nil {
		hash, err := s.hash(*patch.Password)
		if err != nil {
			return nil, err
		}
		op.PasswordHash = hash
		changed = append(changed, "password")
	}
	if len(changed) == 0 {
		return op, nil
	}

	if err := s.operators.Update(ctx, op); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("operator", map[string]any{"username": username})
		}
		return nil, apperrors.NewInternalError(err)
	}
	s.invalidate(ctx)
	publish(ctx, s.dispatcher, events.NewEvent(events.EventOperatorUpdated, actor.Username, op.Username,
		events.OperatorChangedPayload{Role: string(op.Role), Fields: changed}))
	return op, nil
}

// Delete removes the account, or deactivates it when hard deletion is disabled.
func (s *OperatorService) Delete(ctx context.Context, actor domain.Actor, username string) error {
	if !actor.IsAdmin() {
		return apperrors.NewForbidden("admin role required")
	}
	if username == actor.Username {
		return apperrors.NewConflict("admins cannot delete themselves", nil)
	}
	op, err := s.get(ctx, username)
	if err != nil {
		return err
	}

	if s.hardDelete {
		err = s.operators.Delete(ctx, username)
	} else {
		op.Active = false
		err = s.operators.Update(ctx, op)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("operator", map[string]any{"username": username})
		}
		return apperrors.NewInternalError(err)
	}
	s.invalidate(ctx)
	publish(ctx, s.dispatcher, events.NewEvent(events.EventOperatorDeleted, actor.Username, username,
		events.OperatorChangedPayload{Deactivated: !s.hardDelete}))
	return nil
}

func (s *OperatorService) create(ctx context.Context, input OperatorCreateInput) (*domain.Operator, error) {
	username := strings.TrimSpace(input.Username)
	role := input.Role
	if role == "" {
		role = domain.RoleOperator
	}

	details := map[string]any{}
	if username == "" {
		details["username"] = "required"
	}
	if !role.Valid() {
		details["role"] = "unknown role"
	}
	if len(input.Password) < minPasswordLength {
		details["password"] = "too short"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid operator", details)
	}

	hash, err := s.hash(input.Password)
	if err != nil {
		return nil, err
	}
	op := &domain.Operator{Username: username, PasswordHash: hash, Role: role, Active: true}
	if err := s.operators.Create(ctx, op); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("username already taken", map[string]any{"username": username})
		}
		return nil, apperrors.NewInternalError(err)
	}
	s.invalidate(ctx)
	return op, nil
}

func (s *OperatorService) get(ctx context.Context, username string) (*domain.Operator, error) {
	op, err := s.operators.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("operator", map[string]any{"username": username})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return op, nil
}

func (s *OperatorService) hash(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", apperrors.NewValidationError("invalid operator", map[string]any{"password": "too short"})
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return hash, nil
}

func (s *OperatorService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cache.ScopeOperators); err != nil {
		s.logger.Error("operator cache invalidation failed", zap.Error(err))
	}
}
