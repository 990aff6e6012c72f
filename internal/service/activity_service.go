package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crm-whatsapp/crm-service/internal/cache"
	"github.com/crm-whatsapp/crm-service/internal/domain"
	"github.com/crm-whatsapp/crm-service/internal/repository"
	apperrors "github.com/crm-whatsapp/crm-service/pkg/util"
)

// Activity view limits.
const (
	DefaultActivityLimit = 100
	MaxActivityLimit     = 500
)

// ActivityService reads the audit log.
type ActivityService struct {
	entries repository.ActivityRepository
	cache   cache.Cache
	logger  *zap.Logger
}

// NewActivityService constructs the service.
func NewActivityService(entries repository.ActivityRepository, c cache.Cache, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{entries: entries, cache: c, logger: logger}
}

// List returns the most recent entries first. Admin only.
func (s *ActivityService) List(ctx context.Context, actor domain.Actor, limit int) ([]domain.LogEntry, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("admin role required")
	}
	switch {
	case limit <= 0:
		limit = DefaultActivityLimit
	case limit > MaxActivityLimit:
		limit = MaxActivityLimit
	}

	entries, err := cache.Remember(ctx, s.cache, s.logger, cache.ScopeActivity, fmt.Sprintf("recent:%d", limit),
		func(ctx context.Context) ([]domain.LogEntry, error) {
			return s.entries.ListRecent(ctx, limit)
		})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return entries, nil
}
