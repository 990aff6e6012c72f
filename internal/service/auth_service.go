package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/crm-whatsapp/crm-service/internal/auth"
	"github.com/crm-whatsapp/crm-service/internal/domain"
	"github.com/crm-whatsapp/crm-service/internal/events"
	"github.com/crm-whatsapp/crm-service/internal/repository"
	"github.com/crm-whatsapp/crm-service/internal/session"
	apperrors "github.com/crm-whatsapp/crm-service/pkg/util"
)

// AuthService coordinates login and logout flows.
type AuthService struct {
	operators  repository.OperatorRepository
	sessions   session.Store
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	now        func() time.Time
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	OperatorRepo repository.OperatorRepository
	Sessions     session.Store
	Tokens       *auth.TokenManager
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	BcryptCost   int
}

// LoginResult is returned by a successful Authenticate.
type LoginResult struct {
	Token    string
	Session  *domain.Session
	Operator *domain.Operator
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		operators:  deps.OperatorRepo,
		sessions:   deps.Sessions,
		tokenMgr:   deps.Tokens,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		bcryptCost: deps.BcryptCost,
		now:        time.Now,
	}
}

// Authenticate verifies credentials and opens a session. Unknown usernames, inactive accounts and
// wrong passwords all produce the same error.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, apperrors.NewInvalidCredentials()
	}

	op, err := s.operators.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewInvalidCredentials()
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !op.Active {
		return nil, apperrors.NewInvalidCredentials()
	}
	needsUpgrade, err := auth.VerifyPassword(op.PasswordHash, password)
	if err != nil {
		return nil, apperrors.NewInvalidCredentials()
	}
	if needsUpgrade {
		s.upgradePassword(ctx, op, password)
	}

	now := s.now().UTC()
	sess := &domain.Session{
		ID:        uuid.NewString(),
		Username:  op.Username,
		Role:      op.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.tokenMgr.TTL()),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	token, err := s.tokenMgr.GenerateToken(sess)
	if err != nil {
		_ = s.sessions.Delete(ctx, sess.ID)
		return nil, apperrors.NewInternalError(err)
	}

	publish(ctx, s.dispatcher, events.NewEvent(events.EventLogin, op.Username, op.Username, nil))
	return &LoginResult{Token: token, Session: sess, Operator: op}, nil
}

// Logout destroys the session. It always succeeds from the caller's point of view.
func (s *AuthService) Logout(ctx context.Context, sess *domain.Session) error {
	if sess == nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, sess.ID); err != nil {
		s.logger.Warn("session delete failed", zap.String("session_id", sess.ID), zap.Error(err))
	}
	publish(ctx, s.dispatcher, events.NewEvent(events.EventLogout, sess.Username, sess.Username, nil))
	return nil
}

func (s *AuthService) upgradePassword(ctx context.Context, op *domain.Operator, password string) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		s.logger.Warn("password rehash failed", zap.String("username", op.Username), zap.Error(err))
		return
	}
	op.PasswordHash = hash
	if err := s.operators.Update(ctx, op); err != nil {
		s.logger.Warn("password upgrade not persisted", zap.String("username", op.Username), zap.Error(err))
		return
	}
	s.logger.Info("legacy password digest upgraded", zap.String("username", op.Username))
}

func publish(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	_ = dispatcher.Publish(ctx, event)
}
