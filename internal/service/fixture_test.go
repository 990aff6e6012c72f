package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/crm-whatsapp/crm-service/internal/auth"
	"github.com/crm-whatsapp/crm-service/internal/cache"
	"github.com/crm-whatsapp/crm-service/internal/composer"
	"github.com/crm-whatsapp/crm-service/internal/domain"
	"github.com/crm-whatsapp/crm-service/internal/events"
	"github.com/crm-whatsapp/crm-service/internal/llm"
	"github.com/crm-whatsapp/crm-service/internal/outreach"
	"github.com/crm-whatsapp/crm-service/internal/repository/memory"
	"github.com/crm-whatsapp/crm-service/internal/session"
)

var (
	admin = domain.Actor{Username: "admin", Role: domain.RoleAdmin}
	ana   = domain.Actor{Username: "ana", Role: domain.RoleOperator}
	bia   = domain.Actor{Username: "bia", Role: domain.RoleOperator}
)

type stubGenerator struct {
	text  string
	err   error
	calls int
}

func (g *stubGenerator) Complete(context.Context, llm.Request) (string, error) {
	g.calls++
	return g.text, g.err
}

type fixture struct {
	redis     *miniredis.Miniredis
	cache     *cache.RedisCache
	sessions  *session.RedisStore
	operators *memory.OperatorRepository
	clients   *memory.ClientRepository
	activity  *memory.ActivityRepository
	generator *stubGenerator

	auth      *AuthService
	clientSvc *ClientService
	sessSvc   *SessionService
	outreach  *OutreachService
	opSvc     *OperatorService
	actSvc    *ActivityService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := zap.NewNop()
	f := &fixture{
		redis:     mr,
		cache:     cache.NewRedisCache(rdb, "test", time.Minute),
		sessions:  session.NewRedisStore(rdb, "test"),
		operators: memory.NewOperatorRepository(),
		clients:   memory.NewClientRepository(),
		activity:  memory.NewActivityRepository(),
		generator: &stubGenerator{text: "Olá! Seu contrato foi atualizado."},
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	NewActivityRecorder(dispatcher, f.activity, f.cache, logger).RegisterHandlers()

	f.auth = NewAuthService(AuthDependencies{
		OperatorRepo: f.operators,
		Sessions:     f.sessions,
		Tokens:       auth.NewTokenManager("secret", 60),
		Dispatcher:   dispatcher,
		Logger:       logger,
		BcryptCost:   bcrypt.MinCost,
	})
	f.clientSvc = NewClientService(ClientDependencies{
		ClientRepo: f.clients,
		Cache:      f.cache,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	f.sessSvc = NewSessionService(f.sessions, f.clientSvc)
	f.outreach = NewOutreachService(OutreachDependencies{
		Clients:  f.clientSvc,
		Composer: composer.New(f.generator, logger),
		Links:    outreach.NewLinkBuilder("", ""),
		Sessions: f.sessions,
		Logger:   logger,
	})
	f.opSvc = NewOperatorService(OperatorDependencies{
		OperatorRepo: f.operators,
		Cache:        f.cache,
		Dispatcher:   dispatcher,
		Logger:       logger,
		BcryptCost:   bcrypt.MinCost,
		HardDelete:   true,
	})
	f.actSvc = NewActivityService(f.activity, f.cache, logger)
	return f
}

func (f *fixture) addOperator(t *testing.T, username, password string, role domain.Role, active bool) {
	t.Helper()
	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, f.operators.Create(context.Background(), &domain.Operator{
		Username: username, PasswordHash: hash, Role: role, Active: active,
	}))
}

func (f *fixture) addClient(t *testing.T, actor domain.Actor, name, phone string) *domain.Client {
	t.Helper()
	c, err := f.clientSvc.Create(context.Background(), actor, ClientCreateInput{Name: name, Phone: phone})
	require.NoError(t, err)
	return c
}

func (f *fixture) newSession(t *testing.T, actor domain.Actor) *domain.Session {
	t.Helper()
	now := time.Now()
	sess := &domain.Session{ID: actor.Username + "-sid", Username: actor.Username, Role: actor.Role, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, f.sessions.Save(context.Background(), sess))
	return sess
}

func ptr[T any](v T) *T {
	return &v
}
