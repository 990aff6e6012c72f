package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crm-whatsapp/crm-service/internal/domain"
	"github.com/crm-whatsapp/crm-service/internal/repository/memory"
	"github.com/crm-whatsapp/crm-service/internal/session"
	apperrors "github.com/crm-whatsapp/crm-service/pkg/util"
)

type guardFixture struct {
	app       *fiber.App
	tokens    *TokenManager
	sessions  *session.RedisStore
	operators *memory.OperatorRepository
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := &guardFixture{
		tokens:    NewTokenManager("secret", 10),
		sessions:  session.NewRedisStore(rdb, "test"),
		operators: memory.NewOperatorRepository(),
	}
	mw := NewAuthMiddleware(f.tokens, f.sessions, f.operators)

	f.app = fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if de := apperrors.ToDomainError(err); de.Code != apperrors.CodeInternal {
				return c.Status(de.HTTPStatus).SendString(de.Code)
			}
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).SendString(fe.Message)
			}
			return c.SendStatus(http.StatusInternalServerError)
		},
	})
	f.app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		sess, ok := SessionFromContext(c)
		if !ok {
			return c.SendStatus(http.StatusInternalServerError)
		}
		return c.SendString(string(sess.Role))
	})
	f.app.Get("/admin", mw.Handle, RequireRole(domain.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return f
}

func (f *guardFixture) login(t *testing.T, username string, role domain.Role) string {
	t.Helper()
	ctx := context.Background()
	if _, err := f.operators.GetByUsername(ctx, username); err != nil {
		require.NoError(t, f.operators.Create(ctx, &domain.Operator{Username: username, Role: role, Active: true}))
	}
	now := time.Now()
	sess := &domain.Session{ID: username + "-sid", Username: username, Role: role, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, f.sessions.Save(ctx, sess))
	token, err := f.tokens.GenerateToken(sess)
	require.NoError(t, err)
	return token
}

func (f *guardFixture) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestAuthMiddleware_AcceptsLiveSession(t *testing.T) {
	f := newGuardFixture(t)
	token := f.login(t, "ana", domain.RoleOperator)

	resp := f.get(t, "/me", token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	f := newGuardFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.get(t, "/me", "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, f.get(t, "/me", "garbage").StatusCode)

	token := f.login(t, "bia", domain.RoleOperator)
	require.NoError(t, f.sessions.Delete(context.Background(), "bia-sid"))
	assert.Equal(t, http.StatusUnauthorized, f.get(t, "/me", token).StatusCode)
}

func TestAuthMiddleware_DeactivatedOperatorLosesAccess(t *testing.T) {
	f := newGuardFixture(t)
	ctx := context.Background()
	token := f.login(t, "caio", domain.RoleOperator)

	op, err := f.operators.GetByUsername(ctx, "caio")
	require.NoError(t, err)
	op.Active = false
	require.NoError(t, f.operators.Update(ctx, op))

	assert.Equal(t, http.StatusUnauthorized, f.get(t, "/me", token).StatusCode)
	_, err = f.sessions.Get(ctx, "caio-sid")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestRequireRole(t *testing.T) {
	f := newGuardFixture(t)
	ctx := context.Background()

	opToken := f.login(t, "dani", domain.RoleOperator)
	assert.Equal(t, http.StatusForbidden, f.get(t, "/admin", opToken).StatusCode)

	op, err := f.operators.GetByUsername(ctx, "dani")
	require.NoError(t, err)
	op.Role = domain.RoleAdmin
	require.NoError(t, f.operators.Update(ctx, op))

	assert.Equal(t, http.StatusNoContent, f.get(t, "/admin", opToken).StatusCode)
}

func TestCanMutate(t *testing.T) {
	record := &domain.Client{Owner: "ana"}
	assert.True(t, CanMutate(domain.Actor{Username: "ana", Role: domain.RoleOperator}, record))
	assert.False(t, CanMutate(domain.Actor{Username: "bia", Role: domain.RoleOperator}, record))
	assert.True(t, CanMutate(domain.Actor{Username: "root", Role: domain.RoleAdmin}, record))
	assert.False(t, CanMutate(domain.Actor{Username: "root", Role: domain.RoleAdmin}, nil))
}
