package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/crm-whatsapp/crm-service/internal/api/http/handlers"
	"github.com/crm-whatsapp/crm-service/internal/auth"
	"github.com/crm-whatsapp/crm-service/internal/cache"
	"github.com/crm-whatsapp/crm-service/internal/composer"
	"github.com/crm-whatsapp/crm-service/internal/domain"
	"github.com/crm-whatsapp/crm-service/internal/events"
	"github.com/crm-whatsapp/crm-service/internal/observability"
	"github.com/crm-whatsapp/crm-service/internal/outreach"
	"github.com/crm-whatsapp/crm-service/internal/repository/memory"
	"github.com/crm-whatsapp/crm-service/internal/service"
	"github.com/crm-whatsapp/crm-service/internal/session"
)

type testServer struct {
	app       *fiber.App
	operators *memory.OperatorRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	memCache := cache.NewRedisCache(rdb, "test", time.Minute)
	sessions := session.NewRedisStore(rdb, "test")
	operators := memory.NewOperatorRepository()
	clients := memory.NewClientRepository()
	activity := memory.NewActivityRepository()
	tokens := auth.NewTokenManager("secret", 60)

	dispatcher := events.NewInMemoryDispatcher(logger)
	service.NewActivityRecorder(dispatcher, activity, memCache, logger).RegisterHandlers()

	authSvc := service.NewAuthService(service.AuthDependencies{
		OperatorRepo: operators, Sessions: sessions, Tokens: tokens, Dispatcher: dispatcher, Logger: logger, BcryptCost: bcrypt.MinCost,
	})
	clientSvc := service.NewClientService(service.ClientDependencies{
		ClientRepo: clients, Cache: memCache, Dispatcher: dispatcher, Logger: logger,
	})
	outreachSvc := service.NewOutreachService(service.OutreachDependencies{
		Clients:  clientSvc,
		Composer: composer.New(nil, logger),
		Links:    outreach.NewLinkBuilder("", ""),
		Sessions: sessions,
		Logger:   logger,
	})
	opSvc := service.NewOperatorService(service.OperatorDependencies{
		OperatorRepo: operators, Cache: memCache, Dispatcher: dispatcher, Logger: logger, BcryptCost: bcrypt.MinCost, HardDelete: true,
	})
	_, err := opSvc.EnsureAdmin(context.Background(), "admin", "admin123")
	require.NoError(t, err)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, MiddlewareConfig{Timeout: 5 * time.Second})
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("crm", "test", map[string]handlers.Pinger{}, metrics),
		Auth:           handlers.NewAuthHandler(authSvc, service.NewSessionService(sessions, clientSvc)),
		Clients:        handlers.NewClientsHandler(clientSvc, outreachSvc),
		Operators:      handlers.NewOperatorsHandler(opSvc, service.NewActivityService(activity, memCache, logger)),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, sessions, operators),
	})
	return &testServer{app: app, operators: operators}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, status)
	var res struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return res.Token
}

func TestLoginFlow(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
	assert.Equal(t, "invalid credentials", env.Error.Message)

	token := s.login(t, "admin", "admin123")

	status, env = s.do(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, status)
	var me struct {
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "admin", me.Username)
	assert.Equal(t, "admin", me.Role)

	status, _ = s.do(t, http.MethodPost, "/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = s.do(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestClientEndpoints(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.login(t, "admin", "admin123")

	status, _ := s.do(t, http.MethodPost, "/operators", adminToken, map[string]string{"username": "ana", "password": "senha123"})
	require.Equal(t, http.StatusCreated, status)
	anaToken := s.login(t, "ana", "senha123")

	status, env := s.do(t, http.MethodPost, "/clients", anaToken, map[string]any{"name": "Maria", "phone": ""})
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.Contains(t, env.Error.Details, "phone")

	status, env = s.do(t, http.MethodPost, "/clients", anaToken, map[string]any{"name": "Maria", "phone": "(11) 98765-4321", "bank": "Itaú"})
	require.Equal(t, http.StatusCreated, status)
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Owner  string `json:"owner"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "em análise", created.Status)
	assert.Equal(t, "ana", created.Owner)

	status, env = s.do(t, http.MethodPatch, "/clients/"+created.ID, anaToken, map[string]any{"status": "fechado"})
	require.Equal(t, http.StatusOK, status)

	status, env = s.do(t, http.MethodGet, "/clients?status=fechado&q=mar", anaToken, nil)
	require.Equal(t, http.StatusOK, status)
	var list []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	status, env = s.do(t, http.MethodGet, "/clients/"+created.ID+"/whatsapp", anaToken, nil)
	require.Equal(t, http.StatusOK, status)
	var link struct {
		URL      string `json:"url"`
		Fallback bool   `json:"fallback"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &link))
	assert.True(t, link.Fallback)
	assert.Contains(t, link.URL, "https://web.whatsapp.com/send?phone=5511987654321&text=")

	status, _ = s.do(t, http.MethodGet, "/operators", anaToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = s.do(t, http.MethodGet, "/logs?limit=10", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	var logs []struct {
		Action string `json:"action"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &logs))
	require.NotEmpty(t, logs)
	assert.Equal(t, "Atualizou cliente Maria (status)", logs[0].Action)

	status, _ = s.do(t, http.MethodDelete, "/clients/"+created.ID, adminToken, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, env = s.do(t, http.MethodGet, "/clients/"+created.ID, anaToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDeactivatedOperatorIsLockedOut(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.login(t, "admin", "admin123")

	status, _ := s.do(t, http.MethodPost, "/operators", adminToken, map[string]string{"username": "bia", "password": "senha123"})
	require.Equal(t, http.StatusCreated, status)
	biaToken := s.login(t, "bia", "senha123")

	status, _ = s.do(t, http.MethodPatch, "/operators/bia", adminToken, map[string]any{"active": false})
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodGet, "/clients", biaToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "bia", "password": "senha123"})
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
}

func TestSessionFiltersDriveDefaultListing(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "admin", "admin123")

	for _, name := range []string{"Bruno", "Ana", "Carla"} {
		status, _ := s.do(t, http.MethodPost, "/clients", token, map[string]any{"name": name, "phone": "11"})
		require.Equal(t, http.StatusCreated, status)
	}

	status, _ := s.do(t, http.MethodPut, "/session/filters", token, map[string]any{"order": "name", "limit": 2})
	require.Equal(t, http.StatusOK, status)

	status, env := s.do(t, http.MethodGet, "/clients", token, nil)
	require.Equal(t, http.StatusOK, status)
	var list []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 2)
	assert.Equal(t, "Ana", list[0].Name)
	assert.Equal(t, "Bruno", list[1].Name)
}

func TestHealthAndMeta(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodGet, "/meta/statuses", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	token := s.login(t, "admin", "admin123")
	status, env := s.do(t, http.MethodGet, "/meta/statuses", token, nil)
	require.Equal(t, http.StatusOK, status)
	var meta struct {
		Statuses []struct {
			Value string `json:"value"`
		} `json:"statuses"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &meta))
	require.Len(t, meta.Statuses, len(domain.Statuses))
	assert.Equal(t, "em análise", meta.Statuses[0].Value)
}
