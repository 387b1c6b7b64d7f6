package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/access-token-service/internal/api/http/handlers"
	"github.com/spec-kit/access-token-service/internal/auth"
	"github.com/spec-kit/access-token-service/internal/auth/token"
	"github.com/spec-kit/access-token-service/internal/config"
	"github.com/spec-kit/access-token-service/internal/domain"
	"github.com/spec-kit/access-token-service/internal/observability"
	"github.com/spec-kit/access-token-service/internal/persistence"
	"github.com/spec-kit/access-token-service/internal/ratelimit"
	"github.com/spec-kit/access-token-service/internal/repository"
	"github.com/spec-kit/access-token-service/internal/service"
)

type testServer struct {
	app    *fiber.App
	tokens *token.Provider
	redis  *miniredis.Miniredis
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := zap.NewNop()
	tokens, err := token.NewProvider(token.Options{
		SigningKey:      []byte("router-test-key"),
		TTL:             time.Minute,
		IdentifierClaim: "id",
	}, token.WithLogger(logger))
	require.NoError(t, err)

	authService, err := service.NewAuthService(config.AuthConfig{
		BcryptCost:       4,
		DefaultAbilities: []string{token.AbilityAll},
	}, service.AuthDependencies{
		UserRepo: repository.NewMemoryUserRepository(),
		Tokens:   tokens,
		Limiter:  ratelimit.NewLoginLimiter(client, 3, time.Minute, logger),
		Logger:   logger,
	})
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	health := handlers.NewHealthHandler("access-token-service", "test",
		&persistence.Postgres{}, persistence.NewRedisFromClient(client), metrics)
	onReject := func(c *fiber.Ctx) {
		authService.TokenRejected(c.UserContext(), c.Method(), c.Path(), c.IP())
	}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         health,
		Users:          handlers.NewUsersHandler(authService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, onReject),
	})

	return &testServer{app: app, tokens: tokens, redis: mr}
}

func (s *testServer) do(t *testing.T, method, path, body, bearer string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, decoded
}

func errorOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %v", body)
	return errBody
}

func (s *testServer) registerAndLogin(t *testing.T, email string) string {
	t.Helper()

	status, _ := s.do(t, http.MethodPost, "/user", `{"fullName":"Test User","email":"`+email+`","password":"password123"}`, "")
	require.Equal(t, http.StatusCreated, status)

	status, body := s.do(t, http.MethodPost, "/user/login", `{"email":"`+email+`","password":"password123"}`, "")
	require.Equal(t, http.StatusOK, status)
	authBody := body["data"].(map[string]any)["auth"].(map[string]any)
	return authBody["token"].(string)
}

func TestRoutes_RegisterLoginAndMe(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/user", `{"fullName":"Ada","email":"ada@example.com","password":"password123"}`, "")
	require.Equal(t, http.StatusCreated, status)
	user := body["data"].(map[string]any)
	assert.Equal(t, float64(1), user["id"])
	assert.Equal(t, "ada@example.com", user["email"])
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "passwordHash")

	status, body = s.do(t, http.MethodPost, "/user/login", `{"email":"ada@example.com","password":"password123"}`, "")
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	authBody := data["auth"].(map[string]any)
	assert.Equal(t, "bearer", authBody["type"])
	assert.Equal(t, []any{"*"}, authBody["abilities"])
	raw, ok := authBody["token"].(string)
	require.True(t, ok)
	assert.Len(t, strings.Split(raw, "."), 3)

	status, body = s.do(t, http.MethodGet, "/user", "", raw)
	require.Equal(t, http.StatusOK, status)
	me := body["data"].(map[string]any)
	assert.Equal(t, "ada@example.com", me["user"].(map[string]any)["email"])

	descriptor := me["token"].(map[string]any)
	assert.Equal(t, "bearer/jwt", descriptor["type"])
	assert.Equal(t, float64(1), descriptor["identifier"])
	encoded, err := json.Marshal(descriptor)
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), raw)
}

func TestRoutes_RegisterValidation(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/user", `{"email":"not-an-email","password":"short"}`, "")
	require.Equal(t, http.StatusBadRequest, status)
	errBody := errorOf(t, body)
	assert.Equal(t, "VALIDATION_FAILED", errBody["code"])
	details := errBody["details"].(map[string]any)
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")

	status, body = s.do(t, http.MethodPost, "/user", `{`, "")
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid payload", errorOf(t, body)["message"])
}

func TestRoutes_RegisterDuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	payload := `{"email":"dup@example.com","password":"password123"}`

	status, _ := s.do(t, http.MethodPost, "/user", payload, "")
	require.Equal(t, http.StatusCreated, status)

	status, body := s.do(t, http.MethodPost, "/user", payload, "")
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorOf(t, body)["code"])
}

func TestRoutes_LoginWrongPassword(t *testing.T) {
	s := newTestServer(t)
	s.registerAndLogin(t, "grace@example.com")

	status, body := s.do(t, http.MethodPost, "/user/login", `{"email":"grace@example.com","password":"nope-nope"}`, "")
	require.Equal(t, http.StatusUnauthorized, status)
	errBody := errorOf(t, body)
	assert.Equal(t, "UNAUTHORIZED", errBody["code"])
	assert.Equal(t, "invalid credentials", errBody["message"])
}

func TestRoutes_LoginRateLimited(t *testing.T) {
	s := newTestServer(t)
	payload := `{"email":"nobody@example.com","password":"password123"}`

	for i := 0; i < 3; i++ {
		status, _ := s.do(t, http.MethodPost, "/user/login", payload, "")
		require.Equal(t, http.StatusUnauthorized, status)
	}

	status, body := s.do(t, http.MethodPost, "/user/login", payload, "")
	require.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "TOO_MANY_REQUESTS", errorOf(t, body)["code"])
}

func TestRoutes_MeRejectsBadTokens(t *testing.T) {
	s := newTestServer(t)
	raw := s.registerAndLogin(t, "linus@example.com")

	unknown, err := s.tokens.Issue(token.IntID(404), []string{domain.AbilityReadProfile})
	require.NoError(t, err)
	foreign, err := token.NewProvider(token.Options{
		SigningKey:      []byte("another-key"),
		TTL:             time.Minute,
		IdentifierClaim: "id",
	})
	require.NoError(t, err)
	forged, err := foreign.Issue(token.IntID(1), nil)
	require.NoError(t, err)

	cases := []struct {
		name    string
		bearer  string
		message string
	}{
		{"missing header", "", "missing authorization header"},
		{"garbage", "not-a-jwt", "invalid token"},
		{"tampered", raw[:len(raw)-2] + "xx", "invalid token"},
		{"foreign key", forged.Value().Release(), "invalid token"},
		{"unknown subject", unknown.Value().Release(), "invalid token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := s.do(t, http.MethodGet, "/user", "", tc.bearer)
			require.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, tc.message, errorOf(t, body)["message"])
		})
	}
}

func TestRoutes_MeRequiresReadAbility(t *testing.T) {
	s := newTestServer(t)
	s.registerAndLogin(t, "scoped@example.com")

	scoped, err := s.tokens.Issue(token.IntID(1), []string{"posts:read"})
	require.NoError(t, err)
	status, body := s.do(t, http.MethodGet, "/user", "", scoped.Value().Release())
	require.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorOf(t, body)["code"])

	unscoped, err := s.tokens.Issue(token.IntID(1), nil)
	require.NoError(t, err)
	status, _ = s.do(t, http.MethodGet, "/user", "", unscoped.Value().Release())
	assert.Equal(t, http.StatusForbidden, status)

	reader, err := s.tokens.Issue(token.IntID(1), []string{domain.AbilityReadProfile})
	require.NoError(t, err)
	status, body = s.do(t, http.MethodGet, "/user", "", reader.Value().Release())
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "scoped@example.com", body["data"].(map[string]any)["user"].(map[string]any)["email"])
}

func TestRoutes_NotFound(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/nope", "", "")
	require.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorOf(t, body)["code"])
}

func TestRoutes_Health(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/health/live", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = s.do(t, http.MethodGet, "/health/ready", "", "")
	require.Equal(t, http.StatusOK, status)
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "disabled", deps["postgres"])
	assert.Equal(t, "ok", deps["redis"])

	s.redis.Close()
	status, body = s.do(t, http.MethodGet, "/health/ready", "", "")
	require.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", errorOf(t, body)["code"])
}

func TestRoutes_MetricsCountRequests(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/health/live", "", "")
	s.do(t, http.MethodGet, "/user", "", "")

	status, body := s.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, status)
	requests := body["requests"].(map[string]any)
	assert.Equal(t, float64(1), requests["/health/live|GET|200"])
	assert.Contains(t, body["avg_latency_ms"], "/health/live|GET|200")
	errs := body["errors"].(map[string]any)
	assert.Equal(t, float64(1), errs["/user|GET|UNAUTHORIZED"])
}
