package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easyref/easyref-api/internal/api/handler"
	"github.com/easyref/easyref-api/internal/api/middleware"
	"github.com/easyref/easyref-api/internal/core/domain"
	"github.com/easyref/easyref-api/internal/core/ports"
)

const routerSecret = "router-test-secret"

type routerProfiles struct {
	ports.ProfileService
}

func (routerProfiles) Resolve(context.Context, string) (domain.Profile, error) {
	return domain.Profile{}, domain.ErrProfileNotFound
}

func (routerProfiles) UsernameAvailable(_ context.Context, username string) (bool, error) {
	return username != "taken", nil
}

func (routerProfiles) Public(_ context.Context, username, _, _ string) (domain.PublicProfile, error) {
	if username != "alice" {
		return domain.PublicProfile{}, domain.ErrProfileNotFound
	}
	return domain.PublicProfile{Username: "alice"}, nil
}

type denyList map[string]bool

func (d denyList) Allow(key string) bool { return !d[key] }

var (
	routerOnce sync.Once
	routerInst *echo.Echo
)

// testRouter builds the router once; the Prometheus middleware registers
// its collectors globally.
func testRouter(t *testing.T) *echo.Echo {
	t.Helper()
	routerOnce.Do(func() {
		v, err := middleware.NewTokenVerifier(middleware.AuthConfig{HMACSecret: routerSecret})
		require.NoError(t, err)
		routerInst = NewRouter(Deps{
			Profiles: routerProfiles{},
			Verifier: v,
			Limiter:  denyList{"203.0.113.9": true},
			Checks: map[string]handler.CheckFunc{
				"backend": func(context.Context) error { return nil },
			},
			Log: zerolog.Nop(),
		})
	})
	return routerInst
}

func serve(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, req)
	return rec
}

func signed(t *testing.T, subject string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	raw, err := tok.SignedString([]byte(routerSecret))
	require.NoError(t, err)
	return raw
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRouter_Health(t *testing.T) {
	rec := serve(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_RequestID(t *testing.T) {
	rec := serve(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 21)
}

func TestRouter_PublicRoutes(t *testing.T) {
	rec := serve(t, httptest.NewRequest(http.MethodGet, "/v1/usernames/Taken/availability", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"username":"taken","available":false}`, rec.Body.String())

	rec = serve(t, httptest.NewRequest(http.MethodGet, "/v1/profiles/ghost", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "profile_not_found", decodeError(t, rec).Code)
}

func TestRouter_PublicRoutesRateLimited(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/profiles/alice", nil)
	req.Header.Set(echo.HeaderXRealIP, "203.0.113.9")
	rec := serve(t, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/profiles/alice", nil)
	req.Header.Set(echo.HeaderXRealIP, "198.51.100.1")
	rec = serve(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_OwnerRoutesNeedToken(t *testing.T) {
	for _, path := range []string{"/v1/me", "/v1/me/theme", "/v1/me/referrals", "/v1/admin/profiles"} {
		rec := serve(t, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRouter_OwnerWithoutProfile(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+signed(t, "did:privy:new"))
	rec := serve(t, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "profile_not_found", decodeError(t, rec).Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	rec := serve(t, httptest.NewRequest(http.MethodGet, "/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decodeError(t, rec).Error)
}
