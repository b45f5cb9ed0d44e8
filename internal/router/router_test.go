package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/dormboard/internal/utils"
)

const secret = "router-secret"

func newEcho() *echo.Echo {
	e := echo.New()
	RegisterAll(e, Handlers{}, Deps{JWTSecret: secret, Log: zap.NewNop()})
	return e
}

func call(t *testing.T, e *echo.Echo, method, path, role string) int {
	req := httptest.NewRequest(method, path, nil)
	if role != "" {
		tok, err := utils.NewAccessToken(secret, 42, role, 5)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok.Token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestRoutesRegistered(t *testing.T) {
	e := newEcho()
	have := map[string]bool{}
	for _, r := range e.Routes() {
		have[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"POST /v1/auth/signup",
		"POST /v1/auth/login",
		"GET /v1/invite-codes/validate/:code",
		"GET /v1/me",
		"POST /v1/buildings/:id/messages",
		"POST /v1/emergencies",
		"POST /v1/emergencies/:id/verify",
		"POST /v1/invite-codes/:id/deactivate",
		"DELETE /v1/pinned/:id",
		"GET /v1/buildings",
		"POST /v1/admin/ras",
	} {
		assert.True(t, have[want], want)
	}
}

func TestRoleGates(t *testing.T) {
	e := newEcho()

	assert.Equal(t, http.StatusUnauthorized, call(t, e, http.MethodGet, "/v1/me", ""))
	assert.Equal(t, http.StatusForbidden, call(t, e, http.MethodGet, "/v1/emergencies", "student"))
	assert.Equal(t, http.StatusForbidden, call(t, e, http.MethodPost, "/v1/emergencies/5/verify", "student"))
	assert.Equal(t, http.StatusForbidden, call(t, e, http.MethodGet, "/v1/buildings", "RA"))
	assert.Equal(t, http.StatusForbidden, call(t, e, http.MethodPost, "/v1/admin/ras", "RA"))
	assert.Equal(t, http.StatusForbidden, call(t, e, http.MethodGet, "/v1/me", "superuser"))
}
