package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/contact-book/internal/apperr"
	"github.com/iliyamo/contact-book/internal/config"
	"github.com/iliyamo/contact-book/internal/handler"
	"github.com/iliyamo/contact-book/internal/metrics"
	"github.com/iliyamo/contact-book/internal/model"
	"github.com/iliyamo/contact-book/internal/service"
)

type denyAll struct{}

func (denyAll) ResolvePrincipal(context.Context, string) (*model.User, error) {
	return nil, apperr.Unauthenticated("could not validate credentials", nil)
}

func newEcho(t *testing.T) (*echo.Echo, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	e := echo.New()
	Common(e, zap.NewNop(), metrics.New(reg))
	RegisterRoutes(e, reg)

	rl := config.RateLimitConfig{Enabled: false}
	RegisterUsers(e, handler.NewUserHandler(service.NewUserService(nil, nil, nil)), denyAll{}, rl, nil, nil)
	RegisterContacts(e, handler.NewContactHandler(service.NewContactService(nil)), denyAll{}, rl, nil, nil)
	return e, reg
}

func serve(e *echo.Echo, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestPublicRoutes(t *testing.T) {
	e, _ := newEcho(t)

	rec := serve(e, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/").Code)

	rec = serve(e, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "contacts_http_requests_total")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e, _ := newEcho(t)
	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/api/users/me"},
		{http.MethodPatch, "/api/users/avatar"},
		{http.MethodGet, "/api/contacts"},
		{http.MethodGet, "/api/contacts/birthdays"},
		{http.MethodGet, "/api/contacts/1"},
		{http.MethodPost, "/api/contacts"},
		{http.MethodPatch, "/api/contacts/1"},
		{http.MethodDelete, "/api/contacts/1"},
	} {
		rec := serve(e, r.method, r.path)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, r.path)
		assert.Contains(t, rec.Body.String(), `"kind":"unauthenticated"`, r.path)
	}
}

func TestRecoverRendersInternalError(t *testing.T) {
	e, _ := newEcho(t)
	e.GET("/panic", func(echo.Context) error { panic("boom") })

	rec := serve(e, http.MethodGet, "/panic")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
