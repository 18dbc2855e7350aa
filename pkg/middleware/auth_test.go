package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dispatch-system/pkg/service"
)

func newProtectedEcho(t *testing.T) (*echo.Echo, service.JWTService) {
	t.Helper()
	jwtSvc := service.NewJWTService("secret", time.Hour, time.Hour)
	e := echo.New()
	mw := NewAuthMiddleware(jwtSvc, zap.NewNop())
	e.GET("/me", func(c echo.Context) error {
		actorID, role, err := ActorFromContext(c.Request().Context())
		if err != nil {
			return err
		}
		return c.String(http.StatusOK, actorID+"/"+role)
	}, mw.Auth)
	return e, jwtSvc
}

func TestAuth_InjectsActor(t *testing.T) {
	e, jwtSvc := newProtectedEcho(t)
	access, _, err := jwtSvc.GenerateTokens("tech-7", "technician")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tech-7/technician", rec.Body.String())
}

func TestAuth_RejectsMissingAndRefresh(t *testing.T) {
	e, jwtSvc := newProtectedEcho(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	_, refresh, err := jwtSvc.GenerateTokens("tech-7", "technician")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
