package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"rental-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestIDMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger.SetLogger(zap.New(core))
	defer logger.SetLogger(nil)

	e := echo.New()
	e.Use(RequestIDMiddleware)
	e.GET("/", func(c echo.Context) error {
		logger.FromEcho(c).Info("handled")
		return c.String(http.StatusOK, logger.RequestID(c))
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	id := rec.Header().Get(echo.HeaderXRequestID)
	require.NotEmpty(t, id)
	assert.Equal(t, id, rec.Body.String())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, id, logs.All()[0].ContextMap()["request_id"])

	e.GET("/ctx", func(c echo.Context) error {
		logger.FromContext(c.Request().Context()).Info("from request context")
		return c.NoContent(http.StatusNoContent)
	})
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ctx", nil))
	require.Equal(t, 2, logs.Len())
	assert.NotEmpty(t, logs.All()[1].ContextMap()["request_id"])

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "upstream-id")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-id", rec.Header().Get(echo.HeaderXRequestID))
}

func TestMetricsMiddlewarePassesThrough(t *testing.T) {
	e := echo.New()
	e.Use(MetricsMiddleware)
	e.GET("/rooms/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
