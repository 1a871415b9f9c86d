package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(&LogConfig{Level: "debug", Environment: "production", ServiceName: "rental-service"}))
	assert.NotNil(t, GetLogger())
	require.NoError(t, InitLogger(&LogConfig{Level: "bogus", Environment: "development", ServiceName: "rental-service"}))
	assert.NotNil(t, GetLogger())
	SetLogger(nil)
}

func TestContextRoundTrip(t *testing.T) {
	core, _ := observer.New(zap.InfoLevel)
	l := zap.New(core)

	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
	assert.Same(t, GetLogger(), FromContext(context.Background()))
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	e := echo.New()
	e.Use(AccessLog(time.UTC))
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "HTTP Request", entry.Message)
	assert.Equal(t, int64(http.StatusOK), entry.ContextMap()["status"])
}
