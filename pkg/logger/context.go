package logger

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ctxKey struct{}

// Keys under which the request middleware stores values in echo.Context
const (
	EchoLoggerKey    = "logger"
	EchoRequestIDKey = "request_id"
)

// Attach derives a logger tagged with requestID and stores it on both the
// Echo context and the request context, so services called with
// c.Request().Context() log under the same ID.
func Attach(c echo.Context, requestID string) *zap.Logger {
	l := GetLogger().With(zap.String("request_id", requestID))
	c.Set(EchoRequestIDKey, requestID)
	c.Set(EchoLoggerKey, l)
	c.SetRequest(c.Request().WithContext(WithContext(c.Request().Context(), l)))
	return l
}

// FromContext returns the request logger in ctx or the global one
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return GetLogger()
}

// WithContext stores l in ctx
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromEcho returns the request logger of c or the global one
func FromEcho(c echo.Context) *zap.Logger {
	if l, ok := c.Get(EchoLoggerKey).(*zap.Logger); ok {
		return l
	}
	return GetLogger()
}

// RequestID returns the ID assigned to the current request, if any
func RequestID(c echo.Context) string {
	id, _ := c.Get(EchoRequestIDKey).(string)
	return id
}
