package middleware

import (
	"rental-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestIDMiddleware tags every request with an ID, echoes it back in
// X-Request-ID and attaches a logger carrying it
func RequestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Reuse an ID set by a proxy in front of us
		requestID := c.Request().Header.Get(echo.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
			c.Request().Header.Set(echo.HeaderXRequestID, requestID)
		}
		c.Response().Header().Set(echo.HeaderXRequestID, requestID)

		logger.Attach(c, requestID)
		return next(c)
	}
}
