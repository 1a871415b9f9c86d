package middleware

import (
	"strconv"
	"time"

	"rental-service/prometheus"

	"github.com/labstack/echo/v4"
)

// MetricsMiddleware adds prometheus metrics to track HTTP requests
func MetricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)

		duration := time.Since(start).Seconds()

		// Route template rather than raw URL keeps label cardinality bounded
		method := c.Request().Method
		path := c.Path()
		if path == "" {
			path = "unmatched"
		}
		status := c.Response().Status
		if err != nil {
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
		}
		code := strconv.Itoa(status)

		prometheus.HttpRequestsTotal.WithLabelValues(method, path, code).Inc()
		prometheus.HttpRequestDuration.WithLabelValues(method, path, code).Observe(duration)

		return err
	}
}
