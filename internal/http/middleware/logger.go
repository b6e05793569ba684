package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Logger logs each HTTP request as one structured entry: request_id (from the
// RequestID middleware), method, path, tenant header when present, status, and
// latency. Fields are collected after the handler so the final status is
// captured.
func Logger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		rid, _ := c.Locals(RequestIDLocalKey).(string)
		fields := []zap.Field{
			zap.String("request_id", rid),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
		}
		if t := c.Get("Tenant-ID"); t != "" {
			fields = append(fields, zap.String("tenant", t))
		}
		log.Info("request", fields...)

		return err
	}
}
