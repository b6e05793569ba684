package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestIDHeader is the header a caller may use to supply its own request id.
const RequestIDHeader = "X-Request-ID"

// RequestIDLocalKey is where the request id lives in Fiber locals. The zap
// request logger and the handler error envelope both read it from there, so
// every log line and every error body for one request carry the same id.
const RequestIDLocalKey = "request_id"

// RequestID tags each request with an id: the caller's X-Request-ID when one
// arrives, a fresh UUID otherwise. The id is stored in locals for the logger
// and error envelope, and echoed on the response header either way so callers
// can quote it when reporting a failure.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(RequestIDLocalKey, id)
		c.Set(RequestIDHeader, id)

		return c.Next()
	}
}
