package middleware

import (
	contextPkg "FaceTrigger/pkg/context"
	"FaceTrigger/pkg/utils"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	RequestIDKey = contextPkg.HeaderRequestID

	maxRequestIDLength = 64
)

// NewRequestIDMiddleware reuses a well-formed inbound X-Request-ID or mints a
// ULID. The id is echoed on the response and stored in Locals and in the
// request's user context.
func NewRequestIDMiddleware(u utils.IUtils) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDKey)
		if !validRequestID(requestID) {
			id, err := u.NewULIDFromTimestamp(time.Now())
			if err != nil {
				id = "unknown"
			}
			requestID = id
		}

		c.Locals(RequestIDKey, requestID)
		c.Set(RequestIDKey, requestID)
		c.SetUserContext(contextPkg.WithRequestID(c.UserContext(), requestID))

		return c.Next()
	}
}

// validRequestID accepts short printable ASCII ids so client-supplied values
// cannot inject into headers or log lines.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
