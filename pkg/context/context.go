package context

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// HeaderRequestID is both the HTTP header and the fiber Locals key that carry
// the request id.
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func GetRequestID(ctx context.Context) string {
	requestID, ok := ctx.Value(requestIDKey{}).(string)
	if !ok || requestID == "" {
		return "unknown"
	}
	return requestID
}

// FromFiberCtx returns the request's user context, which the request id
// middleware has already tagged. Requests that skipped the middleware fall
// back to the Locals value or the raw header.
func FromFiberCtx(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return ctx
	}

	requestID, _ := c.Locals(HeaderRequestID).(string)
	if requestID == "" {
		requestID = c.Get(HeaderRequestID)
	}
	if requestID == "" {
		requestID = "unknown"
	}

	return WithRequestID(ctx, requestID)
}
