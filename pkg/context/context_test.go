package context

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRequestIDDefaultsToUnknown(t *testing.T) {
	assert.Equal(t, "unknown", GetRequestID(context.Background()))
	assert.Equal(t, "abc", GetRequestID(WithRequestID(context.Background(), "abc")))
}

func TestFromFiberCtx(t *testing.T) {
	app := fiber.New()
	app.Get("/local", func(c *fiber.Ctx) error {
		c.Locals(HeaderRequestID, "from-locals")
		return c.SendString(GetRequestID(FromFiberCtx(c)))
	})
	app.Get("/header", func(c *fiber.Ctx) error {
		return c.SendString(GetRequestID(FromFiberCtx(c)))
	})

	tests := []struct {
		path   string
		header string
		want   string
	}{
		{path: "/local", want: "from-locals"},
		{path: "/header", header: "from-header", want: "from-header"},
		{path: "/header", want: "unknown"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("GET", tt.path, nil)
		if tt.header != "" {
			req.Header.Set(HeaderRequestID, tt.header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)

		buf := make([]byte, 64)
		n, _ := resp.Body.Read(buf)
		assert.Equal(t, tt.want, string(buf[:n]))
	}
}

func TestFromFiberCtxPrefersUserContext(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		c.SetUserContext(WithRequestID(context.Background(), "from-user-ctx"))
		c.Locals(HeaderRequestID, "from-locals")
		return c.SendString(GetRequestID(FromFiberCtx(c)))
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(HeaderRequestID, "from-header")
	resp, err := app.Test(req)
	require.NoError(t, err)

	buf := make([]byte, 64)
	n, _ := resp.Body.Read(buf)
	assert.Equal(t, "from-user-ctx", string(buf[:n]))
}
