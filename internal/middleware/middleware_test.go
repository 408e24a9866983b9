package middleware

import (
	contextPkg "FaceTrigger/pkg/context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestApp(cfg Config) (*fiber.App, Middleware) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	m := New(logger, cfg)
	app := fiber.New()
	app.Use(m.NewRequestIDMiddleware())
	app.Use(m.NewLoggingMiddleware())
	app.Get("/limited", m.NewRateLimiter, func(c *fiber.Ctx) error {
		return c.SendString(m.GetRequestID(c))
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})
	return app, m
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	app, _ := newTestApp(Config{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/limited", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	id := resp.Header.Get(RequestIDKey)
	assert.Len(t, id, 26)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, id, string(body))
}

func TestRequestIDPropagatedFromClient(t *testing.T) {
	app, _ := newTestApp(Config{})

	req := httptest.NewRequest(http.MethodGet, "/limited", nil)
	req.Header.Set(RequestIDKey, "client-id")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, "client-id", resp.Header.Get(RequestIDKey))
}

func TestRateLimiterRejectsBurst(t *testing.T) {
	app, _ := newTestApp(Config{RequestsPerSecond: 0.001, Burst: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/limited", nil))
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestLoggingMiddlewareKeepsHandlerStatus(t *testing.T) {
	app, _ := newTestApp(Config{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}

func TestMalformedRequestIDIsReplaced(t *testing.T) {
	app, _ := newTestApp(Config{})

	for _, bad := range []string{strings.Repeat("a", 65), "has space"} {
		req := httptest.NewRequest(http.MethodGet, "/limited", nil)
		req.Header.Set(RequestIDKey, bad)
		resp, err := app.Test(req)
		require.NoError(t, err)

		id := resp.Header.Get(RequestIDKey)
		assert.NotEqual(t, bad, id)
		assert.Len(t, id, 26)
	}
}

func TestRequestIDReachesUserContext(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	m := New(logger, Config{})

	app := fiber.New()
	app.Use(m.NewRequestIDMiddleware())
	app.Get("/ctx", func(c *fiber.Ctx) error {
		return c.SendString(contextPkg.GetRequestID(c.UserContext()))
	})

	req := httptest.NewRequest(http.MethodGet, "/ctx", nil)
	req.Header.Set(RequestIDKey, "req-42")
	resp, err := app.Test(req)
	require.NoError(t, err)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "req-42", string(body))
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	now := time.Unix(1700000000, 0)
	rl := newRateLimiter(rate.Limit(1), 1, time.Minute)
	rl.now = func() time.Time { return now }
	rl.lastSweep = now

	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.2"))
	assert.Equal(t, 2, rl.tracked())

	now = now.Add(30 * time.Second)
	assert.True(t, rl.allow("10.0.0.2"))

	now = now.Add(61 * time.Second)
	assert.True(t, rl.allow("10.0.0.3"))
	assert.Equal(t, 1, rl.tracked(), "idle buckets must be swept")
}

func TestRateLimitedResponseCarriesRetryAfter(t *testing.T) {
	app, _ := newTestApp(Config{RequestsPerSecond: 0.001, Burst: 1})

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/limited", nil))
	require.NoError(t, err)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/limited", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get(fiber.HeaderRetryAfter))
}
