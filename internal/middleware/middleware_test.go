package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fluxbase-eu/queryfilter/internal/observability"
	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimiter(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	app := fiber.New()
	app.Use(NewRateLimiter(RateLimiterConfig{
		Name:       "test",
		Max:        2,
		Expiration: time.Minute,
		KeyFunc:    func(c fiber.Ctx) string { return "fixed" },
		Metrics:    metrics,
	}))
	app.Get("/test", func(c fiber.Ctx) error {
		return c.SendString("ok")
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
}

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/test", func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	t.Run("generates an id", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
		require.NoError(t, err)
		assert.Len(t, resp.Header.Get(fiber.HeaderXRequestID), 36)
	})

	t.Run("keeps the client id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(fiber.HeaderXRequestID, "abc-123")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, "abc-123", resp.Header.Get(fiber.HeaderXRequestID))
	})
}

func TestRequestLogger(t *testing.T) {
	app := fiber.New()
	app.Use(RequestLogger(nil))
	app.Get("/ok", func(c fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/fail", func(c fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})

	t.Run("passes responses through", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("renders handler errors", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/fail", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	})
}
