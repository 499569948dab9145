// Package middleware holds the fiber middleware shared by the API routes
package middleware

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fluxbase-eu/queryfilter/internal/observability"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/storage/memory/v2"
	"github.com/rs/zerolog/log"
)

var rateLimiterWarningOnce sync.Once

// logRateLimiterWarning warns once per process when the service looks like
// one of several replicas, since counters are kept per instance
func logRateLimiterWarning() {
	rateLimiterWarningOnce.Do(func() {
		isKubernetes := os.Getenv("KUBERNETES_SERVICE_HOST") != ""
		isDockerCompose := os.Getenv("COMPOSE_PROJECT_NAME") != ""

		if isKubernetes || isDockerCompose {
			log.Warn().
				Bool("kubernetes_detected", isKubernetes).
				Bool("docker_compose_detected", isDockerCompose).
				Msg("Rate limiting is per instance. Each replica keeps its own counters.")
		}
	})
}

// RateLimiterConfig holds configuration for rate limiting
type RateLimiterConfig struct {
	Name       string                 // Name of the rate limiter (for metrics)
	Max        int                    // Maximum number of requests
	Expiration time.Duration          // Time window for the rate limit
	KeyFunc    func(fiber.Ctx) string // Function to generate the key, defaults to the client IP
	Message    string                 // Custom error message
	Metrics    *observability.Metrics // Optional
}

// NewRateLimiter creates a rate limiting middleware backed by in-memory
// storage. Rejected requests get a 429 with a Retry-After header.
func NewRateLimiter(config RateLimiterConfig) fiber.Handler {
	logRateLimiterWarning()

	storage := memory.New(memory.Config{
		GCInterval: 10 * time.Minute,
	})

	if config.KeyFunc == nil {
		config.KeyFunc = func(c fiber.Ctx) string {
			return c.IP()
		}
	}

	if config.Message == "" {
		config.Message = fmt.Sprintf("Rate limit exceeded. Maximum %d requests per %s allowed.",
			config.Max, config.Expiration.String())
	}

	limiterName := config.Name
	if limiterName == "" {
		limiterName = "default"
	}

	return limiter.New(limiter.Config{
		Max:          config.Max,
		Expiration:   config.Expiration,
		KeyGenerator: config.KeyFunc,
		LimitReached: func(c fiber.Ctx) error {
			config.Metrics.RecordRateLimitHit(limiterName)

			retryAfter := int(config.Expiration.Seconds())
			c.Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"errors": []string{config.Message},
			})
		},
		Storage: storage,
	})
}
