package config

import (
	"fmt"
	"strings"
	"time"
)

// APIConfig contains REST API settings
type APIConfig struct {
	BasePath        string `mapstructure:"base_path"`         // Route prefix (default: "/api/v1")
	DefaultPageSize int    `mapstructure:"default_page_size"` // Page size when per_page is absent (default: 15)
	MaxPageSize     int    `mapstructure:"max_page_size"`     // Cap for positive per_page values, 0 = unlimited

	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig limits resource requests per client IP
type RateLimitConfig struct {
	Max        int           `mapstructure:"max"`        // Requests per window, 0 = disabled
	Expiration time.Duration `mapstructure:"expiration"` // Window length (default: 1m)
}

// Enabled reports whether rate limiting is configured
func (rc RateLimitConfig) Enabled() bool {
	return rc.Max > 0
}

// Validate validates API configuration
func (ac *APIConfig) Validate() error {
	if ac.BasePath != "" && !strings.HasPrefix(ac.BasePath, "/") {
		return fmt.Errorf("api base_path must start with '/', got: %s", ac.BasePath)
	}
	if ac.DefaultPageSize < 1 {
		return fmt.Errorf("api default_page_size must be at least 1, got: %d", ac.DefaultPageSize)
	}
	if ac.MaxPageSize < 0 {
		return fmt.Errorf("api max_page_size cannot be negative, got: %d", ac.MaxPageSize)
	}
	if ac.MaxPageSize > 0 && ac.DefaultPageSize > ac.MaxPageSize {
		return fmt.Errorf("api default_page_size (%d) exceeds max_page_size (%d)", ac.DefaultPageSize, ac.MaxPageSize)
	}
	if ac.RateLimit.Max < 0 {
		return fmt.Errorf("api rate_limit.max cannot be negative, got: %d", ac.RateLimit.Max)
	}
	if ac.RateLimit.Enabled() && ac.RateLimit.Expiration <= 0 {
		return fmt.Errorf("api rate_limit.expiration must be positive, got: %s", ac.RateLimit.Expiration)
	}
	return nil
}

// EffectivePerPage caps a requested positive page size
func (ac *APIConfig) EffectivePerPage(requested int) int {
	if ac.MaxPageSize > 0 && requested > ac.MaxPageSize {
		return ac.MaxPageSize
	}
	return requested
}
