package config

import (
	"fmt"
	"net/url"
	"time"
)

// Supported storage drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DatabaseConfig contains storage backend settings
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres or memory
	URL             string        `mapstructure:"url"`    // takes precedence over the individual fields
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConnections  int32         `mapstructure:"max_connections"`
	MinConnections  int32         `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheck     time.Duration `mapstructure:"health_check"`
	SeedFile        string        `mapstructure:"seed_file"` // YAML rows for the memory driver
}

// ConnectionString returns the PostgreSQL connection URL
func (dc *DatabaseConfig) ConnectionString() string {
	if dc.URL != "" {
		return dc.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(dc.User, dc.Password),
		Host:   fmt.Sprintf("%s:%d", dc.Host, dc.Port),
		Path:   "/" + dc.Database,
	}
	q := u.Query()
	if dc.SSLMode != "" {
		q.Set("sslmode", dc.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Validate validates database configuration
func (dc *DatabaseConfig) Validate() error {
	switch dc.Driver {
	case DriverMemory:
		return nil
	case DriverPostgres:
	default:
		return fmt.Errorf("database driver must be %q or %q, got: %q", DriverPostgres, DriverMemory, dc.Driver)
	}

	if dc.URL == "" {
		if dc.Host == "" {
			return fmt.Errorf("database host cannot be empty")
		}
		if dc.Port <= 0 || dc.Port > 65535 {
			return fmt.Errorf("database port must be between 1 and 65535, got: %d", dc.Port)
		}
		if dc.Database == "" {
			return fmt.Errorf("database name cannot be empty")
		}
	}

	if dc.MaxConnections < 1 {
		return fmt.Errorf("database max_connections must be at least 1, got: %d", dc.MaxConnections)
	}
	if dc.MinConnections < 0 || dc.MinConnections > dc.MaxConnections {
		return fmt.Errorf("database min_connections must be between 0 and max_connections, got: %d", dc.MinConnections)
	}
	return nil
}
