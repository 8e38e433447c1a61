// Package container provides dependency injection and lifecycle management
// for the spend approval engine.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Routing configuration
	Routing RoutingConfig

	// Server configuration
	Server ServerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// MigrationsDir replaces the embedded migrations when set
	MigrationsDir string
}

// RoutingConfig holds route resolution and decision settings.
type RoutingConfig struct {
	// ExpeditedType is the requisition type that bypasses approval
	ExpeditedType string

	// LegacyThreshold auto-approves unmatched requests at or below it
	LegacyThreshold float64

	// MaxApproversPerLevel caps role-based approver lookups
	MaxApproversPerLevel int

	// DepartmentScopedRoles are resolved within the requester's department
	DepartmentScopedRoles []string

	// EnforceLevelOrder gates decisions on lower levels being complete
	EnforceLevelOrder bool

	// RulesPath is a YAML rule table; empty selects the built-in rules
	RulesPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// WriteTimeout for HTTP server
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/spend_approval.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Routing: RoutingConfig{
			ExpeditedType:         "EMERGENCY",
			LegacyThreshold:       50,
			MaxApproversPerLevel:  3,
			DepartmentScopedRoles: []string{"FINANCE_TEAM"},
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Routing.LegacyThreshold < 0 {
		return fmt.Errorf("routing.legacy_threshold must not be negative")
	}
	if c.Routing.MaxApproversPerLevel <= 0 {
		return fmt.Errorf("routing.max_approvers_per_level must be positive")
	}
	return nil
}
