package config

import (
	"github.com/garyjia/spend-approval/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This bridges the file-based config loaded by viper and the container's
// configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		Routing: container.RoutingConfig{
			ExpeditedType:         c.Routing.ExpeditedType,
			LegacyThreshold:       c.Routing.LegacyThreshold,
			MaxApproversPerLevel:  c.Routing.MaxApproversPerLevel,
			DepartmentScopedRoles: append([]string(nil), c.Routing.DepartmentScopedRoles...),
			EnforceLevelOrder:     c.Routing.EnforceLevelOrder,
			RulesPath:             c.Routing.RulesPath,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
		},
	}
}
