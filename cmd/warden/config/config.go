// Package config defines the gateway configuration.
package config

import (
	"fmt"
	"time"
)

// Config holds all configuration for the gateway.
type Config struct {
	Server       ServerConfig       `mapstructure:"server" yaml:"server"`
	Database     DatabaseConfig     `mapstructure:"database" yaml:"database"`
	Management   ManagementConfig   `mapstructure:"management" yaml:"management"`
	SDK          SDKConfig          `mapstructure:"sdk" yaml:"sdk"`
	Confirmation ConfirmationConfig `mapstructure:"confirmation" yaml:"confirmation"`
	Logging      LoggingConfig      `mapstructure:"logging" yaml:"logging"`
	Metrics      MetricsConfig      `mapstructure:"metrics" yaml:"metrics"`
	Auth         AuthConfig         `mapstructure:"auth" yaml:"auth"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address         string        `mapstructure:"address" yaml:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DatabaseConfig holds Postgres connection configuration.
type DatabaseConfig struct {
	URL      string `mapstructure:"url" yaml:"url"`
	MaxConns int32  `mapstructure:"max_conns" yaml:"max_conns"`
}

// ManagementConfig holds management API configuration.
type ManagementConfig struct {
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url"`
	AccessToken string        `mapstructure:"access_token" yaml:"access_token"`
	ProjectRef  string        `mapstructure:"project_ref" yaml:"project_ref"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// SDKConfig holds auth admin API configuration.
type SDKConfig struct {
	AuthURL        string        `mapstructure:"auth_url" yaml:"auth_url"`
	ServiceRoleKey string        `mapstructure:"service_role_key" yaml:"service_role_key"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ConfirmationConfig holds confirmation token configuration.
type ConfirmationConfig struct {
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Address string `mapstructure:"address" yaml:"address"`
}

// AuthConfig holds caller authentication configuration.
type AuthConfig struct {
	Enabled bool       `mapstructure:"enabled" yaml:"enabled"`
	Type    string     `mapstructure:"type" yaml:"type"`
	Bearer  BearerAuth `mapstructure:"bearer" yaml:"bearer"`
	JWT     JWTAuth    `mapstructure:"jwt" yaml:"jwt"`
}

// BearerAuth maps static bearer tokens to caller names.
type BearerAuth struct {
	Tokens map[string]string `mapstructure:"tokens" yaml:"tokens"`
}

// JWTAuth holds HMAC JWT validation settings.
type JWTAuth struct {
	Secret   string `mapstructure:"secret" yaml:"secret"`
	Issuer   string `mapstructure:"issuer" yaml:"issuer"`
	Audience string `mapstructure:"audience" yaml:"audience"`
}

// DefaultConfig returns a config with sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			MaxConns: 10,
		},
		Management: ManagementConfig{
			BaseURL: "https://api.supabase.com",
			Timeout: 30 * time.Second,
		},
		SDK: SDKConfig{
			Timeout: 30 * time.Second,
		},
		Confirmation: ConfirmationConfig{
			TTL:           5 * time.Minute,
			SweepInterval: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: ":9090",
		},
		Auth: AuthConfig{
			Enabled: false,
			Type:    "bearer",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server address is required")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required")
	}
	if c.Management.ProjectRef == "" {
		return fmt.Errorf("management project_ref is required")
	}
	if c.Confirmation.TTL <= 0 {
		return fmt.Errorf("confirmation ttl must be positive")
	}
	if c.Auth.Enabled {
		switch c.Auth.Type {
		case "bearer":
			if len(c.Auth.Bearer.Tokens) == 0 {
				return fmt.Errorf("bearer auth enabled but no tokens configured")
			}
		case "jwt":
			if c.Auth.JWT.Secret == "" {
				return fmt.Errorf("jwt auth enabled but no secret configured")
			}
		default:
			return fmt.Errorf("unsupported auth type: %s", c.Auth.Type)
		}
	}
	return nil
}

// AuthURL returns the SDK auth endpoint, deriving it from the project ref
// when not set explicitly.
func (c *Config) AuthURL() string {
	if c.SDK.AuthURL != "" {
		return c.SDK.AuthURL
	}
	return fmt.Sprintf("https://%s.supabase.co/auth/v1", c.Management.ProjectRef)
}
