package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/medicore/clinic-api/internal/core/domain"
)

type Config struct {
	Port      string `env:"PORT,      default=5000"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	// SignupRoles lists the roles open to self-registration.
	SignupRoles []string `env:"SIGNUP_ROLES, default=admin,doctor,patient"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`

	Mongo MongoConfig
	Redis RedisConfig
	Login LoginConfig
	Audit AuditConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=clinic"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// LoginConfig tunes the failed-login throttle. MaxAttempts 0 disables it.
type LoginConfig struct {
	MaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS, default=5"`
	Window      time.Duration `env:"LOGIN_WINDOW,       default=15m"`
}

type AuditConfig struct {
	Workers int `env:"AUDIT_WORKERS, default=4"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := load(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}
	if _, err := cfg.AllowedSignupRoles(); err != nil {
		return nil, err
	}
	if cfg.Login.MaxAttempts < 0 {
		return nil, fmt.Errorf("LOGIN_MAX_ATTEMPTS must not be negative")
	}
	return &cfg, nil
}

// AllowedSignupRoles parses SignupRoles.
func (c *Config) AllowedSignupRoles() ([]domain.Role, error) {
	roles := make([]domain.Role, 0, len(c.SignupRoles))
	for _, s := range c.SignupRoles {
		r, err := domain.ParseRole(s)
		if err != nil {
			return nil, fmt.Errorf("SIGNUP_ROLES: unknown role %q", s)
		}
		roles = append(roles, r)
	}
	if len(roles) == 0 {
		return nil, fmt.Errorf("SIGNUP_ROLES must name at least one role")
	}
	return roles, nil
}

// IsDevelopment reports whether ENV selects local development.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
