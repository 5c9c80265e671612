package app

import (
	"strings"

	"github.com/charlesng35/campusconnect/internal/auth"
	"github.com/charlesng35/campusconnect/internal/cache"
	"github.com/charlesng35/campusconnect/internal/database"
	"github.com/charlesng35/campusconnect/pkg/logger"
)

// ConfigureLogging installs the global zap logger for the server section.
// An empty level means info and an unknown one falls back to info.
func ConfigureLogging(cfg ServerConfig) error {
	level := strings.TrimSpace(cfg.LogLevel)
	if level == "" {
		level = "info"
	}
	return logger.InitWithOptions(logger.Options{
		Level:  level,
		Format: strings.TrimSpace(cfg.LogFormat),
	})
}

// JWTServiceConfig maps auth.jwt onto the token service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	out := auth.JWTConfig{
		Secret:   c.JWT.Secret,
		Issuer:   c.JWT.Issuer,
		Audience: c.JWT.Audience,
		TokenTTL: c.JWT.TTL,
		Leeway:   c.JWT.Leeway,
	}
	if out.TokenTTL <= 0 {
		out.TokenTTL = auth.DefaultTokenTTL
	}
	return out
}

// RedisClientConfig maps cache.redis onto the go-redis backed store.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	r := c.Redis
	return cache.RedisConfig{
		Address:  strings.TrimSpace(r.Address),
		Username: strings.TrimSpace(r.Username),
		Password: r.Password,
		DB:       r.DB,
		TLS:      r.TLS,
		Timeout:  r.Timeout,
	}
}

// ClientConfig converts the database section into database.Config, picking the
// host parameters that belong to the configured driver.
func (c DatabaseConfig) ClientConfig() database.Config {
	cfg := database.Config{
		Driver:   strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:     strings.TrimSpace(c.Path),
		DSN:      strings.TrimSpace(c.DSN),
		LogLevel: c.LogLevel,

		MaxOpenConns:    c.Pool.MaxOpenConns,
		MaxIdleConns:    c.Pool.MaxIdleConns,
		ConnMaxLifetime: c.Pool.ConnMaxLifetime,
	}

	var host DBAuthConfig
	switch cfg.Driver {
	case "postgres", "postgresql":
		host = c.Postgres
	case "mysql", "mariadb":
		host = c.MySQL
	default:
		return cfg
	}

	cfg.Host = strings.TrimSpace(host.Host)
	cfg.Port = host.Port
	cfg.Name = strings.TrimSpace(host.Database)
	cfg.User = strings.TrimSpace(host.Username)
	cfg.Password = host.Password
	return cfg
}
