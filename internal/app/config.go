package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// Config represents the runtime configuration for the CampusConnect backend.
type Config struct {
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Cache         CacheConfig        `mapstructure:"cache"`
	Auth          AuthConfig         `mapstructure:"auth"`
	Projects      ProjectsConfig     `mapstructure:"projects"`
	Mongo         MongoConfig        `mapstructure:"mongo"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Maintenance   MaintenanceConfig  `mapstructure:"maintenance"`
	Monitoring    MonitoringConfig   `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	RateLimit       int           `mapstructure:"rate_limit"`
	RateWindow      time.Duration `mapstructure:"rate_window"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	LogLevel string       `mapstructure:"log_level"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
	Pool     PoolConfig   `mapstructure:"pool"`
}

// PoolConfig bounds the sql.DB connection pool.
type PoolConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig describes cache backends.
type CacheConfig struct {
	Redis RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TLS      bool          `mapstructure:"tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AuthConfig captures bearer token validation settings.
type AuthConfig struct {
	JWT JWTSettings `mapstructure:"jwt"`
}

// JWTSettings configures JWT validation.
type JWTSettings struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	Audience string        `mapstructure:"audience"`
	TTL      time.Duration `mapstructure:"ttl"`
	Leeway   time.Duration `mapstructure:"leeway"`
}

// ProjectsConfig tunes the team-formation workflow.
type ProjectsConfig struct {
	Store           string        `mapstructure:"store"`
	Cooldown        time.Duration `mapstructure:"cooldown"`
	MaxRetries      int           `mapstructure:"max_retries"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
	DefaultTeamSize int           `mapstructure:"default_team_size"`
}

// MongoConfig locates the document store used when projects.store is mongo.
type MongoConfig struct {
	URI        string        `mapstructure:"uri"`
	Database   string        `mapstructure:"database"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// NotificationConfig toggles team event notifications.
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Channel string `mapstructure:"channel"`
}

// MaintenanceConfig controls the retention jobs.
type MaintenanceConfig struct {
	AuditRetentionDays        int    `mapstructure:"audit_retention_days"`
	NotificationRetentionDays int    `mapstructure:"notification_retention_days"`
	AuditSchedule             string `mapstructure:"audit_schedule"`
	NotificationSchedule      string `mapstructure:"notification_schedule"`
	CacheSchedule             string `mapstructure:"cache_schedule"`
}

// MonitoringConfig enables metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles the metrics endpoint.
type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Supported project stores.
const (
	ProjectStoreSQL   = "sql"
	ProjectStoreMongo = "mongo"
)

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("CAMPUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the services cannot run with. Every problem is
// reported, not just the first.
func (c *Config) Validate() error {
	var errs error
	fail := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf("config: "+format, args...))
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		fail("server.port %d is out of range", c.Server.Port)
	}
	switch strings.ToLower(strings.TrimSpace(c.Server.LogFormat)) {
	case "", "json", "console":
	default:
		fail("unsupported server.log_format %q", c.Server.LogFormat)
	}
	switch strings.ToLower(strings.TrimSpace(c.Database.Driver)) {
	case "", "sqlite", "postgres", "mysql", "mariadb":
	default:
		fail("unsupported database.driver %q", c.Database.Driver)
	}

	switch strings.ToLower(strings.TrimSpace(c.Projects.Store)) {
	case "", ProjectStoreSQL:
	case ProjectStoreMongo:
		if strings.TrimSpace(c.Mongo.URI) == "" {
			fail("mongo.uri is required when projects.store is mongo")
		}
	default:
		fail("unsupported projects.store %q", c.Projects.Store)
	}
	if c.Projects.Cooldown < 0 {
		fail("projects.cooldown must not be negative")
	}
	if c.Projects.DefaultTeamSize < 0 {
		fail("projects.default_team_size must not be negative")
	}

	if secret := strings.TrimSpace(c.Auth.JWT.Secret); secret != "" {
		if n := SecretByteLength(secret); n < minJWTSecretBytes {
			fail("auth.jwt.secret must decode to at least %d bytes, got %d", minJWTSecretBytes, n)
		}
	}
	return errs
}

var defaults = map[string]any{
	"server.port":             8000,
	"server.log_level":        "info",
	"server.log_format":       "json",
	"server.rate_limit":       100,
	"server.rate_window":      "1m",
	"server.allowed_origins":  []string{},
	"server.shutdown_timeout": "15s",

	"database.driver":                 "sqlite",
	"database.path":                   "./data/campusconnect.sqlite",
	"database.log_level":              "warn",
	"database.pool.max_open_conns":    0,
	"database.pool.max_idle_conns":    0,
	"database.pool.conn_max_lifetime": "30m",

	"cache.redis.enabled":  false,
	"cache.redis.address":  "127.0.0.1:6379",
	"cache.redis.username": "",
	"cache.redis.password": "",
	"cache.redis.db":       0,
	"cache.redis.tls":      false,
	"cache.redis.timeout":  "5s",

	"auth.jwt.issuer": "campusconnect",
	"auth.jwt.ttl":    "1h",
	"auth.jwt.leeway": "30s",

	"projects.store":             ProjectStoreSQL,
	"projects.cooldown":          "1h",
	"projects.max_retries":       5,
	"projects.lock_ttl":          "5s",
	"projects.default_team_size": 1,

	"mongo.uri":        "",
	"mongo.database":   "campusconnect",
	"mongo.collection": "projectposts",
	"mongo.timeout":    "10s",

	"notifications.enabled": true,
	"notifications.channel": "campus:team-events",

	"maintenance.audit_retention_days":        90,
	"maintenance.notification_retention_days": 30,
	"maintenance.audit_schedule":              "@daily",
	"maintenance.notification_schedule":       "@daily",
	"maintenance.cache_schedule":              "@hourly",

	"monitoring.prometheus.enabled": true,
}

func setDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
