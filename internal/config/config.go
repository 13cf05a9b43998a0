package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath   = "CONFIG_PATH"
	EnvDBConnection = "DB_CONNECTION"
	EnvLogLevel     = "LOG_LEVEL"
	EnvListenPort   = "LISTEN_PORT"
	EnvRedisAddr    = "REDIS_ADDR"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// LoadDatabaseDSN reads the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read-timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown-timeout"`
}

// LoggingConfig holds logrus settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// SecurityConfig holds project secret hashing settings.
type SecurityConfig struct {
	SecretHashCost int `yaml:"secret-hash-cost"`
}

// RedisConfig points the lookup limiter at a shared Redis.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// RateLimitConfig throttles secret-authenticated beacon lookups per client.
type RateLimitConfig struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
	Redis  RedisConfig   `yaml:"redis"`
}

// Settings is the full set of optional runtime settings.
type Settings struct {
	Server          ServerConfig    `yaml:"server"`
	Logging         LoggingConfig   `yaml:"logging"`
	Security        SecurityConfig  `yaml:"security"`
	LookupRateLimit RateLimitConfig `yaml:"lookup-rate-limit"`
}

const (
	defaultPort            = 8080
	defaultReadTimeout     = 15 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLogLevel        = "info"
	defaultSecretHashCost  = 10
	defaultLookupLimit     = 20
	defaultLookupWindow    = time.Minute
	defaultRedisPrefix     = "beacon-registry:lookup"
)

// DefaultSettings returns settings used when the config file is absent.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerConfig{
			Port:            defaultPort,
			ReadTimeout:     defaultReadTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging:  LoggingConfig{Level: defaultLogLevel},
		Security: SecurityConfig{SecretHashCost: defaultSecretHashCost},
		LookupRateLimit: RateLimitConfig{
			Limit:  defaultLookupLimit,
			Window: defaultLookupWindow,
			Redis:  RedisConfig{Prefix: defaultRedisPrefix},
		},
	}
}

// LoadSettings loads runtime settings from the YAML config file and env.
// A missing or unreadable file yields defaults.
func LoadSettings(configPath string) (Settings, error) {
	result := DefaultSettings()

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		if errUnmarshal := yaml.Unmarshal(data, &result); errUnmarshal != nil {
			return Settings{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	}

	if level := strings.TrimSpace(os.Getenv(EnvLogLevel)); level != "" {
		result.Logging.Level = level
	}
	if portRaw := strings.TrimSpace(os.Getenv(EnvListenPort)); portRaw != "" {
		if port, errParse := strconv.Atoi(portRaw); errParse == nil {
			result.Server.Port = port
		}
	}
	if addr := strings.TrimSpace(os.Getenv(EnvRedisAddr)); addr != "" {
		result.LookupRateLimit.Redis.Addr = addr
		result.LookupRateLimit.Redis.Enabled = true
	}

	result.normalize()
	return result, nil
}

func (s *Settings) normalize() {
	if s.Server.Port <= 0 || s.Server.Port > 65535 {
		s.Server.Port = defaultPort
	}
	if s.Server.ReadTimeout <= 0 {
		s.Server.ReadTimeout = defaultReadTimeout
	}
	if s.Server.ShutdownTimeout <= 0 {
		s.Server.ShutdownTimeout = defaultShutdownTimeout
	}
	s.Logging.Level = strings.TrimSpace(s.Logging.Level)
	if s.Logging.Level == "" {
		s.Logging.Level = defaultLogLevel
	}
	if s.Security.SecretHashCost <= 0 {
		s.Security.SecretHashCost = defaultSecretHashCost
	}
	if s.LookupRateLimit.Limit < 0 {
		s.LookupRateLimit.Limit = 0
	}
	if s.LookupRateLimit.Window < time.Second {
		s.LookupRateLimit.Window = defaultLookupWindow
	}
	redisCfg := &s.LookupRateLimit.Redis
	redisCfg.Addr = strings.TrimSpace(redisCfg.Addr)
	redisCfg.Password = strings.TrimSpace(redisCfg.Password)
	redisCfg.Prefix = strings.TrimSpace(redisCfg.Prefix)
	if redisCfg.Prefix == "" {
		redisCfg.Prefix = defaultRedisPrefix
	}
	if redisCfg.DB < 0 {
		redisCfg.DB = 0
	}
}

// ConfigureLogging applies logging settings to the standard logrus logger.
func ConfigureLogging(cfg LoggingConfig) error {
	level, errParse := log.ParseLevel(cfg.Level)
	if errParse != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, errParse)
	}
	log.SetLevel(level)
	if cfg.JSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
