package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Audit      AuditConfig      `mapstructure:"audit"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	ReadOnly bool   `mapstructure:"read_only"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | text
	File   string `mapstructure:"file"`   // optional rotating copy
}

type AuthConfig struct {
	AdminKey string `mapstructure:"admin_key"`
}

type DatabaseConfig struct {
	// memory | sqlite | postgres
	Driver                    string `mapstructure:"driver"`
	DSN                       string `mapstructure:"dsn"`
	IdempotencyRetentionHours int    `mapstructure:"idempotency_retention_hours"`
	AuditRetentionDays        int    `mapstructure:"audit_retention_days"`
	CleanupIntervalMinutes    int    `mapstructure:"cleanup_interval_minutes"`
}

type RedisConfig struct {
	Addr                  string `mapstructure:"addr"`
	Password              string `mapstructure:"password"`
	DB                    int    `mapstructure:"db"`
	IdempotencyTTLSeconds int    `mapstructure:"idempotency_ttl_seconds"`
	AuditListKey          string `mapstructure:"audit_list_key"`
	AuditListMax          int    `mapstructure:"audit_list_max"`
}

type AuditConfig struct {
	Dir        string `mapstructure:"dir"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type RateLimitConfig struct {
	QPS   float64 `mapstructure:"qps"`   // per signer, 0 = unlimited
	Burst int     `mapstructure:"burst"`
}

type SettlementConfig struct {
	// Base58 keys allowed to initialize the config. Empty allows anyone.
	InitializerAllowlist []string `mapstructure:"initializer_allowlist"`
	// Enables POST /v1/ops/mint for local funding.
	DevMintEnabled bool `mapstructure:"dev_mint_enabled"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. PAYGATE_DATABASE_DSN
	viper.SetEnvPrefix("paygate")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_only", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("auth.admin_key", "")
	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.idempotency_retention_hours", 168)
	v.SetDefault("database.audit_retention_days", 30)
	v.SetDefault("database.cleanup_interval_minutes", 60)
	v.SetDefault("redis.idempotency_ttl_seconds", 86400)
	v.SetDefault("redis.audit_list_key", "audit_logs")
	v.SetDefault("redis.audit_list_max", 10000)
	v.SetDefault("audit.dir", "./logs")
	v.SetDefault("audit.max_size_mb", 100)
	v.SetDefault("audit.max_backups", 7)
	v.SetDefault("audit.max_age_days", 30)
	v.SetDefault("rate_limit.qps", 20)
	v.SetDefault("rate_limit.burst", 40)
	v.SetDefault("settlement.dev_mint_enabled", false)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
