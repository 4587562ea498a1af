// Package config loads server configuration from YAML with sane defaults
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"coursehub/pkg/logger"
)

// Duration wraps time.Duration so YAML configs can use "10s"/"30m" notation
type Duration time.Duration

// UnmarshalYAML parses either a duration string or raw nanoseconds
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	*d = Duration(time.Duration(n))
	return nil
}

// MarshalYAML renders the duration in string notation
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the plain time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds all server configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Storage  StorageConfig  `yaml:"storage"`
	TCP      TCPConfig      `yaml:"tcp"`
	UDP      UDPConfig      `yaml:"udp"`
	Logging  logger.Config  `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host          string          `yaml:"host"`
	Port          int             `yaml:"port"`
	AuthRateLimit RateLimitConfig `yaml:"auth_rate_limit"`
}

// RateLimitConfig bounds request rates per client IP
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// DatabaseConfig contains PostgreSQL settings
type DatabaseConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	User            string   `yaml:"user"`
	Password        string   `yaml:"password"`
	Database        string   `yaml:"database"`
	SSLMode         string   `yaml:"ssl_mode"`
	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime Duration `yaml:"conn_max_idle_time"`
	Timeout         Duration `yaml:"timeout"`
}

// RedisConfig contains catalog cache settings
type RedisConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	TTL      Duration `yaml:"ttl"`
	Enabled  bool     `yaml:"enabled"`
}

// Addr returns host:port for the redis client
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig contains token signing settings
type JWTConfig struct {
	Secret     string   `yaml:"secret"`
	Issuer     string   `yaml:"issuer"`
	Expiration Duration `yaml:"expiration"`
}

// StorageConfig contains object storage settings for video assets
type StorageConfig struct {
	Bucket          string   `yaml:"bucket"`
	CDNHost         string   `yaml:"cdn_host"`
	CredentialsFile string   `yaml:"credentials_file"`
	SignedURLTTL    Duration `yaml:"signed_url_ttl"`
}

// TCPConfig contains engagement aggregator settings
type TCPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// UDPConfig contains announcement broadcaster settings
type UDPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Default returns default configuration for local development
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			AuthRateLimit: RateLimitConfig{
				PerSecond: 5,
				Burst:     10,
			},
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "coursehub",
			Password:        "coursehub_dev_password",
			Database:        "coursehub_dev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: Duration(30 * time.Minute),
			ConnMaxIdleTime: Duration(5 * time.Minute),
			Timeout:         Duration(10 * time.Second),
		},
		Redis: RedisConfig{
			Host:    "localhost",
			Port:    6379,
			DB:      0,
			TTL:     Duration(5 * time.Minute),
			Enabled: true,
		},
		JWT: JWTConfig{
			Secret:     "dev-secret-change-me",
			Issuer:     "coursehub",
			Expiration: Duration(24 * time.Hour),
		},
		Storage: StorageConfig{
			Bucket:       "coursehub-assets-dev",
			SignedURLTTL: Duration(15 * time.Minute),
		},
		TCP: TCPConfig{
			Host: "0.0.0.0",
			Port: 6000,
		},
		UDP: UDPConfig{
			Host: "0.0.0.0",
			Port: 4000,
		},
		Logging: logger.Config{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads configuration from a YAML file, falling back to defaults for
// anything the file omits. Secrets can be overridden from the environment
// so the checked-in development config never has to hold production values.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Environment overrides
	if v := os.Getenv("COURSEHUB_JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("COURSEHUB_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("COURSEHUB_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("COURSEHUB_REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
	}
	if v := os.Getenv("COURSEHUB_STORAGE_BUCKET"); v != "" {
		cfg.Storage.Bucket = v
	}

	return cfg, nil
}
