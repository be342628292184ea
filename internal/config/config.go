// Package config loads runtime settings for the API server and the admin CLI.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Addr                string `mapstructure:"addr"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
	Development         bool   `mapstructure:"development"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWTSecret      string   `mapstructure:"jwt_secret"`
	TokenTTLHours  int      `mapstructure:"token_ttl_hours"`
	Issuer         string   `mapstructure:"issuer"`
	AllowedDomains []string `mapstructure:"allowed_domains"`
}

type IdentityConfig struct {
	URL                string `mapstructure:"url"`
	APIKey             string `mapstructure:"api_key"`
	RetryMaxElapsedSec int    `mapstructure:"retry_max_elapsed_seconds"`
}

type RateLimitConfig struct {
	// Backend is "memory" or "redis".
	Backend          string `mapstructure:"backend"`
	SendLimit        int    `mapstructure:"send_limit"`
	SendWindowSec    int    `mapstructure:"send_window_seconds"`
	ReadLimit        int    `mapstructure:"read_limit"`
	ReadWindowSec    int    `mapstructure:"read_window_seconds"`
	ProfileLimit     int    `mapstructure:"profile_limit"`
	ProfileWindowSec int    `mapstructure:"profile_window_seconds"`
	LoginPerMinute   int    `mapstructure:"login_per_minute"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type MediaConfig struct {
	Region string `mapstructure:"region"`
	Bucket string `mapstructure:"bucket"`

	// Endpoint targets an S3-compatible server instead of AWS.
	Endpoint string `mapstructure:"endpoint"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Media     MediaConfig     `mapstructure:"media"`

	// Derived
	ReadTimeout  time.Duration `mapstructure:"-"`
	WriteTimeout time.Duration `mapstructure:"-"`
	TokenTTL     time.Duration `mapstructure:"-"`
}

// Load reads the optional config file at path and applies APP_* environment
// overrides (APP_SERVER_ADDR, APP_AUTH_JWT_SECRET, ...). An empty path means
// environment and defaults only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret must be set")
	}

	cfg.ReadTimeout = time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second
	cfg.WriteTimeout = time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second
	cfg.TokenTTL = time.Duration(cfg.Auth.TokenTTLHours) * time.Hour
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout_seconds", 10)
	v.SetDefault("server.write_timeout_seconds", 10)
	v.SetDefault("server.development", false)

	v.SetDefault("database.dsn", "host=localhost user=user password=password dbname=campusmarket port=5432 sslmode=disable")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl_hours", 72)
	v.SetDefault("auth.issuer", "campusmarket")
	v.SetDefault("auth.allowed_domains", []string{})

	v.SetDefault("identity.url", "")
	v.SetDefault("identity.api_key", "")
	v.SetDefault("identity.retry_max_elapsed_seconds", 10)

	v.SetDefault("ratelimit.backend", "memory")
	v.SetDefault("ratelimit.send_limit", SendLimit)
	v.SetDefault("ratelimit.send_window_seconds", int(SendWindow/time.Second))
	v.SetDefault("ratelimit.read_limit", ReadLimit)
	v.SetDefault("ratelimit.read_window_seconds", int(ReadWindow/time.Second))
	v.SetDefault("ratelimit.profile_limit", ProfileUpdateLimit)
	v.SetDefault("ratelimit.profile_window_seconds", int(ProfileUpdateWindow/time.Second))
	v.SetDefault("ratelimit.login_per_minute", LoginPerMinute)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "campusmarket.events")

	v.SetDefault("media.region", "us-east-1")
	v.SetDefault("media.bucket", "")
	v.SetDefault("media.endpoint", "")
}

// Window converts a seconds setting into a duration.
func Window(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
