package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every runtime setting of the service.
type Config struct {
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Log       LogConfig
	JWT       JWTConfig
	WebSocket WebSocketConfig
	Metrics   MetricsConfig
	Redis     RedisConfig
	NATS      NATSConfig
	NodeID    string
}

type HTTPConfig struct {
	Addr string
}

type DatabaseConfig struct {
	Path string
}

type LogConfig struct {
	Level string
}

type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

type WebSocketConfig struct {
	// AuthTimeout bounds how long the principal verifier may take for one connection.
	AuthTimeout  time.Duration
	PingInterval time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ReadLimit    int64
	// SendBuffer is how many outbound frames may queue per socket before it is dropped as too slow.
	SendBuffer   int
}

type MetricsConfig struct {
	Interval time.Duration
}

// RedisConfig enables the shared presence mirror when Addr is set.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	PresenceTTL time.Duration
}

// NATSConfig enables cross-instance room fan-out when URL is set.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

// Default returns the settings used when no environment overrides are present.
func Default() *Config {
	return &Config{
		HTTP:     HTTPConfig{Addr: ":8008"},
		Database: DatabaseConfig{Path: "helpdesk-realtime.db"},
		Log:      LogConfig{Level: "info"},
		JWT: JWTConfig{
			Secret:   "development-insecure-secret-change-me",
			Issuer:   "helpdesk-realtime-api",
			Audience: "helpdesk-clients",
			TTL:      24 * time.Hour,
		},
		WebSocket: WebSocketConfig{
			AuthTimeout:  10 * time.Second,
			PingInterval: 30 * time.Second,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 5 * time.Second,
			ReadLimit:    4096,
			SendBuffer:   64,
		},
		Metrics: MetricsConfig{Interval: 5 * time.Second},
		Redis:   RedisConfig{PresenceTTL: 2 * time.Minute},
		NATS:    NATSConfig{SubjectPrefix: "helpdesk.realtime"},
		NodeID:  hostname(),
	}
}

// Load reads the environment on top of Default and validates the result.
func Load() (*Config, error) {
	cfg := Default()
	var err error

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.Database.Path = getEnv("DATABASE_PATH", cfg.Database.Path)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	cfg.JWT.Secret = getEnv("JWT_SECRET", cfg.JWT.Secret)
	cfg.JWT.Issuer = getEnv("JWT_ISSUER", cfg.JWT.Issuer)
	cfg.JWT.Audience = getEnv("JWT_AUDIENCE", cfg.JWT.Audience)
	if cfg.JWT.TTL, err = getDuration("JWT_TTL", cfg.JWT.TTL); err != nil {
		return nil, err
	}

	if cfg.WebSocket.AuthTimeout, err = getDuration("WS_AUTH_TIMEOUT", cfg.WebSocket.AuthTimeout); err != nil {
		return nil, err
	}
	if cfg.WebSocket.PingInterval, err = getDuration("WS_PING_INTERVAL", cfg.WebSocket.PingInterval); err != nil {
		return nil, err
	}
	if cfg.WebSocket.ReadTimeout, err = getDuration("WS_READ_TIMEOUT", cfg.WebSocket.ReadTimeout); err != nil {
		return nil, err
	}
	if cfg.WebSocket.WriteTimeout, err = getDuration("WS_WRITE_TIMEOUT", cfg.WebSocket.WriteTimeout); err != nil {
		return nil, err
	}
	if cfg.WebSocket.SendBuffer, err = getInt("WS_SEND_BUFFER", cfg.WebSocket.SendBuffer); err != nil {
		return nil, err
	}
	if cfg.Metrics.Interval, err = getDuration("METRICS_INTERVAL", cfg.Metrics.Interval); err != nil {
		return nil, err
	}

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	if cfg.Redis.DB, err = getInt("REDIS_DB", cfg.Redis.DB); err != nil {
		return nil, err
	}
	if cfg.Redis.PresenceTTL, err = getDuration("PRESENCE_TTL", cfg.Redis.PresenceTTL); err != nil {
		return nil, err
	}

	cfg.NATS.URL = getEnv("NATS_URL", cfg.NATS.URL)
	cfg.NATS.SubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", cfg.NATS.SubjectPrefix)
	cfg.NodeID = getEnv("NODE_ID", cfg.NodeID)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("HTTP address cannot be empty")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret cannot be empty")
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("JWT TTL must be positive")
	}
	if c.WebSocket.AuthTimeout <= 0 {
		return fmt.Errorf("WebSocket auth timeout must be positive")
	}
	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("WebSocket ping interval must be positive")
	}
	if c.WebSocket.ReadTimeout <= c.WebSocket.PingInterval {
		return fmt.Errorf("WebSocket read timeout must exceed the ping interval")
	}
	if c.WebSocket.WriteTimeout <= 0 {
		return fmt.Errorf("WebSocket write timeout must be positive")
	}
	if c.WebSocket.ReadLimit <= 0 {
		return fmt.Errorf("WebSocket read limit must be positive")
	}
	if c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("WebSocket send buffer must be positive")
	}
	if c.Metrics.Interval <= 0 {
		return fmt.Errorf("metrics interval must be positive")
	}
	if c.Redis.Addr != "" && c.Redis.PresenceTTL <= c.Metrics.Interval {
		return fmt.Errorf("presence TTL must exceed the metrics interval")
	}
	if c.NATS.URL != "" && c.NATS.SubjectPrefix == "" {
		return fmt.Errorf("NATS subject prefix cannot be empty")
	}
	if c.NodeID == "" {
		return fmt.Errorf("node id cannot be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func hostname() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "node-1"
}
