package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	WS        WSConfig
	RateLimit RateLimitConfig
	Timer     TimerConfig
	Chat      ChatConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	StaticDir    string // empty disables the SPA file server
}

// RedisConfig holds the optional event feed settings. An empty Addr disables
// the feed.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// Enabled reports whether the event feed is configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// WSConfig holds WebSocket transport settings.
type WSConfig struct {
	MaxMessageBytes   int64
	WriteTimeout      time.Duration
	SendBuffer        int
	MessagesPerSecond float64
	Burst             int
}

// RateLimitConfig holds the per-IP limit of the REST API.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// TimerConfig holds the board countdown settings.
type TimerConfig struct {
	Duration time.Duration
}

// ChatConfig holds chat room settings.
type ChatConfig struct {
	HistoryLimit int
}

// Load reads configuration from environment variables.
// Defaults are suitable for local development.
func Load() (*Config, error) {
	redisDB, err := getEnvInt("MURETRO_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("MURETRO_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("MURETRO_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	maxMessageBytes, err := getEnvInt("MURETRO_WS_MAX_MESSAGE_BYTES", 8<<20)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	wsWriteTimeout, err := getEnvDuration("MURETRO_WS_WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	sendBuffer, err := getEnvInt("MURETRO_WS_SEND_BUFFER", 256)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	wsRate, err := getEnvFloat("MURETRO_WS_MESSAGES_PER_SECOND", 20)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	wsBurst, err := getEnvInt("MURETRO_WS_BURST", 40)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	httpRate, err := getEnvFloat("MURETRO_HTTP_REQUESTS_PER_SECOND", 10)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	httpBurst, err := getEnvInt("MURETRO_HTTP_BURST", 20)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	timerDuration, err := getEnvDuration("MURETRO_TIMER_DURATION", 2*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	chatHistory, err := getEnvInt("MURETRO_CHAT_HISTORY", 200)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("MURETRO_CORS_ORIGINS", []string{"http://localhost:3000"})

	cfg := &Config{
		Server: ServerConfig{
			Addr:         getEnv("MURETRO_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  corsOrigins,
			StaticDir:    getEnv("MURETRO_STATIC_DIR", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("MURETRO_REDIS_ADDR", ""),
			Password: getEnv("MURETRO_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		WS: WSConfig{
			MaxMessageBytes:   int64(maxMessageBytes),
			WriteTimeout:      wsWriteTimeout,
			SendBuffer:        sendBuffer,
			MessagesPerSecond: wsRate,
			Burst:             wsBurst,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: httpRate,
			Burst:             httpBurst,
		},
		Timer: TimerConfig{
			Duration: timerDuration,
		},
		Chat: ChatConfig{
			HistoryLimit: chatHistory,
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks value bounds.
func (c *Config) validate() error {
	if !c.Redis.Enabled() && c.Redis.Password != "" {
		log.Warn().Msg("MURETRO_REDIS_PASSWORD is set but MURETRO_REDIS_ADDR is empty; event feed disabled")
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("MURETRO_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("MURETRO_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("MURETRO_REDIS_DB must be >= 0, got %d", c.Redis.DB)
	}
	if c.WS.MaxMessageBytes < 1 {
		return fmt.Errorf("MURETRO_WS_MAX_MESSAGE_BYTES must be >= 1, got %d", c.WS.MaxMessageBytes)
	}
	if c.WS.WriteTimeout <= 0 {
		return fmt.Errorf("MURETRO_WS_WRITE_TIMEOUT must be positive, got %s", c.WS.WriteTimeout)
	}
	if c.WS.SendBuffer < 1 {
		return fmt.Errorf("MURETRO_WS_SEND_BUFFER must be >= 1, got %d", c.WS.SendBuffer)
	}
	if c.WS.MessagesPerSecond <= 0 {
		return fmt.Errorf("MURETRO_WS_MESSAGES_PER_SECOND must be positive, got %g", c.WS.MessagesPerSecond)
	}
	if c.WS.Burst < 1 {
		return fmt.Errorf("MURETRO_WS_BURST must be >= 1, got %d", c.WS.Burst)
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("MURETRO_HTTP_REQUESTS_PER_SECOND must be positive, got %g", c.RateLimit.RequestsPerSecond)
	}
	if c.RateLimit.Burst < 1 {
		return fmt.Errorf("MURETRO_HTTP_BURST must be >= 1, got %d", c.RateLimit.Burst)
	}
	if c.Timer.Duration <= 0 {
		return fmt.Errorf("MURETRO_TIMER_DURATION must be positive, got %s", c.Timer.Duration)
	}
	if c.Chat.HistoryLimit < 0 {
		return fmt.Errorf("MURETRO_CHAT_HISTORY must be >= 0, got %d", c.Chat.HistoryLimit)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
