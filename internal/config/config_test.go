package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helper function tests
// ---------------------------------------------------------------------------

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string // nil = don't set; pointer to distinguish "" from unset
		fallback string
		want     string
	}{
		{name: "returns fallback when unset", key: "MURETRO_TEST_GETENV_UNSET", setVal: nil, fallback: "default", want: "default"},
		{name: "returns env value when set", key: "MURETRO_TEST_GETENV_SET", setVal: strPtr("custom"), fallback: "default", want: "custom"},
		{name: "returns fallback when empty string", key: "MURETRO_TEST_GETENV_EMPTY", setVal: strPtr(""), fallback: "default", want: "default"},
		{name: "preserves whitespace", key: "MURETRO_TEST_GETENV_WS", setVal: strPtr("  spaced  "), fallback: "x", want: "  spaced  "},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got := getEnv(tc.key, tc.fallback)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback int
		want     int
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "MURETRO_TEST_INT_UNSET", setVal: nil, fallback: 42, want: 42},
		{name: "parses valid int", key: "MURETRO_TEST_INT_VALID", setVal: strPtr("8080"), fallback: 0, want: 8080},
		{name: "parses negative int", key: "MURETRO_TEST_INT_NEG", setVal: strPtr("-1"), fallback: 0, want: -1},
		{name: "parses zero", key: "MURETRO_TEST_INT_ZERO", setVal: strPtr("0"), fallback: 99, want: 0},
		{name: "returns fallback for empty string", key: "MURETRO_TEST_INT_EMPTY", setVal: strPtr(""), fallback: 25, want: 25},
		{name: "errors on non-numeric", key: "MURETRO_TEST_INT_NAN", setVal: strPtr("abc"), fallback: 0, wantErr: true},
		{name: "errors on float", key: "MURETRO_TEST_INT_FLOAT", setVal: strPtr("3.14"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvInt(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvFloat(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback float64
		want     float64
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "MURETRO_TEST_FLOAT_UNSET", setVal: nil, fallback: 2.5, want: 2.5},
		{name: "parses integer", key: "MURETRO_TEST_FLOAT_INT", setVal: strPtr("20"), fallback: 0, want: 20},
		{name: "parses fraction", key: "MURETRO_TEST_FLOAT_FRAC", setVal: strPtr("0.5"), fallback: 0, want: 0.5},
		{name: "errors on garbage", key: "MURETRO_TEST_FLOAT_BAD", setVal: strPtr("fast"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvFloat(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback time.Duration
		want     time.Duration
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "MURETRO_TEST_DUR_UNSET", setVal: nil, fallback: 5 * time.Second, want: 5 * time.Second},
		{name: "parses seconds", key: "MURETRO_TEST_DUR_SEC", setVal: strPtr("30s"), fallback: 0, want: 30 * time.Second},
		{name: "parses composite", key: "MURETRO_TEST_DUR_COMP", setVal: strPtr("1m30s"), fallback: 0, want: 90 * time.Second},
		{name: "errors on invalid", key: "MURETRO_TEST_DUR_INV", setVal: strPtr("notaduration"), fallback: 0, wantErr: true},
		{name: "errors on bare number", key: "MURETRO_TEST_DUR_BARE", setVal: strPtr("30"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvDuration(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("MURETRO_TEST_LIST", " http://a.test , ,http://b.test")

	assert.Equal(t, []string{"http://a.test", "http://b.test"}, getEnvList("MURETRO_TEST_LIST", nil))
	assert.Equal(t, []string{"x"}, getEnvList("MURETRO_TEST_LIST_UNSET", []string{"x"}))
}

// ---------------------------------------------------------------------------
// Load() error cases
// ---------------------------------------------------------------------------

func TestLoad_InvalidEnvVars(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
	}{
		{name: "REDIS_DB not a number", envKey: "MURETRO_REDIS_DB", envVal: "abc"},
		{name: "REDIS_DB negative", envKey: "MURETRO_REDIS_DB", envVal: "-1"},
		{name: "SERVER_READ_TIMEOUT invalid", envKey: "MURETRO_SERVER_READ_TIMEOUT", envVal: "notduration"},
		{name: "SERVER_WRITE_TIMEOUT zero", envKey: "MURETRO_SERVER_WRITE_TIMEOUT", envVal: "0s"},
		{name: "WS_MAX_MESSAGE_BYTES zero", envKey: "MURETRO_WS_MAX_MESSAGE_BYTES", envVal: "0"},
		{name: "WS_WRITE_TIMEOUT negative", envKey: "MURETRO_WS_WRITE_TIMEOUT", envVal: "-1s"},
		{name: "WS_SEND_BUFFER zero", envKey: "MURETRO_WS_SEND_BUFFER", envVal: "0"},
		{name: "WS_MESSAGES_PER_SECOND garbage", envKey: "MURETRO_WS_MESSAGES_PER_SECOND", envVal: "lots"},
		{name: "WS_MESSAGES_PER_SECOND zero", envKey: "MURETRO_WS_MESSAGES_PER_SECOND", envVal: "0"},
		{name: "WS_BURST zero", envKey: "MURETRO_WS_BURST", envVal: "0"},
		{name: "HTTP_REQUESTS_PER_SECOND negative", envKey: "MURETRO_HTTP_REQUESTS_PER_SECOND", envVal: "-3"},
		{name: "HTTP_BURST not a number", envKey: "MURETRO_HTTP_BURST", envVal: "many"},
		{name: "TIMER_DURATION zero", envKey: "MURETRO_TIMER_DURATION", envVal: "0s"},
		{name: "TIMER_DURATION bare number", envKey: "MURETRO_TIMER_DURATION", envVal: "120"},
		{name: "CHAT_HISTORY negative", envKey: "MURETRO_CHAT_HISTORY", envVal: "-1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.envKey, tc.envVal)

			cfg, err := Load()
			require.Error(t, err, "expected error for %s=%q", tc.envKey, tc.envVal)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tc.envKey)
		})
	}
}

// ---------------------------------------------------------------------------
// Load() happy paths
// ---------------------------------------------------------------------------

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Server defaults.
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.Empty(t, cfg.Server.StaticDir)

	// Redis is off unless configured.
	assert.Empty(t, cfg.Redis.Addr)
	assert.False(t, cfg.Redis.Enabled())

	// WebSocket defaults.
	assert.Equal(t, int64(8<<20), cfg.WS.MaxMessageBytes)
	assert.Equal(t, 10*time.Second, cfg.WS.WriteTimeout)
	assert.Equal(t, 256, cfg.WS.SendBuffer)
	assert.InDelta(t, 20.0, cfg.WS.MessagesPerSecond, 1e-9)
	assert.Equal(t, 40, cfg.WS.Burst)

	assert.InDelta(t, 10.0, cfg.RateLimit.RequestsPerSecond, 1e-9)
	assert.Equal(t, 20, cfg.RateLimit.Burst)

	assert.Equal(t, 2*time.Minute, cfg.Timer.Duration)
	assert.Equal(t, 200, cfg.Chat.HistoryLimit)
}

func TestLoad_AllCustomValues(t *testing.T) {
	envs := map[string]string{
		"MURETRO_SERVER_ADDR":              ":9090",
		"MURETRO_SERVER_READ_TIMEOUT":      "5s",
		"MURETRO_SERVER_WRITE_TIMEOUT":     "15s",
		"MURETRO_CORS_ORIGINS":             "https://retro.example.com,https://admin.example.com",
		"MURETRO_STATIC_DIR":               "/srv/muretro",
		"MURETRO_REDIS_ADDR":               "redis.prod:6380",
		"MURETRO_REDIS_PASSWORD":           "redis-pass",
		"MURETRO_REDIS_DB":                 "3",
		"MURETRO_WS_MAX_MESSAGE_BYTES":     "1024",
		"MURETRO_WS_WRITE_TIMEOUT":         "2s",
		"MURETRO_WS_SEND_BUFFER":           "16",
		"MURETRO_WS_MESSAGES_PER_SECOND":   "0.5",
		"MURETRO_WS_BURST":                 "3",
		"MURETRO_HTTP_REQUESTS_PER_SECOND": "100",
		"MURETRO_HTTP_BURST":               "200",
		"MURETRO_TIMER_DURATION":           "5m",
		"MURETRO_CHAT_HISTORY":             "0",
	}

	for k, v := range envs {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, []string{"https://retro.example.com", "https://admin.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "/srv/muretro", cfg.Server.StaticDir)

	assert.Equal(t, "redis.prod:6380", cfg.Redis.Addr)
	assert.Equal(t, "redis-pass", cfg.Redis.Password)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.True(t, cfg.Redis.Enabled())

	assert.Equal(t, int64(1024), cfg.WS.MaxMessageBytes)
	assert.Equal(t, 2*time.Second, cfg.WS.WriteTimeout)
	assert.Equal(t, 16, cfg.WS.SendBuffer)
	assert.InDelta(t, 0.5, cfg.WS.MessagesPerSecond, 1e-9)
	assert.Equal(t, 3, cfg.WS.Burst)

	assert.InDelta(t, 100.0, cfg.RateLimit.RequestsPerSecond, 1e-9)
	assert.Equal(t, 200, cfg.RateLimit.Burst)

	assert.Equal(t, 5*time.Minute, cfg.Timer.Duration)
	assert.Equal(t, 0, cfg.Chat.HistoryLimit)
}

// ---------------------------------------------------------------------------
// validate() direct tests
// ---------------------------------------------------------------------------

func TestValidate(t *testing.T) {
	t.Parallel()

	// validBase returns a Config that passes validation.
	validBase := func() *Config {
		return &Config{
			Server: ServerConfig{
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 30 * time.Second,
			},
			WS: WSConfig{
				MaxMessageBytes:   1 << 20,
				WriteTimeout:      time.Second,
				SendBuffer:        8,
				MessagesPerSecond: 1,
				Burst:             1,
			},
			RateLimit: RateLimitConfig{RequestsPerSecond: 1, Burst: 1},
			Timer:     TimerConfig{Duration: time.Minute},
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, validBase().validate())
	})

	t.Run("password without addr only warns", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Redis.Password = "orphan"
		assert.NoError(t, c.validate())
	})

	t.Run("ReadTimeout 0 fails", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Server.ReadTimeout = 0
		assert.ErrorContains(t, c.validate(), "MURETRO_SERVER_READ_TIMEOUT")
	})

	t.Run("SendBuffer 1 passes", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.WS.SendBuffer = 1
		assert.NoError(t, c.validate())
	})

	t.Run("timer duration 1ns passes", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Timer.Duration = time.Nanosecond
		assert.NoError(t, c.validate())
	})

	t.Run("timer duration negative fails", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Timer.Duration = -time.Second
		assert.ErrorContains(t, c.validate(), "MURETRO_TIMER_DURATION")
	})
}

// ---------------------------------------------------------------------------
// Test helper
// ---------------------------------------------------------------------------

func strPtr(s string) *string {
	return &s
}
