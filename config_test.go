package raffle

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestConfigManager_LoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		env         map[string]string
		expectError bool
		validate    func(*testing.T, *Config)
	}{
		{
			name:    "default_values",
			content: "server:\n  addr: \":8080\"\n",
			validate: func(t *testing.T, config *Config) {
				assert.Equal(t, DefaultServerAddr, config.Server.Addr)
				assert.Equal(t, DefaultStaticDir, config.Server.StaticDir)
				assert.Equal(t, DefaultManifestPath, config.Server.ManifestPath)
				assert.Equal(t, DefaultRedisAddr, config.Redis.Addr)
				assert.Equal(t, DefaultConfigKey, config.Draw.ConfigKey)
				assert.Equal(t, DefaultChangeChannel, config.Draw.ChangeChannel)
				assert.Equal(t, DefaultAnimationInterval, config.Draw.AnimationInterval)
				assert.Equal(t, DefaultRolloverDelay, config.Draw.RolloverDelay)
				assert.Equal(t, DefaultLockTimeout, config.Draw.LockTimeout)
				assert.True(t, config.CircuitBreaker.Enabled)
				assert.Equal(t, DefaultCircuitBreakerFailureRatio, config.CircuitBreaker.FailureRatio)
			},
		},
		{
			name: "file_values",
			content: `server:
  addr: ":9090"
  static_dir: "./web"
redis:
  addr: "redis:6379"
  db: 2
draw:
  roster_file: "roster.yaml"
  animation_interval: 50ms
  rollover_delay: 0s
circuit_breaker:
  enabled: false
`,
			validate: func(t *testing.T, config *Config) {
				assert.Equal(t, ":9090", config.Server.Addr)
				assert.Equal(t, "./web", config.Server.StaticDir)
				assert.Equal(t, "redis:6379", config.Redis.Addr)
				assert.Equal(t, 2, config.Redis.DB)
				assert.Equal(t, "roster.yaml", config.Draw.RosterFile)
				assert.Equal(t, 50*time.Millisecond, config.Draw.AnimationInterval)
				assert.Equal(t, time.Duration(0), config.Draw.RolloverDelay)
				assert.False(t, config.CircuitBreaker.Enabled)
			},
		},
		{
			name:    "environment_variables",
			content: "draw:\n  rollover_delay: 1s\n",
			env: map[string]string{
				"RAFFLE_DRAW_ROLLOVER_DELAY": "500ms",
				"RAFFLE_REDIS_ADDR":          "redis-cluster:6379",
			},
			validate: func(t *testing.T, config *Config) {
				assert.Equal(t, 500*time.Millisecond, config.Draw.RolloverDelay)
				assert.Equal(t, "redis-cluster:6379", config.Redis.Addr)
			},
		},
		{
			name:        "animation_interval_too_small",
			content:     "draw:\n  animation_interval: 1ms\n",
			expectError: true,
		},
		{
			name:        "rollover_delay_too_large",
			content:     "draw:\n  rollover_delay: 10m\n",
			expectError: true,
		},
		{
			name:        "invalid_failure_ratio",
			content:     "circuit_breaker:\n  failure_ratio: 1.5\n",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cm := NewConfigManagerWithFile(writeConfigFile(t, t.TempDir(), tt.content))
			cm.SetLogger(NewSilentLogger())

			config, err := cm.LoadConfig()
			if tt.expectError {
				assert.Error(t, err)
				assert.ErrorIs(t, err, ErrConfigInvalid)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, config)
			assert.Same(t, config, cm.GetConfig())
			tt.validate(t, config)
		})
	}
}

func TestConfigManager_NoConfigFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cm := NewConfigManager()
	cm.SetLogger(NewSilentLogger())

	config, err := cm.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Draw, config.Draw)
	assert.Equal(t, DefaultConfig().Server, config.Server)
}

func TestConfigManager_WatchConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "draw:\n  rollover_delay: 1s\n")

	cm := NewConfigManagerWithFile(path)
	cm.SetLogger(NewSilentLogger())
	_, err := cm.LoadConfig()
	require.NoError(t, err)

	var latest atomic.Pointer[Config]
	cm.WatchConfig(func(c *Config) { latest.Store(c) })

	// 给 watcher 启动留出时间
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("draw:\n  rollover_delay: 3s\n"), 0o644))

	assert.Eventually(t, func() bool {
		c := latest.Load()
		return c != nil && c.Draw.RolloverDelay == 3*time.Second
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 3*time.Second, cm.GetConfig().Draw.RolloverDelay)
}

func TestDrawConfig_Validate(t *testing.T) {
	t.Run("默认配置有效", func(t *testing.T) {
		assert.NoError(t, DefaultDrawConfig().Validate())
		assert.NoError(t, DefaultConfig().Validate())
	})

	t.Run("缺少配置段", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Draw = nil
		assert.ErrorIs(t, cfg.Validate(), ErrConfigInvalid)
	})

	t.Run("锁超时越界", func(t *testing.T) {
		cfg := DefaultDrawConfig()
		cfg.LockTimeout = 10 * time.Millisecond
		assert.ErrorIs(t, cfg.Validate(), ErrConfigInvalid)
	})

	t.Run("重试次数越界", func(t *testing.T) {
		cfg := DefaultDrawConfig()
		cfg.RetryAttempts = MaxRetryAttempts + 1
		assert.ErrorIs(t, cfg.Validate(), ErrConfigInvalid)
	})

	t.Run("空配置键", func(t *testing.T) {
		cfg := DefaultDrawConfig()
		cfg.ConfigKey = ""
		assert.ErrorIs(t, cfg.Validate(), ErrConfigInvalid)
	})
}

func TestNewRedisClientFromConfig(t *testing.T) {
	client := NewRedisClientFromConfig(nil)
	defer client.Close()
	assert.Equal(t, DefaultRedisAddr, client.Options().Addr)

	custom := DefaultRedisConfig()
	custom.Addr = "redis:6380"
	custom.DB = 3
	client2 := NewRedisClientFromConfig(custom)
	defer client2.Close()
	assert.Equal(t, "redis:6380", client2.Options().Addr)
	assert.Equal(t, 3, client2.Options().DB)
}
