package raffle

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
)

// Config 服务配置结构
type Config struct {
	// HTTP 服务配置
	Server *ServerConfig `mapstructure:"server"`

	// Redis 配置
	Redis *RedisConfig `mapstructure:"redis"`

	// 熔断器配置
	CircuitBreaker *CircuitBreakerConfig `mapstructure:"circuit_breaker"`

	// 抽奖配置
	Draw *DrawConfig `mapstructure:"draw"`
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Server == nil || c.Redis == nil || c.CircuitBreaker == nil || c.Draw == nil {
		return ErrConfigInvalid.WithDetails("missing config section")
	}

	if err := c.Draw.Validate(); err != nil {
		return err
	}

	// 验证 Redis 配置
	if c.Redis.Addr == "" {
		return ErrConfigInvalid.WithDetails("redis address is required")
	}
	if c.Redis.PoolSize <= 0 {
		return ErrConfigInvalid.WithDetails("redis pool size must be positive")
	}

	// 验证服务配置
	if c.Server.Addr == "" {
		return ErrConfigInvalid.WithDetails("server address is required")
	}

	// 验证熔断器配置
	if c.CircuitBreaker.FailureRatio < 0 || c.CircuitBreaker.FailureRatio > 1 {
		return ErrConfigInvalid.WithDetails("circuit breaker failure ratio must be within [0, 1]")
	}

	return nil
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr         string `mapstructure:"addr"`
	StaticDir    string `mapstructure:"static_dir"`
	ManifestPath string `mapstructure:"manifest_path"`
}

// DefaultServerConfig 返回默认服务配置
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Addr:         DefaultServerAddr,
		StaticDir:    DefaultStaticDir,
		ManifestPath: DefaultManifestPath,
	}
}

// DrawConfig 抽奖与配置存储参数
type DrawConfig struct {
	ConfigKey         string        `mapstructure:"config_key"`
	ChangeChannel     string        `mapstructure:"change_channel"`
	RosterFile        string        `mapstructure:"roster_file"`
	AnimationInterval time.Duration `mapstructure:"animation_interval"`
	RolloverDelay     time.Duration `mapstructure:"rollover_delay"`
	RetryAttempts     int           `mapstructure:"retry_attempts"`
	RetryInterval     time.Duration `mapstructure:"retry_interval"`
	LockTimeout       time.Duration `mapstructure:"lock_timeout"`
}

// DefaultDrawConfig 返回默认抽奖配置
func DefaultDrawConfig() *DrawConfig {
	return &DrawConfig{
		ConfigKey:         DefaultConfigKey,
		ChangeChannel:     DefaultChangeChannel,
		AnimationInterval: DefaultAnimationInterval,
		RolloverDelay:     DefaultRolloverDelay,
		RetryAttempts:     DefaultRetryAttempts,
		RetryInterval:     DefaultRetryInterval,
		LockTimeout:       DefaultLockTimeout,
	}
}

// Validate 验证抽奖配置
func (c *DrawConfig) Validate() error {
	if c.ConfigKey == "" {
		return ErrConfigInvalid.WithDetails("draw config key is required")
	}
	if c.AnimationInterval < MinAnimationInterval {
		return ErrConfigInvalid.WithDetails(fmt.Sprintf("animation interval must be at least %v", MinAnimationInterval))
	}
	if c.RolloverDelay < 0 || c.RolloverDelay > MaxRolloverDelay {
		return ErrConfigInvalid.WithDetails(fmt.Sprintf("rollover delay must be within [0, %v]", MaxRolloverDelay))
	}
	if c.LockTimeout < MinLockTimeout || c.LockTimeout > MaxLockTimeout {
		return ErrConfigInvalid.WithDetails("lock timeout out of range")
	}
	if c.RetryAttempts < 0 || c.RetryAttempts > MaxRetryAttempts {
		return ErrConfigInvalid.WithDetails("retry attempts out of range")
	}
	if c.RetryInterval < 0 {
		return ErrConfigInvalid.WithDetails("retry interval cannot be negative")
	}
	return nil
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 连接配置
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// 连接池配置
	PoolSize     int `mapstructure:"pool_size"`
	MinIdleConns int `mapstructure:"min_idle_conns"`
	MaxRetries   int `mapstructure:"max_retries"`

	// 超时配置
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
}

// DefaultRedisConfig 返回默认的Redis配置
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         DefaultRedisAddr,
		Password:     DefaultRedisPassword,
		DB:           DefaultRedisDB,
		PoolSize:     DefaultRedisPoolSize,
		MinIdleConns: DefaultRedisMinIdleConns,
		MaxRetries:   DefaultRedisMaxRetries,
		DialTimeout:  DefaultRedisDialTimeout,
		ReadTimeout:  DefaultRedisReadTimeout,
		WriteTimeout: DefaultRedisWriteTimeout,
		PoolTimeout:  DefaultRedisPoolTimeout,
	}
}

// CircuitBreakerConfig 熔断器配置
type CircuitBreakerConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Name          string        `mapstructure:"name"`
	MaxRequests   uint32        `mapstructure:"max_requests"`
	Interval      time.Duration `mapstructure:"interval"`
	Timeout       time.Duration `mapstructure:"timeout"`
	FailureRatio  float64       `mapstructure:"failure_ratio"`
	MinRequests   uint32        `mapstructure:"min_requests"`
	OnStateChange bool          `mapstructure:"on_state_change"`
}

// DefaultCircuitBreakerConfig 返回默认熔断器配置
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Enabled:       true,
		Name:          DefaultCircuitBreakerName,
		MaxRequests:   DefaultCircuitBreakerMaxRequests,
		Interval:      DefaultCircuitBreakerInterval,
		Timeout:       DefaultCircuitBreakerTimeout,
		FailureRatio:  DefaultCircuitBreakerFailureRatio,
		MinRequests:   DefaultCircuitBreakerMinRequests,
		OnStateChange: DefaultCircuitBreakerOnStateChange,
	}
}

// DefaultConfig 返回完整的默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:         DefaultServerConfig(),
		Redis:          DefaultRedisConfig(),
		CircuitBreaker: DefaultCircuitBreakerConfig(),
		Draw:           DefaultDrawConfig(),
	}
}

// ConfigManager 配置管理器
type ConfigManager struct {
	viper  *viper.Viper
	logger Logger

	mu     sync.RWMutex
	config *Config
}

// NewConfigManager 创建配置管理器, 按默认路径搜索 config.yaml
func NewConfigManager() *ConfigManager {
	v := viper.New()

	// 设置配置文件名和路径
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/raffle")
	v.AddConfigPath("$HOME/.raffle")

	return newConfigManager(v)
}

// NewConfigManagerWithFile 创建使用指定配置文件的配置管理器
func NewConfigManagerWithFile(path string) *ConfigManager {
	v := viper.New()
	v.SetConfigFile(path)
	return newConfigManager(v)
}

func newConfigManager(v *viper.Viper) *ConfigManager {
	// 设置环境变量前缀
	v.SetEnvPrefix("RAFFLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cm := &ConfigManager{viper: v, logger: &DefaultLogger{}}
	cm.setDefaults()
	return cm
}

// SetLogger 设置日志记录器
func (cm *ConfigManager) SetLogger(logger Logger) {
	if logger != nil {
		cm.logger = logger
	}
}

// LoadConfig 加载配置
func (cm *ConfigManager) LoadConfig() (*Config, error) {
	// 读取配置文件
	if err := cm.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, ErrConfigInvalid.WithDetails("failed to read config file").WithCause(err)
		}
		// 配置文件不存在时使用默认配置
		cm.logger.Info("No config file found, using defaults")
	}

	config, err := cm.decode()
	if err != nil {
		return nil, err
	}

	cm.mu.Lock()
	cm.config = config
	cm.mu.Unlock()

	return config, nil
}

func (cm *ConfigManager) decode() (*Config, error) {
	config := &Config{}
	if err := cm.viper.Unmarshal(config); err != nil {
		return nil, ErrConfigInvalid.WithDetails("failed to unmarshal config").WithCause(err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// setDefaults 设置默认配置值
func (cm *ConfigManager) setDefaults() {
	// 服务默认配置
	cm.viper.SetDefault("server.addr", DefaultServerAddr)
	cm.viper.SetDefault("server.static_dir", DefaultStaticDir)
	cm.viper.SetDefault("server.manifest_path", DefaultManifestPath)

	// 抽奖默认配置
	cm.viper.SetDefault("draw.config_key", DefaultConfigKey)
	cm.viper.SetDefault("draw.change_channel", DefaultChangeChannel)
	cm.viper.SetDefault("draw.roster_file", "")
	cm.viper.SetDefault("draw.animation_interval", "100ms")
	cm.viper.SetDefault("draw.rollover_delay", "2s")
	cm.viper.SetDefault("draw.retry_attempts", DefaultRetryAttempts)
	cm.viper.SetDefault("draw.retry_interval", "100ms")
	cm.viper.SetDefault("draw.lock_timeout", "5s")

	// Redis 默认配置
	cm.viper.SetDefault("redis.addr", DefaultRedisAddr)
	cm.viper.SetDefault("redis.password", DefaultRedisPassword)
	cm.viper.SetDefault("redis.db", DefaultRedisDB)
	cm.viper.SetDefault("redis.pool_size", DefaultRedisPoolSize)
	cm.viper.SetDefault("redis.min_idle_conns", DefaultRedisMinIdleConns)
	cm.viper.SetDefault("redis.max_retries", DefaultRedisMaxRetries)
	cm.viper.SetDefault("redis.dial_timeout", "5s")
	cm.viper.SetDefault("redis.read_timeout", "3s")
	cm.viper.SetDefault("redis.write_timeout", "3s")
	cm.viper.SetDefault("redis.pool_timeout", "4s")

	// 熔断器默认配置
	cm.viper.SetDefault("circuit_breaker.enabled", true)
	cm.viper.SetDefault("circuit_breaker.name", DefaultCircuitBreakerName)
	cm.viper.SetDefault("circuit_breaker.max_requests", DefaultCircuitBreakerMaxRequests)
	cm.viper.SetDefault("circuit_breaker.interval", "60s")
	cm.viper.SetDefault("circuit_breaker.timeout", "30s")
	cm.viper.SetDefault("circuit_breaker.failure_ratio", DefaultCircuitBreakerFailureRatio)
	cm.viper.SetDefault("circuit_breaker.min_requests", DefaultCircuitBreakerMinRequests)
	cm.viper.SetDefault("circuit_breaker.on_state_change", DefaultCircuitBreakerOnStateChange)
}

// WatchConfig 监听配置文件变化, 校验通过后回调
func (cm *ConfigManager) WatchConfig(callback func(*Config)) {
	cm.viper.OnConfigChange(func(e fsnotify.Event) {
		cm.logger.Info("Config file changed: %s (%s)", e.Name, e.Op)

		config, err := cm.decode()
		if err != nil {
			// 记录错误但不中断服务
			cm.logger.Error("Ignoring invalid config change: %v", err)
			return
		}

		cm.mu.Lock()
		cm.config = config
		cm.mu.Unlock()

		if callback != nil {
			callback(config)
		}
	})
	cm.viper.WatchConfig()
}

// GetConfig 获取当前配置
func (cm *ConfigManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ReloadConfig 重新加载配置
func (cm *ConfigManager) ReloadConfig() (*Config, error) { return cm.LoadConfig() }

// NewRedisClientFromConfig 从配置创建Redis客户端
func NewRedisClientFromConfig(config *RedisConfig) *redis.Client {
	if config == nil {
		config = DefaultRedisConfig()
	}

	return redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		PoolTimeout:  config.PoolTimeout,
	})
}
