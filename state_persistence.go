package raffle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisConfigStore persists the raffle configuration as one JSON value in Redis.
//
// Writers are serialized with a SET NX lock, and every successful write is
// published on the change channel so other sessions can pick it up.
type RedisConfigStore struct {
	redisClient    *redis.Client
	logger         Logger
	key            string
	channel        string
	retryAttempts  int
	retryBaseDelay time.Duration

	lockManager  *WriteLockManager
	newLockValue func() string

	performanceMonitor *PerformanceMonitor
}

// NewRedisConfigStore creates a Redis store with the default key, channel and retry settings
func NewRedisConfigStore(redisClient *redis.Client, logger Logger) *RedisConfigStore {
	return NewRedisConfigStoreWithConfig(redisClient, DefaultDrawConfig(), logger)
}

// NewRedisConfigStoreWithConfig creates a Redis store from the draw section of the service config
func NewRedisConfigStoreWithConfig(redisClient *redis.Client, cfg *DrawConfig, logger Logger) *RedisConfigStore {
	if cfg == nil {
		cfg = DefaultDrawConfig()
	}
	if logger == nil {
		logger = &DefaultLogger{}
	}

	key := cfg.ConfigKey
	if key == "" {
		key = DefaultConfigKey
	}

	return &RedisConfigStore{
		redisClient:    redisClient,
		logger:         logger,
		key:            key,
		channel:        cfg.ChangeChannel,
		retryAttempts:  cfg.RetryAttempts,
		retryBaseDelay: cfg.RetryInterval,
		lockManager:    NewLockManagerWithRetry(redisClient, cfg.LockTimeout, cfg.RetryAttempts, cfg.RetryInterval),
		newLockValue:   generateLockValue,

		performanceMonitor: NewPerformanceMonitor(),
	}
}

// SetPerformanceMonitor shares a monitor with the store
func (s *RedisConfigStore) SetPerformanceMonitor(monitor *PerformanceMonitor) {
	if monitor != nil {
		s.performanceMonitor = monitor
	}
}

// Key returns the Redis key holding the configuration
func (s *RedisConfigStore) Key() string { return s.key }

// Channel returns the pub/sub channel announcing configuration changes
func (s *RedisConfigStore) Channel() string { return s.channel }

// Load reads the stored configuration. A missing key yields the compiled-in
// defaults, and so does a stored value that cannot be parsed; only Redis
// failures are reported, as StorageError.
func (s *RedisConfigStore) Load(ctx context.Context) (*RaffleConfig, error) {
	s.logger.Debug("Loading raffle config from Redis: key=%s", s.key)

	var data []byte
	var err error

	loadStart := time.Now()
	err = s.executeWithRetry(ctx, fmt.Sprintf("load[%s]", s.key), func() error {
		data, err = s.redisClient.Get(ctx, s.key).Bytes()
		if errors.Is(err, redis.Nil) {
			// 键不存在不是错误, 不重试
			data = nil
			return nil
		}
		return err
	})
	s.performanceMonitor.RecordStoreOperation(false, err, time.Since(loadStart))

	if err != nil {
		s.logger.Error("Failed to load raffle config: key=%s, error=%v", s.key, err)
		return nil, NewStorageError("load", err)
	}

	if len(data) == 0 {
		s.logger.Debug("No stored raffle config, using defaults: key=%s", s.key)
		return DefaultRaffleConfig(), nil
	}

	cfg, err := ParseRaffleConfig(data)
	if err != nil {
		s.logger.Error("Stored raffle config is malformed, using defaults: key=%s, size=%d bytes, error=%v",
			s.key, len(data), err)
		return DefaultRaffleConfig(), nil
	}

	s.logger.Debug("Loaded raffle config: key=%s, people=%d, prizes=%d", s.key, len(cfg.People), len(cfg.Prizes))
	return cfg, nil
}

// Save validates and stores cfg, then publishes it on the change channel.
// Validation failures are returned as ConfigFormatError and never reach Redis.
func (s *RedisConfigStore) Save(ctx context.Context, cfg *RaffleConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return ErrConfigFormat.WithCause(err)
	}
	if len(data) > MaxConfigPayloadSize {
		return NewConfigFormatError(fmt.Sprintf("payload size %d exceeds %d bytes", len(data), MaxConfigPayloadSize))
	}

	saveStart := time.Now()
	err = s.save(ctx, string(data))
	s.performanceMonitor.RecordStoreOperation(true, err, time.Since(saveStart))
	if err != nil {
		return err
	}

	s.logger.Info("Saved raffle config: key=%s, people=%d, prizes=%d", s.key, len(cfg.People), len(cfg.Prizes))
	return nil
}

func (s *RedisConfigStore) save(ctx context.Context, payload string) error {
	lockValue := s.newLockValue()
	// AcquireLock reports contention as ErrLockAcquisitionFailed, never as (false, nil)
	if _, err := s.lockManager.AcquireLock(ctx, s.key, lockValue); err != nil {
		s.logger.Error("Failed to acquire write lock: key=%s, error=%v", s.key, err)
		return NewStorageError("save", err)
	}
	defer func() {
		if released, err := s.lockManager.ReleaseLock(ctx, s.key, lockValue); err != nil {
			s.logger.Error("Failed to release write lock: key=%s, error=%v", s.key, err)
		} else if !released {
			s.logger.Debug("Write lock already expired: key=%s", s.key)
		}
	}()

	err := s.executeWithRetry(ctx, fmt.Sprintf("save[%s]", s.key), func() error {
		return s.redisClient.Set(ctx, s.key, payload, 0).Err()
	})
	if err != nil {
		s.logger.Error("Failed to save raffle config: key=%s, size=%d bytes, error=%v", s.key, len(payload), err)
		return NewStorageError("save", err)
	}

	if s.channel != "" {
		// 通知失败不影响已写入的配置
		if err := s.redisClient.Publish(ctx, s.channel, payload).Err(); err != nil {
			s.logger.Error("Failed to publish config change: channel=%s, error=%v", s.channel, err)
		}
	}
	return nil
}

// isRetriableRedisError checks if a Redis error is retriable
func isRetriableRedisError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	retriableErrors := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"network is unreachable",
		"temporary failure",
		"server closed",
		"broken pipe",
		"i/o timeout",
		"dial tcp",
		"read tcp",
		"write tcp",
		"connection timed out",
		"no route to host",
		"redis: connection pool timeout",
		"redis: client is closed",
	}

	for _, retriableErr := range retriableErrors {
		if strings.Contains(errStr, retriableErr) {
			return true
		}
	}

	return false
}

// executeWithRetry runs fn, retrying retriable errors with exponential backoff
func (s *RedisConfigStore) executeWithRetry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	startTime := time.Now()

	for attempt := 0; attempt <= s.retryAttempts; attempt++ {
		if attempt > 0 {
			// baseDelay * 2^(attempt-1)
			delay := time.Duration(1<<(attempt-1)) * s.retryBaseDelay
			if delay > MaxRetryDelay {
				delay = MaxRetryDelay
			}

			s.logger.Debug("Retrying %s operation (attempt %d/%d) after %v, total elapsed: %v",
				operation, attempt, s.retryAttempts, delay, time.Since(startTime))

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during retry for %s operation (attempt %d/%d): %w",
					operation, attempt, s.retryAttempts+1, ctx.Err())
			case <-time.After(delay):
			}
		}

		err := fn()
		if err == nil {
			if attempt > 0 {
				s.logger.Info("Completed %s operation after %d retries in %v", operation, attempt, time.Since(startTime))
			}
			return nil
		}

		lastErr = err
		if !isRetriableRedisError(err) {
			s.logger.Debug("Non-retriable error for %s operation (attempt %d): %v", operation, attempt+1, err)
			break
		}

		if attempt == s.retryAttempts {
			s.logger.Error("Final retry attempt failed for %s operation (attempt %d/%d): %v",
				operation, attempt+1, s.retryAttempts+1, err)
		}
	}

	return fmt.Errorf("%s operation failed after %v: %w", operation, time.Since(startTime), lastErr)
}
