package raffle

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Write lock strategy:
// - Acquire with SET NX (single round trip)
// - Release with a Lua compare-and-delete so only the owner can release

// releaseLockScript deletes the lock only if it still holds the caller's value
const releaseLockScript = `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`

// WriteLockManager serializes writers of a Redis key across processes
type WriteLockManager struct {
	redisClient   *redis.Client
	lockTimeout   time.Duration
	retryAttempts int
	retryInterval time.Duration
}

// NewLockManager creates a write lock manager with default retry settings
func NewLockManager(redisClient *redis.Client, lockTimeout time.Duration) *WriteLockManager {
	return NewLockManagerWithRetry(redisClient, lockTimeout, DefaultRetryAttempts, DefaultRetryInterval)
}

// NewLockManagerWithRetry creates a write lock manager with custom retry settings
func NewLockManagerWithRetry(
	redisClient *redis.Client, lockTimeout time.Duration, retryAttempts int, retryInterval time.Duration,
) *WriteLockManager {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &WriteLockManager{
		redisClient:   redisClient,
		lockTimeout:   lockTimeout,
		retryAttempts: retryAttempts,
		retryInterval: retryInterval,
	}
}

// AcquireLock tries SET NX up to retryAttempts+1 times. The lock expires after lockTimeout.
func (m *WriteLockManager) AcquireLock(ctx context.Context, lockKey, lockValue string) (bool, error) {
	if lockKey == "" || lockValue == "" {
		return false, ErrInvalidParameters
	}

	fullLockKey := LockKeyPrefix + lockKey

	for attempt := 0; attempt <= m.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(m.retryInterval):
			}
		}

		acquired, err := m.redisClient.SetNX(ctx, fullLockKey, lockValue, m.lockTimeout).Result()
		if err != nil {
			if attempt == m.retryAttempts {
				return false, ErrRedisConnectionFailed.WithCause(err)
			}
			continue
		}

		if acquired {
			return true, nil
		}
	}

	return false, ErrLockAcquisitionFailed.WithDetails(lockKey)
}

// TryAcquireLock makes a single SET NX attempt
func (m *WriteLockManager) TryAcquireLock(ctx context.Context, lockKey, lockValue string) (bool, error) {
	if lockKey == "" || lockValue == "" {
		return false, ErrInvalidParameters
	}

	acquired, err := m.redisClient.SetNX(ctx, LockKeyPrefix+lockKey, lockValue, m.lockTimeout).Result()
	if err != nil {
		return false, ErrRedisConnectionFailed.WithCause(err)
	}
	return acquired, nil
}

// ReleaseLock deletes the lock if lockValue still owns it.
// It returns false without error when the lock expired or belongs to someone else.
func (m *WriteLockManager) ReleaseLock(ctx context.Context, lockKey, lockValue string) (bool, error) {
	if lockKey == "" || lockValue == "" {
		return false, ErrInvalidParameters
	}

	result, err := m.redisClient.Eval(ctx, releaseLockScript, []string{LockKeyPrefix + lockKey}, lockValue).Int64()
	if err != nil {
		return false, ErrRedisConnectionFailed.WithCause(err)
	}
	return result == 1, nil
}

// generateLockValue returns a random token identifying the lock owner
func generateLockValue() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("lock_%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
