package raffle

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLockManager_AcquireLock(t *testing.T) {
	const key = "raffle:config"
	fullKey := LockKeyPrefix + key

	tests := []struct {
		name        string
		lockKey     string
		lockValue   string
		mockSetup   func(mock redismock.ClientMock)
		expectOK    bool
		expectedErr error
	}{
		{
			name:      "acquired on first attempt",
			lockKey:   key,
			lockValue: "owner-1",
			mockSetup: func(mock redismock.ClientMock) {
				mock.ExpectSetNX(fullKey, "owner-1", time.Second).SetVal(true)
			},
			expectOK: true,
		},
		{
			name:      "acquired after retry",
			lockKey:   key,
			lockValue: "owner-1",
			mockSetup: func(mock redismock.ClientMock) {
				mock.ExpectSetNX(fullKey, "owner-1", time.Second).SetVal(false)
				mock.ExpectSetNX(fullKey, "owner-1", time.Second).SetVal(true)
			},
			expectOK: true,
		},
		{
			name:      "held by another owner",
			lockKey:   key,
			lockValue: "owner-1",
			mockSetup: func(mock redismock.ClientMock) {
				mock.ExpectSetNX(fullKey, "owner-1", time.Second).SetVal(false)
				mock.ExpectSetNX(fullKey, "owner-1", time.Second).SetVal(false)
			},
			expectedErr: ErrLockAcquisitionFailed,
		},
		{
			name:      "redis error",
			lockKey:   key,
			lockValue: "owner-1",
			mockSetup: func(mock redismock.ClientMock) {
				mock.ExpectSetNX(fullKey, "owner-1", time.Second).SetErr(redis.TxFailedErr)
				mock.ExpectSetNX(fullKey, "owner-1", time.Second).SetErr(redis.TxFailedErr)
			},
			expectedErr: ErrRedisConnectionFailed,
		},
		{
			name:        "empty key",
			lockKey:     "",
			lockValue:   "owner-1",
			mockSetup:   func(redismock.ClientMock) {},
			expectedErr: ErrInvalidParameters,
		},
		{
			name:        "empty value",
			lockKey:     key,
			lockValue:   "",
			mockSetup:   func(redismock.ClientMock) {},
			expectedErr: ErrInvalidParameters,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := redismock.NewClientMock()
			manager := NewLockManagerWithRetry(db, time.Second, 1, time.Millisecond)
			tt.mockSetup(mock)

			ok, err := manager.AcquireLock(context.Background(), tt.lockKey, tt.lockValue)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.False(t, ok)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectOK, ok)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestWriteLockManager_ReleaseLock(t *testing.T) {
	fullKey := LockKeyPrefix + "k"

	t.Run("owner releases", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		manager := NewLockManager(db, time.Second)
		mock.ExpectEval(releaseLockScript, []string{fullKey}, "owner").SetVal(int64(1))

		released, err := manager.ReleaseLock(context.Background(), "k", "owner")
		require.NoError(t, err)
		assert.True(t, released)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not the owner", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		manager := NewLockManager(db, time.Second)
		mock.ExpectEval(releaseLockScript, []string{fullKey}, "intruder").SetVal(int64(0))

		released, err := manager.ReleaseLock(context.Background(), "k", "intruder")
		require.NoError(t, err)
		assert.False(t, released)
	})

	t.Run("redis error", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		manager := NewLockManager(db, time.Second)
		mock.ExpectEval(releaseLockScript, []string{fullKey}, "owner").SetErr(redis.TxFailedErr)

		_, err := manager.ReleaseLock(context.Background(), "k", "owner")
		assert.ErrorIs(t, err, ErrRedisConnectionFailed)
	})
}

func TestWriteLockManager_TryAcquireLock(t *testing.T) {
	db, mock := redismock.NewClientMock()
	manager := NewLockManager(db, 0)
	mock.ExpectSetNX(LockKeyPrefix+"k", "owner", DefaultLockTimeout).SetVal(false)

	ok, err := manager.TryAcquireLock(context.Background(), "k", "owner")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateLockValue(t *testing.T) {
	a := generateLockValue()
	b := generateLockValue()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
