package raffle

import "time"

const (
	// DefaultAnimationInterval is the cadence of the cosmetic highlight while a draw is running
	DefaultAnimationInterval = 100 * time.Millisecond

	// DefaultRolloverDelay is the pause between a round-boundary notice and the next draw
	DefaultRolloverDelay = 2 * time.Second

	// MinAnimationInterval is the fastest highlight cadence allowed
	MinAnimationInterval = 10 * time.Millisecond

	// MaxRolloverDelay is the longest round-boundary pause allowed
	MaxRolloverDelay = 1 * time.Minute
)

const (
	// DefaultLockTimeout is the default expiration of the config write lock
	DefaultLockTimeout = 5 * time.Second

	// DefaultRetryAttempts is the default number of retry attempts
	DefaultRetryAttempts = 3

	// DefaultRetryInterval is the default interval between retry attempts
	DefaultRetryInterval = 100 * time.Millisecond

	// MaxRetryAttempts is the maximum number of retry attempts allowed
	MaxRetryAttempts = 10

	// MinLockTimeout is the minimum lock timeout allowed
	MinLockTimeout = 1 * time.Second

	// MaxLockTimeout is the maximum lock timeout allowed
	MaxLockTimeout = 5 * time.Minute

	// MaxRetryDelay caps the exponential backoff between Redis retries
	MaxRetryDelay = 5 * time.Second

	// LockKeyPrefix is the prefix for Redis lock keys
	LockKeyPrefix = "raffle:lock:"

	// DefaultConfigKey is the Redis key holding the persisted raffle configuration
	DefaultConfigKey = "raffle:config"

	// DefaultChangeChannel is the Redis pub/sub channel announcing configuration changes
	DefaultChangeChannel = "raffle:config:changes"

	// MaxConfigPayloadSize is the maximum accepted size of a serialized RaffleConfig (1MB)
	MaxConfigPayloadSize = 1 << 20
)

const (
	// DefaultCircuitBreakerName is the default name for Circuit Breaker
	DefaultCircuitBreakerName = "raffle-config-store"

	// DefaultCircuitBreakerMaxRequests is the default max requests
	DefaultCircuitBreakerMaxRequests = 3

	// DefaultCircuitBreakerInterval is the default interval
	DefaultCircuitBreakerInterval = 60 * time.Second

	// DefaultCircuitBreakerTimeout is the default timeout
	DefaultCircuitBreakerTimeout = 30 * time.Second

	// DefaultCircuitBreakerFailureRatio is the default failure ratio
	DefaultCircuitBreakerFailureRatio = 0.6

	// DefaultCircuitBreakerMinRequests is the default min requests
	DefaultCircuitBreakerMinRequests = 3

	// DefaultCircuitBreakerOnStateChange is the default on state change
	DefaultCircuitBreakerOnStateChange = true
)

const (
	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisPassword     = ""
	DefaultRedisDB           = 0
	DefaultRedisPoolSize     = 10
	DefaultRedisMinIdleConns = 2
	DefaultRedisMaxRetries   = 3
	DefaultRedisDialTimeout  = 5 * time.Second
	DefaultRedisReadTimeout  = 3 * time.Second
	DefaultRedisWriteTimeout = 3 * time.Second
	DefaultRedisPoolTimeout  = 4 * time.Second
)

const (
	DefaultServerAddr   = ":8080"
	DefaultStaticDir    = "./public"
	DefaultManifestPath = "/wrangler.toml"
)
