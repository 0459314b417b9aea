package raffle

import (
	"context"
	"errors"
	"sync"

	"github.com/sony/gobreaker"
)

// BreakerConfigStore 带熔断器的配置存储
type BreakerConfigStore struct {
	store ConfigStore

	mu      sync.RWMutex
	breaker *gobreaker.CircuitBreaker
	logger  Logger
	config  *CircuitBreakerConfig
}

// NewBreakerConfigStore 创建带熔断器的配置存储
func NewBreakerConfigStore(store ConfigStore, config *CircuitBreakerConfig, logger Logger) *BreakerConfigStore {
	if config == nil {
		config = DefaultCircuitBreakerConfig()
	}
	if logger == nil {
		logger = &DefaultLogger{}
	}

	b := &BreakerConfigStore{
		store:  store,
		logger: logger,
		config: config,
	}
	if config.Enabled {
		b.breaker = b.newBreaker()
	}
	return b
}

func (b *BreakerConfigStore) newBreaker() *gobreaker.CircuitBreaker {
	config := b.config
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// 当请求数达到最小要求且失败率超过阈值时触发熔断
			return counts.Requests >= config.MinRequests &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= config.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if config.OnStateChange {
				b.logger.Info("Circuit breaker '%s' state changed from %s to %s", name, from, to)
			}
		},
		// 配置格式错误是调用方的问题, 不计入失败
		IsSuccessful: func(err error) bool {
			return err == nil || IsConfigFormatError(err)
		},
	})
}

func (b *BreakerConfigStore) currentBreaker() *gobreaker.CircuitBreaker {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.breaker
}

// executeWithBreaker 使用熔断器执行操作
func (b *BreakerConfigStore) executeWithBreaker(operation func() (any, error)) (any, error) {
	breaker := b.currentBreaker()
	if breaker == nil {
		// 熔断器未启用，直接执行
		return operation()
	}

	result, err := breaker.Execute(operation)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			return nil, ErrCircuitBreakerOpen.WithDetails("circuit breaker is open, requests are being rejected")
		}
		if errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitBreakerOpen.WithDetails("too many requests, circuit breaker is half-open")
		}
	}

	return result, err
}

// Load 读取配置
func (b *BreakerConfigStore) Load(ctx context.Context) (*RaffleConfig, error) {
	result, err := b.executeWithBreaker(func() (any, error) {
		return b.store.Load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(*RaffleConfig), nil
}

// Save 保存配置
func (b *BreakerConfigStore) Save(ctx context.Context, cfg *RaffleConfig) error {
	_, err := b.executeWithBreaker(func() (any, error) {
		return nil, b.store.Save(ctx, cfg)
	})
	return err
}

// GetCircuitBreakerState 获取熔断器状态
func (b *BreakerConfigStore) GetCircuitBreakerState() string {
	breaker := b.currentBreaker()
	if breaker == nil {
		return "disabled"
	}

	switch breaker.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// GetCircuitBreakerCounts 获取熔断器统计信息
func (b *BreakerConfigStore) GetCircuitBreakerCounts() gobreaker.Counts {
	breaker := b.currentBreaker()
	if breaker == nil {
		return gobreaker.Counts{}
	}
	return breaker.Counts()
}

// ResetCircuitBreaker 重置熔断器 (重新创建熔断器实例)
func (b *BreakerConfigStore) ResetCircuitBreaker() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.breaker == nil {
		return
	}
	// gobreaker 没有 Reset 方法，重新创建一个实例
	b.breaker = b.newBreaker()
	b.logger.Info("Circuit breaker '%s' has been reset (recreated)", b.config.Name)
}

// CircuitBreakerHealthCheck 熔断器健康检查
type CircuitBreakerHealthCheck struct {
	store *BreakerConfigStore
}

// NewCircuitBreakerHealthCheck 创建熔断器健康检查
func NewCircuitBreakerHealthCheck(store *BreakerConfigStore) *CircuitBreakerHealthCheck {
	return &CircuitBreakerHealthCheck{store: store}
}

// Check 执行健康检查
func (h *CircuitBreakerHealthCheck) Check() map[string]any {
	result := map[string]any{
		"circuit_breaker_enabled": h.store.config.Enabled,
	}

	state := h.store.GetCircuitBreakerState()
	if state == "disabled" {
		result["state"] = state
		result["healthy"] = true
		return result
	}

	counts := h.store.GetCircuitBreakerCounts()
	result["state"] = state
	result["requests"] = counts.Requests
	result["total_successes"] = counts.TotalSuccesses
	result["total_failures"] = counts.TotalFailures
	result["consecutive_successes"] = counts.ConsecutiveSuccesses
	result["consecutive_failures"] = counts.ConsecutiveFailures

	if counts.Requests > 0 {
		result["success_rate"] = float64(counts.TotalSuccesses) / float64(counts.Requests)
		result["failure_rate"] = float64(counts.TotalFailures) / float64(counts.Requests)
	} else {
		result["success_rate"] = 0.0
		result["failure_rate"] = 0.0
	}

	// 健康状态判断
	healthy := true
	switch state {
	case "open":
		healthy = false
	case "half-open":
		// 半开状态下，如果连续失败次数过多，认为不健康
		if counts.ConsecutiveFailures > 2 {
			healthy = false
		}
	}
	result["healthy"] = healthy

	return result
}
