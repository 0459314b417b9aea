package raffle

import (
	"sync/atomic"
	"time"
)

// PerformanceMetrics 抽奖与存储指标
type PerformanceMetrics struct {
	// 抽奖统计
	Draws          int64 `json:"draws"`          // 成功配对次数
	Rollovers      int64 `json:"rollovers"`      // 轮次重置次数
	Exhaustions    int64 `json:"exhaustions"`    // 奖品耗尽提示次数
	IgnoredCalls   int64 `json:"ignored_calls"`  // 被忽略的重入调用
	Resets         int64 `json:"resets"`         // 重置次数
	Configurations int64 `json:"configurations"` // 重新配置次数

	// 存储统计
	StoreLoads  int64 `json:"store_loads"`  // 配置读取次数
	StoreSaves  int64 `json:"store_saves"`  // 配置写入次数
	StoreErrors int64 `json:"store_errors"` // 存储错误数
	StoreTime   int64 `json:"store_time"`   // 存储操作总时间(纳秒)

	// 时间戳
	StartTime      int64 `json:"start_time"`       // 开始时间
	LastUpdateTime int64 `json:"last_update_time"` // 最后更新时间
}

// GetAverageStoreTime 获取平均存储操作时间
func (pm *PerformanceMetrics) GetAverageStoreTime() time.Duration {
	ops := atomic.LoadInt64(&pm.StoreLoads) + atomic.LoadInt64(&pm.StoreSaves)
	if ops == 0 {
		return 0
	}
	return time.Duration(atomic.LoadInt64(&pm.StoreTime) / ops)
}

// PerformanceMonitor 性能监控器
type PerformanceMonitor struct {
	metrics PerformanceMetrics
	enabled atomic.Bool
}

// NewPerformanceMonitor 创建新的性能监控器
func NewPerformanceMonitor() *PerformanceMonitor {
	pm := &PerformanceMonitor{}
	pm.enabled.Store(true)
	pm.ResetMetrics()
	return pm
}

// Enable 启用性能监控
func (pm *PerformanceMonitor) Enable() { pm.enabled.Store(true) }

// Disable 禁用性能监控
func (pm *PerformanceMonitor) Disable() { pm.enabled.Store(false) }

// IsEnabled 检查是否启用了性能监控
func (pm *PerformanceMonitor) IsEnabled() bool { return pm.enabled.Load() }

func (pm *PerformanceMonitor) incr(counter *int64) {
	if pm == nil || !pm.IsEnabled() {
		return
	}
	atomic.AddInt64(counter, 1)
	atomic.StoreInt64(&pm.metrics.LastUpdateTime, time.Now().UnixNano())
}

// RecordOutcome 记录抽奖结果
func (pm *PerformanceMonitor) RecordOutcome(outcome Outcome) {
	if pm == nil {
		return
	}
	switch outcome.Kind {
	case OutcomeWinner:
		pm.incr(&pm.metrics.Draws)
	case OutcomeRoundRollover:
		pm.incr(&pm.metrics.Rollovers)
	case OutcomePrizesExhausted, OutcomeNoParticipants:
		pm.incr(&pm.metrics.Exhaustions)
	case OutcomeIgnored:
		pm.incr(&pm.metrics.IgnoredCalls)
	}
}

// RecordReset 记录重置
func (pm *PerformanceMonitor) RecordReset() {
	if pm != nil {
		pm.incr(&pm.metrics.Resets)
	}
}

// RecordConfigure 记录重新配置
func (pm *PerformanceMonitor) RecordConfigure() {
	if pm != nil {
		pm.incr(&pm.metrics.Configurations)
	}
}

// RecordStoreOperation 记录存储操作
func (pm *PerformanceMonitor) RecordStoreOperation(save bool, err error, duration time.Duration) {
	if pm == nil || !pm.IsEnabled() {
		return
	}

	if save {
		atomic.AddInt64(&pm.metrics.StoreSaves, 1)
	} else {
		atomic.AddInt64(&pm.metrics.StoreLoads, 1)
	}
	atomic.AddInt64(&pm.metrics.StoreTime, int64(duration))
	if err != nil {
		atomic.AddInt64(&pm.metrics.StoreErrors, 1)
	}
	atomic.StoreInt64(&pm.metrics.LastUpdateTime, time.Now().UnixNano())
}

// GetMetrics 获取性能指标的副本
func (pm *PerformanceMonitor) GetMetrics() PerformanceMetrics {
	return PerformanceMetrics{
		Draws:          atomic.LoadInt64(&pm.metrics.Draws),
		Rollovers:      atomic.LoadInt64(&pm.metrics.Rollovers),
		Exhaustions:    atomic.LoadInt64(&pm.metrics.Exhaustions),
		IgnoredCalls:   atomic.LoadInt64(&pm.metrics.IgnoredCalls),
		Resets:         atomic.LoadInt64(&pm.metrics.Resets),
		Configurations: atomic.LoadInt64(&pm.metrics.Configurations),
		StoreLoads:     atomic.LoadInt64(&pm.metrics.StoreLoads),
		StoreSaves:     atomic.LoadInt64(&pm.metrics.StoreSaves),
		StoreErrors:    atomic.LoadInt64(&pm.metrics.StoreErrors),
		StoreTime:      atomic.LoadInt64(&pm.metrics.StoreTime),
		StartTime:      atomic.LoadInt64(&pm.metrics.StartTime),
		LastUpdateTime: atomic.LoadInt64(&pm.metrics.LastUpdateTime),
	}
}

// ResetMetrics 重置性能指标
func (pm *PerformanceMonitor) ResetMetrics() {
	for _, counter := range []*int64{
		&pm.metrics.Draws, &pm.metrics.Rollovers, &pm.metrics.Exhaustions,
		&pm.metrics.IgnoredCalls, &pm.metrics.Resets, &pm.metrics.Configurations,
		&pm.metrics.StoreLoads, &pm.metrics.StoreSaves, &pm.metrics.StoreErrors, &pm.metrics.StoreTime,
	} {
		atomic.StoreInt64(counter, 0)
	}
	now := time.Now().UnixNano()
	atomic.StoreInt64(&pm.metrics.StartTime, now)
	atomic.StoreInt64(&pm.metrics.LastUpdateTime, now)
}
