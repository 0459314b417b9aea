package raffle

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode 错误代码类型
type ErrorCode string

// 错误代码常量
const (
	// 系统级错误 (1000-1999)
	ErrCodeSystem          ErrorCode = "RAFFLE_1000"
	ErrCodeRedisConnection ErrorCode = "RAFFLE_1001"
	ErrCodeStorage         ErrorCode = "RAFFLE_1002"
	ErrCodeConfigInvalid   ErrorCode = "RAFFLE_1004"

	// 业务级错误 (2000-2999)
	ErrCodeInvalidParameters ErrorCode = "RAFFLE_2000"
	ErrCodeConfigFormat      ErrorCode = "RAFFLE_2001"

	// 锁相关错误 (3000-3999)
	ErrCodeLockAcquisitionFailed ErrorCode = "RAFFLE_3000"

	// 熔断相关错误 (5000-5999)
	ErrCodeCircuitBreakerOpen ErrorCode = "RAFFLE_5002"
)

// ErrorSeverity 错误严重程度
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "critical"
	SeverityHigh     ErrorSeverity = "high"
	SeverityMedium   ErrorSeverity = "medium"
	SeverityLow      ErrorSeverity = "low"
)

// LotteryError 带错误码的错误类型
type LotteryError struct {
	Code      ErrorCode     `json:"code"`
	Message   string        `json:"message"`
	Details   string        `json:"details,omitempty"`
	Severity  ErrorSeverity `json:"severity"`
	Timestamp time.Time     `json:"timestamp"`
	Operation string        `json:"operation,omitempty"`
	Cause     error         `json:"-"`
	Retryable bool          `json:"retryable"`
}

// Error 实现 error 接口
func (e *LotteryError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap 实现 errors.Unwrap 接口
func (e *LotteryError) Unwrap() error { return e.Cause }

// Is 按错误码比较
func (e *LotteryError) Is(target error) bool {
	if t, ok := target.(*LotteryError); ok {
		return e.Code == t.Code
	}
	return false
}

// clone 返回副本, 避免修改预定义的错误实例
func (e *LotteryError) clone() *LotteryError {
	c := *e
	c.Timestamp = time.Now()
	return &c
}

// WithCause 添加原因错误 (返回副本)
func (e *LotteryError) WithCause(cause error) *LotteryError {
	c := e.clone()
	c.Cause = cause
	return c
}

// WithDetails 添加详细信息 (返回副本)
func (e *LotteryError) WithDetails(details string) *LotteryError {
	c := e.clone()
	c.Details = details
	return c
}

// WithOperation 添加操作信息 (返回副本)
func (e *LotteryError) WithOperation(operation string) *LotteryError {
	c := e.clone()
	c.Operation = operation
	return c
}

// NewError 创建新的错误
func NewError(code ErrorCode, message string) *LotteryError {
	return &LotteryError{
		Code:      code,
		Message:   message,
		Severity:  SeverityMedium,
		Timestamp: time.Now(),
	}
}

// NewRetryableError 创建可重试的错误
func NewRetryableError(code ErrorCode, message string) *LotteryError {
	err := NewError(code, message)
	err.Retryable = true
	return err
}

// NewCriticalError 创建严重错误
func NewCriticalError(code ErrorCode, message string) *LotteryError {
	err := NewError(code, message)
	err.Severity = SeverityCritical
	return err
}

// 预定义的错误实例
var (
	ErrSystemError           = NewCriticalError(ErrCodeSystem, "system error occurred")
	ErrRedisConnectionFailed = NewRetryableError(ErrCodeRedisConnection, "Redis connection failed")
	ErrStorage               = NewRetryableError(ErrCodeStorage, "config storage operation failed")
	ErrConfigInvalid         = NewCriticalError(ErrCodeConfigInvalid, "configuration is invalid")

	ErrInvalidParameters = NewError(ErrCodeInvalidParameters, "invalid parameters provided")
	ErrConfigFormat      = NewError(ErrCodeConfigFormat, "config format error: people and prizes must be arrays of strings")

	ErrLockAcquisitionFailed = NewRetryableError(ErrCodeLockAcquisitionFailed, "failed to acquire config write lock")

	ErrCircuitBreakerOpen = NewRetryableError(ErrCodeCircuitBreakerOpen, "circuit breaker is open")
)

// NewConfigFormatError 创建配置格式错误
func NewConfigFormatError(details string) *LotteryError {
	return ErrConfigFormat.WithDetails(details)
}

// NewStorageError 创建存储错误
func NewStorageError(operation string, cause error) *LotteryError {
	return ErrStorage.WithOperation(operation).WithCause(cause)
}

// IsConfigFormatError reports whether err is a ConfigFormatError
func IsConfigFormatError(err error) bool { return errors.Is(err, ErrConfigFormat) }

// IsStorageError reports whether err is a StorageError
func IsStorageError(err error) bool { return errors.Is(err, ErrStorage) }

// IsRetryableError 检查是否为可重试错误
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var lotteryErr *LotteryError
	if errors.As(err, &lotteryErr) && lotteryErr.Cause == nil {
		return lotteryErr.Retryable
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
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
		"no route to host",
		"redis: connection pool timeout",
		"redis: client is closed",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
