package xseckill

import (
	"log/slog"
	"time"
)

// =============================================================================
// 选项
// =============================================================================

// Option 定义 Coordinator 的配置选项。
type Option func(*Options)

// Options Coordinator 配置。
type Options struct {
	LockExpiry     time.Duration // 用户锁租约时长，默认 30s
	LockTries      int           // 用户锁尝试次数，默认 1（busy 即拒绝）
	LockRetryDelay time.Duration // 用户锁尝试间隔，默认 50ms
	Logger         *slog.Logger  // 日志，默认 slog.Default()
}

// defaultOptions 返回默认的 Coordinator 配置。
func defaultOptions() *Options {
	return &Options{
		LockExpiry:     30 * time.Second,
		LockTries:      1,
		LockRetryDelay: 50 * time.Millisecond,
		Logger:         slog.Default(),
	}
}

// WithLockExpiry 设置用户锁的租约时长。
// 持有期间 watchdog 自动续期，该值只决定持有者崩溃后的最长残留时间。
// 默认值：30 秒。
func WithLockExpiry(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.LockExpiry = d
		}
	}
}

// WithLockRetry 设置用户锁的尝试次数与间隔。
// 默认单次尝试：同一用户并发请求除第一个外立即以 ReasonOrderInFlight 拒绝，
// 这正是防重复提交想要的行为。
func WithLockRetry(tries int, delay time.Duration) Option {
	return func(o *Options) {
		if tries > 0 {
			o.LockTries = tries
		}
		if delay > 0 {
			o.LockRetryDelay = delay
		}
	}
}

// WithLogger 设置日志记录器。传入 nil 将被忽略。
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}
