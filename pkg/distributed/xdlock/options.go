package xdlock

import (
	"log/slog"
	"time"
)

// =============================================================================
// LeaseLock 选项
// =============================================================================

// LeaseOption 定义 LeaseLock 的配置选项。
type LeaseOption func(*leaseOptions)

// leaseOptions LeaseLock 配置。
type leaseOptions struct {
	Expiry     time.Duration // 租约时长，默认 30s
	Tries      int           // 获取锁的最大尝试次数，默认 1（不等待）
	RetryDelay time.Duration // 尝试间隔，默认 200ms
	Logger     *slog.Logger  // watchdog 日志，默认 slog.Default()
}

// defaultLeaseOptions 返回默认的 LeaseLock 配置。
func defaultLeaseOptions() *leaseOptions {
	return &leaseOptions{
		Expiry:     30 * time.Second,
		Tries:      1,
		RetryDelay: 200 * time.Millisecond,
		Logger:     slog.Default(),
	}
}

// WithExpiry 设置租约时长。
// watchdog 以租约时长的 1/3 为周期续期；持有者崩溃后，
// 锁最迟在最后一次续期后一个租约时长内自动释放。
// 默认值：30 秒。
func WithExpiry(d time.Duration) LeaseOption {
	return func(o *leaseOptions) {
		if d > 0 {
			o.Expiry = d
		}
	}
}

// WithTries 设置获取锁的最大尝试次数。
// 1 表示单次尝试、立即返回（防重复提交场景的推荐值）。
// 默认值：1。
func WithTries(n int) LeaseOption {
	return func(o *leaseOptions) {
		if n > 0 {
			o.Tries = n
		}
	}
}

// WithRetryDelay 设置两次尝试之间的等待时间。
// 有界等待上限约为 Tries × RetryDelay。
// 默认值：200ms。
func WithRetryDelay(d time.Duration) LeaseOption {
	return func(o *leaseOptions) {
		if d > 0 {
			o.RetryDelay = d
		}
	}
}

// WithLogger 设置 watchdog 的日志记录器。
// 默认使用 slog.Default()。传入 nil 将被忽略。
func WithLogger(logger *slog.Logger) LeaseOption {
	return func(o *leaseOptions) {
		if logger != nil {
			o.Logger = logger
		}
	}
}
