package xcache

import (
	"log/slog"
	"time"
)

// =============================================================================
// 选项
// =============================================================================

// Option 定义 Cache 的配置选项。
type Option func(*Options)

// Options Cache 配置。
type Options struct {
	NullTTL          time.Duration // 空值标记 TTL，默认 2m
	RebuildLockTTL   time.Duration // 重建互斥锁 TTL，默认 10s
	RebuildWorkers   int           // 异步重建协程数，默认 10
	RebuildQueue     int           // 异步重建队列容量，默认 100
	RebuildTimeout   time.Duration // 单次异步重建超时，默认 30s
	MaxRetryAttempts int           // 等待他人重建的最大轮询次数，默认 10
	RetryDelay       time.Duration // 轮询间隔，默认 50ms
	Logger           *slog.Logger  // 日志，默认 slog.Default()
}

// defaultOptions 返回默认的 Cache 配置。
func defaultOptions() *Options {
	return &Options{
		NullTTL:          2 * time.Minute,
		RebuildLockTTL:   10 * time.Second,
		RebuildWorkers:   10,
		RebuildQueue:     100,
		RebuildTimeout:   30 * time.Second,
		MaxRetryAttempts: 10,
		RetryDelay:       50 * time.Millisecond,
		Logger:           slog.Default(),
	}
}

// WithNullTTL 设置空值标记的过期时间。
// 空值标记用短 TTL 限制源端新增数据后的不一致窗口。
// 默认值：2 分钟。
func WithNullTTL(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.NullTTL = d
		}
	}
}

// WithRebuildLockTTL 设置重建互斥锁的过期时间。
// 应大于一次回源加载的最坏耗时，否则锁提前释放会放入第二个重建者。
// 默认值：10 秒。
func WithRebuildLockTTL(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.RebuildLockTTL = d
		}
	}
}

// WithRebuildWorkers 设置异步重建的工作协程数与队列容量。
// 队列满时新的重建请求被丢弃（本次查询仍返回旧值，下次过期再触发）。
// 默认值：10 个协程、100 容量。
func WithRebuildWorkers(workers, queue int) Option {
	return func(o *Options) {
		if workers > 0 {
			o.RebuildWorkers = workers
		}
		if queue > 0 {
			o.RebuildQueue = queue
		}
	}
}

// WithRebuildTimeout 设置单次异步重建（回源 + 回写）的超时。
// 默认值：30 秒。
func WithRebuildTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.RebuildTimeout = d
		}
	}
}

// WithRetryPolicy 设置互斥重建策略下等待者的轮询预算。
// 等待上限约为 attempts × delay，超出后返回 ErrRetryExhausted。
// 默认值：10 次、间隔 50ms。
func WithRetryPolicy(attempts int, delay time.Duration) Option {
	return func(o *Options) {
		if attempts > 0 {
			o.MaxRetryAttempts = attempts
		}
		if delay > 0 {
			o.RetryDelay = delay
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
