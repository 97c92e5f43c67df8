package xcache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// =============================================================================
// Warmer
// =============================================================================

// WarmJob 一次预热动作：回源加载并以逻辑过期信封写入缓存。
type WarmJob func(ctx context.Context) error

// Warmer 按 cron 表达式周期性预热热点数据。
//
// 逻辑过期策略要求数据先写入缓存才可读（冷 key 视为不存在），
// Warmer 就是那个带外写入者：服务启动时做首次灌入，之后周期性刷新，
// 保证信封里的逻辑过期时间不断前移。
type Warmer struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
}

// WarmerOption 定义 Warmer 的配置选项。
type WarmerOption func(*Warmer)

// WithWarmerLogger 设置日志记录器。传入 nil 将被忽略。
func WithWarmerLogger(logger *slog.Logger) WarmerOption {
	return func(w *Warmer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithWarmTimeout 设置单次预热任务的超时。默认 30 秒。
func WithWarmTimeout(d time.Duration) WarmerOption {
	return func(w *Warmer) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// NewWarmer 创建预热器。任务需在 Start 之前通过 Register 注册。
func NewWarmer(opts ...WarmerOption) *Warmer {
	w := &Warmer{
		cron:    cron.New(),
		logger:  slog.Default(),
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Register 注册一个预热任务。
// schedule 支持标准 cron 表达式及 "@every 5m" 形式。
// 上一轮尚未结束时跳过本轮，避免慢源堆积并发预热。
func (w *Warmer) Register(name, schedule string, job WarmJob) error {
	if job == nil {
		return fmt.Errorf("xcache: nil warm job %q", name)
	}

	var running atomic.Bool
	_, err := w.cron.AddFunc(schedule, func() {
		if !running.CompareAndSwap(false, true) {
			w.logger.Warn("xcache: warm job still running, skipped", "job", name)
			return
		}
		defer running.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()
		if err := job(ctx); err != nil {
			w.logger.Error("xcache: warm job failed", "job", name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("xcache: register warm job %q: %w", name, err)
	}
	return nil
}

// Start 启动周期调度。幂等。
func (w *Warmer) Start() {
	w.cron.Start()
}

// Stop 停止调度并等待进行中的任务结束。
func (w *Warmer) Stop() {
	<-w.cron.Stop().Done()
}

// WarmEntity 构造单个实体的预热任务：回源加载后写入逻辑过期信封。
// 源端不存在时清除缓存值。
func WarmEntity[T any](c *Cache, keyPrefix string, id int64, ttl time.Duration, loader Loader[T]) WarmJob {
	return func(ctx context.Context) error {
		key := keyPrefix + strconv.FormatInt(id, 10)
		v, found, err := loader(ctx, id)
		if err != nil {
			return fmt.Errorf("xcache: warm load %q: %w", key, err)
		}
		if !found {
			return c.Invalidate(ctx, key)
		}
		return c.SetWithLogicalExpire(ctx, key, v, ttl)
	}
}
