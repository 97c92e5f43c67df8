package xcache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/Shiyi1001/hm-dianping/pkg/util/xpool"
)

// =============================================================================
// Cache
// =============================================================================

// Loader 回源加载函数。
// found=false 表示源端确认不存在（将被缓存为空值标记）；
// error 表示源端暂时不可用，不会污染缓存。
type Loader[T any] func(ctx context.Context, id int64) (T, bool, error)

// envelope 逻辑过期策略的值信封。
// 过期时间存在值里而非 Redis TTL，值本身永不物理过期。
// 采用 JSON 编码，redis-cli 下可直接阅读排查。
type envelope struct {
	Data       json.RawMessage `json:"data"`
	ExpireTime time.Time       `json:"expireTime"`
}

// Cache 基于 Redis 的读缓存层。
//
// 一个 Cache 实例可服务多类实体（以 key 前缀区分），内部共享一个
// 异步重建 worker pool。不再使用时调用 Close 回收重建协程。
type Cache struct {
	client   redis.UniversalClient
	options  *Options
	group    singleflight.Group
	rebuilds *xpool.WorkerPool[func()]
	closed   atomic.Bool

	now func() time.Time
}

// New 创建缓存层。
func New(client redis.UniversalClient, opts ...Option) (*Cache, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	c := &Cache{
		client:  client,
		options: options,
		now:     time.Now,
	}
	c.rebuilds = xpool.NewWorkerPool(options.RebuildWorkers, options.RebuildQueue,
		func(task func()) { task() },
		xpool.WithName("xcache-rebuild"),
		xpool.WithLogger(options.Logger),
	)
	c.rebuilds.Start()
	return c, nil
}

// Set 写入带物理 TTL 的缓存值（穿透/互斥策略使用）。
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("xcache: marshal value for %q: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("xcache: set %q: %w", key, err)
	}
	return nil
}

// SetWithLogicalExpire 写入逻辑过期信封（逻辑过期策略的预热与重建回写使用）。
// 值不设物理 TTL，ttl 仅决定信封内的逻辑过期时间。
func (c *Cache) SetWithLogicalExpire(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("xcache: marshal value for %q: %w", key, err)
	}
	wrapped, err := json.Marshal(envelope{
		Data:       data,
		ExpireTime: c.now().Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("xcache: marshal envelope for %q: %w", key, err)
	}
	if err := c.client.Set(ctx, key, wrapped, 0).Err(); err != nil {
		return fmt.Errorf("xcache: set %q: %w", key, err)
	}
	return nil
}

// Invalidate 删除缓存值。源端数据变更后调用，保证下次读取回源。
// key 不存在时不报错。
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("xcache: invalidate %q: %w", key, err)
	}
	return nil
}

// Close 关闭缓存层，等待已入队的异步重建任务完成。
// 关闭后查询仍可读缓存，但不再触发异步重建。幂等。
func (c *Cache) Close() {
	c.closed.Store(true)
	c.rebuilds.Stop()
}

// markNull 写入空值标记（穿透防护）。
func (c *Cache) markNull(ctx context.Context, key string) error {
	if err := c.client.Set(ctx, key, "", c.options.NullTTL).Err(); err != nil {
		return fmt.Errorf("xcache: set null marker %q: %w", key, err)
	}
	return nil
}
