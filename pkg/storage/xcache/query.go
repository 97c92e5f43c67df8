package xcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/redis/go-redis/v9"

	"github.com/Shiyi1001/hm-dianping/pkg/distributed/xdlock"
)

// =============================================================================
// 查询策略
// =============================================================================

// errRebuildPending 轮询期间缓存尚未被重建者填充（内部重试信号）。
var errRebuildPending = errors.New("xcache: rebuild in progress")

// loaded 回源结果，在 singleflight 边界上传递。
type loaded[T any] struct {
	value T
	found bool
}

// QueryWithPassThrough 穿透防护查询。
//
// 命中空值标记返回 (zero, false, nil)，不回源。未命中时回源：
// 源端不存在则写入 NullTTL 的空值标记，存在则以 ttl 写缓存。
// 同一 key 的并发未命中被收敛为一次回源。
func QueryWithPassThrough[T any](ctx context.Context, c *Cache, keyPrefix string, id int64, ttl time.Duration, loader Loader[T]) (T, bool, error) {
	var zero T
	if loader == nil {
		return zero, false, ErrNilLoader
	}
	key := keyPrefix + strconv.FormatInt(id, 10)

	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if raw == "" {
			return zero, false, nil
		}
		v, err := decodeValue[T](key, raw)
		if err != nil {
			return zero, false, err
		}
		return v, true, nil
	case !errors.Is(err, redis.Nil):
		return zero, false, fmt.Errorf("xcache: get %q: %w", key, err)
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		v, found, err := loader(ctx, id)
		if err != nil {
			return nil, err
		}
		if !found {
			if err := c.markNull(ctx, key); err != nil {
				return nil, err
			}
			return loaded[T]{}, nil
		}
		if err := c.Set(ctx, key, v, ttl); err != nil {
			return nil, err
		}
		return loaded[T]{value: v, found: true}, nil
	})
	if err != nil {
		return zero, false, err
	}
	res := result.(loaded[T])
	return res.value, res.found, nil
}

// QueryWithLogicalExpire 逻辑过期查询（stale-while-revalidate）。
//
// key 不存在视为数据不存在（热点数据应通过 SetWithLogicalExpire 或
// Warmer 预热）。逻辑过期后本次查询仍立即返回旧值，同时至多一个调用者
// 抢到重建锁并把重建任务交给后台 worker；其余调用者继续用旧值。
func QueryWithLogicalExpire[T any](ctx context.Context, c *Cache, keyPrefix string, id int64, ttl time.Duration, loader Loader[T]) (T, bool, error) {
	var zero T
	if loader == nil {
		return zero, false, ErrNilLoader
	}
	key := keyPrefix + strconv.FormatInt(id, 10)

	env, err := c.getEnvelope(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, false, nil
		}
		return zero, false, err
	}
	v, err := decodeValue[T](key, string(env.Data))
	if err != nil {
		return zero, false, err
	}
	if env.ExpireTime.After(c.now()) {
		return v, true, nil
	}

	// 已逻辑过期：抢重建锁，抢到的触发异步重建，本次仍返回旧值。
	tryScheduleRebuild(ctx, c, key, id, ttl, loader)
	return v, true, nil
}

// QueryWithMutex 互斥重建查询。
//
// 未命中时抢重建锁：抢到的回源并回写（不存在则写空值标记）；
// 没抢到的按 RetryPolicy 有界轮询，等待重建者填充缓存，
// 超出预算返回 ErrRetryExhausted。
func QueryWithMutex[T any](ctx context.Context, c *Cache, keyPrefix string, id int64, ttl time.Duration, loader Loader[T]) (T, bool, error) {
	var zero T
	if loader == nil {
		return zero, false, ErrNilLoader
	}
	key := keyPrefix + strconv.FormatInt(id, 10)

	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if raw == "" {
			return zero, false, nil
		}
		v, err := decodeValue[T](key, raw)
		if err != nil {
			return zero, false, err
		}
		return v, true, nil
	case !errors.Is(err, redis.Nil):
		return zero, false, fmt.Errorf("xcache: get %q: %w", key, err)
	}

	lock, err := xdlock.NewSimpleLock(c.client, key)
	if err != nil {
		return zero, false, err
	}
	acquired, err := lock.TryLock(ctx, c.options.RebuildLockTTL)
	if err != nil {
		return zero, false, err
	}
	if !acquired {
		return pollForRebuild[T](ctx, c, key)
	}
	defer func() {
		if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
			c.options.Logger.Warn("xcache: release rebuild lock failed", "key", key, "error", err)
		}
	}()

	// 拿到锁后再查一次：可能上一个重建者刚填充完。
	raw, err = c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if raw == "" {
			return zero, false, nil
		}
		v, err := decodeValue[T](key, raw)
		if err != nil {
			return zero, false, err
		}
		return v, true, nil
	case !errors.Is(err, redis.Nil):
		return zero, false, fmt.Errorf("xcache: get %q: %w", key, err)
	}

	v, found, err := loader(ctx, id)
	if err != nil {
		return zero, false, err
	}
	if !found {
		if err := c.markNull(ctx, key); err != nil {
			return zero, false, err
		}
		return zero, false, nil
	}
	if err := c.Set(ctx, key, v, ttl); err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// pollForRebuild 等待持锁的重建者填充缓存，轮询预算由 RetryPolicy 决定。
func pollForRebuild[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	var zero T
	retrier := retry.NewWithData[loaded[T]](
		retry.Attempts(uint(c.options.MaxRetryAttempts)),
		retry.Delay(c.options.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	res, err := retrier.Do(func() (loaded[T], error) {
		raw, err := c.client.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return loaded[T]{}, errRebuildPending
			}
			return loaded[T]{}, retry.Unrecoverable(fmt.Errorf("xcache: get %q: %w", key, err))
		}
		if raw == "" {
			return loaded[T]{}, nil
		}
		v, err := decodeValue[T](key, raw)
		if err != nil {
			return loaded[T]{}, retry.Unrecoverable(err)
		}
		return loaded[T]{value: v, found: true}, nil
	})
	if err != nil {
		if errors.Is(err, errRebuildPending) {
			return zero, false, fmt.Errorf("%w: key %q", ErrRetryExhausted, key)
		}
		return zero, false, err
	}
	return res.value, res.found, nil
}

// tryScheduleRebuild 抢重建锁并提交异步重建任务。
// 没抢到锁说明已有人在重建，直接返回；缓存已关闭时不再重建。
// 重建任务在脱离调用方取消信号的 context 上执行，请求结束不中断回写。
func tryScheduleRebuild[T any](ctx context.Context, c *Cache, key string, id int64, ttl time.Duration, loader Loader[T]) {
	if c.closed.Load() {
		return
	}

	lock, err := xdlock.NewSimpleLock(c.client, key)
	if err != nil {
		return
	}
	acquired, err := lock.TryLock(ctx, c.options.RebuildLockTTL)
	if err != nil {
		c.options.Logger.Warn("xcache: acquire rebuild lock failed", "key", key, "error", err)
		return
	}
	if !acquired {
		return
	}

	detached := context.WithoutCancel(ctx)
	release := func() {
		if err := lock.Unlock(detached); err != nil {
			c.options.Logger.Warn("xcache: release rebuild lock failed", "key", key, "error", err)
		}
	}

	// 拿到锁后确认仍然过期：可能刚被上一个重建者刷新。
	if env, err := c.getEnvelope(ctx, key); err == nil && env.ExpireTime.After(c.now()) {
		release()
		return
	}

	task := func() {
		defer release()
		rctx, cancel := context.WithTimeout(detached, c.options.RebuildTimeout)
		defer cancel()

		v, found, err := loader(rctx, id)
		if err != nil {
			c.options.Logger.Warn("xcache: async rebuild load failed", "key", key, "error", err)
			return
		}
		if !found {
			// 源端已删除：清掉信封，后续读取按不存在处理
			if err := c.Invalidate(rctx, key); err != nil {
				c.options.Logger.Warn("xcache: invalidate after rebuild failed", "key", key, "error", err)
			}
			return
		}
		if err := c.SetWithLogicalExpire(rctx, key, v, ttl); err != nil {
			c.options.Logger.Warn("xcache: async rebuild write failed", "key", key, "error", err)
		}
	}
	if !c.rebuilds.Submit(task) {
		release()
	}
}

// getEnvelope 读取并解码逻辑过期信封。
func (c *Cache) getEnvelope(ctx context.Context, key string) (*envelope, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, redis.Nil
		}
		return nil, fmt.Errorf("xcache: get %q: %w", key, err)
	}
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("%w: key %q: %w", ErrBadPayload, key, err)
	}
	return &env, nil
}

// decodeValue 解码缓存中的业务值。
func decodeValue[T any](key, raw string) (T, error) {
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, fmt.Errorf("%w: key %q: %w", ErrBadPayload, key, err)
	}
	return v, nil
}
