package xdlock

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// =============================================================================
// LeaseLock
// =============================================================================

// LeaseLock 可重入、带租约续期的互斥锁。
//
// 一个 LeaseLock 实例代表一个逻辑持有者。持有期间 watchdog 周期性续期，
// 合法的长操作不会被提前驱逐；进程崩溃后续期停止，租约到期锁自动释放。
// 同一实例可嵌套 TryLock（重入），内部持有计数归零时才真正删除底层 key。
type LeaseLock struct {
	mutex  *redsync.Mutex
	key    string
	expiry time.Duration
	logger *slog.Logger

	mu   sync.Mutex
	held int           // 重入持有计数
	stop chan struct{} // 关闭以通知 watchdog 退出
	done chan struct{} // watchdog 退出后关闭
}

// NewLeaseLock 创建租约锁。
// name 是锁的业务标识，实际 key 为 "lock:" + name。
func NewLeaseLock(client redis.UniversalClient, name string, opts ...LeaseOption) (*LeaseLock, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if err := validateName(name); err != nil {
		return nil, err
	}

	options := defaultLeaseOptions()
	for _, opt := range opts {
		opt(options)
	}

	key := keyPrefix + name
	rs := redsync.New(goredis.NewPool(client))
	mutex := rs.NewMutex(key,
		redsync.WithExpiry(options.Expiry),
		redsync.WithTries(options.Tries),
		redsync.WithRetryDelay(options.RetryDelay),
	)

	return &LeaseLock{
		mutex:  mutex,
		key:    key,
		expiry: options.Expiry,
		logger: options.Logger,
	}, nil
}

// TryLock 获取锁，按配置的尝试次数与间隔有界等待。
//
// 返回 (false, nil) 表示重试耗尽仍被其他持有者占用——这是正常结果，
// 不是错误；error 仅表示 context 取消或锁服务异常。
// 本实例已持有时直接递增持有计数（重入），不访问 Redis。
func (l *LeaseLock) TryLock(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held > 0 {
		l.held++
		return true, nil
	}

	if err := l.mutex.LockContext(ctx); err != nil {
		// redsync 不会传递 context 错误，需要单独检查
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		if isContention(err) {
			return false, nil
		}
		return false, err
	}

	l.held = 1
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	go l.watchdog(l.stop, l.done)
	return true, nil
}

// Unlock 释放一层持有。
//
// 持有计数归零时停止 watchdog 并删除底层 key（服务端校验令牌，
// 不会误删他人的锁）。未持有、或锁已过期被抢走时返回 ErrNotLocked。
func (l *LeaseLock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held == 0 {
		return ErrNotLocked
	}
	l.held--
	if l.held > 0 {
		return nil
	}

	close(l.stop)
	<-l.done

	ok, err := l.mutex.UnlockContext(ctx)
	if err != nil {
		if errors.Is(err, redsync.ErrLockAlreadyExpired) {
			return ErrNotLocked
		}
		return err
	}
	if !ok {
		return ErrNotLocked
	}
	return nil
}

// Key 返回锁的完整 Redis key，用于日志记录等场景。
func (l *LeaseLock) Key() string {
	return l.key
}

// watchdog 在持有期间以租约时长的 1/3 为周期续期。
// 续期失败（锁已丢失或 Redis 异常）时记录日志并退出：
// 此后租约自然到期，由下一个竞争者接管。
func (l *LeaseLock) watchdog(stop, done chan struct{}) {
	defer close(done)

	interval := l.expiry / 3
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			ok, err := l.mutex.ExtendContext(ctx)
			cancel()
			if err != nil || !ok {
				l.logger.Warn("xdlock: lease extend failed, watchdog exiting",
					"key", l.key, "error", err)
				return
			}
		}
	}
}

// isContention 判断 redsync 错误是否为"锁被占用"（正常竞争结果）。
// ErrTaken 是结构体类型，需要 errors.As；重试耗尽表现为 ErrFailed。
func isContention(err error) bool {
	var taken *redsync.ErrTaken
	if errors.As(err, &taken) {
		return true
	}
	return errors.Is(err, redsync.ErrFailed)
}
