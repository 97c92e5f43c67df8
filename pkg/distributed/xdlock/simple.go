package xdlock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// keyPrefix 锁 key 的统一前缀，与缓存、计数器的 key 空间按约定隔离。
const keyPrefix = "lock:"

// instancePrefix 本进程实例的令牌前缀。
// 进程启动时生成一次；完整令牌 = 实例前缀 + 每次获取的随机后缀，
// 保证任意两个逻辑持有者（跨进程或同进程内）的令牌不可能相同。
var instancePrefix = uuid.NewString() + "-"

// unlockScript 释放锁的 Lua 脚本：仅当 key 当前值仍等于本持有者令牌时删除。
// GET 与 DEL 必须在服务端原子执行——分开执行时锁可能在两步之间过期并被
// 他人重新获取，导致误删他人的锁。返回 1 表示成功释放，0 表示锁已不属于本持有者。
var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// generateToken 生成一次获取的持有者令牌。
// crypto/rand 失败是系统级异常，退化为进程号 + 纳秒时间戳后缀。
func generateToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return instancePrefix + fmt.Sprintf("%d-%d", os.Getpid(), time.Now().UnixNano())
	}
	return instancePrefix + hex.EncodeToString(b)
}

// validateName 校验锁名称。
func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	return nil
}

// =============================================================================
// SimpleLock
// =============================================================================

// SimpleLock 基于 SET NX EX 的简单互斥锁。
//
// 一个 SimpleLock 实例代表一个逻辑持有者：TryLock 成功后令牌记录在实例上，
// Unlock 凭该令牌释放。实例方法并发安全，但多个 goroutine 共用一个实例
// 竞争同一次持有没有意义——每个逻辑持有者应使用自己的实例。
type SimpleLock struct {
	client redis.UniversalClient
	key    string

	mu    sync.Mutex
	token string // 非空表示当前持有
}

// NewSimpleLock 创建简单锁。
// name 是锁的业务标识，实际 key 为 "lock:" + name。
func NewSimpleLock(client redis.UniversalClient, name string) (*SimpleLock, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	return &SimpleLock{
		client: client,
		key:    keyPrefix + name,
	}, nil
}

// TryLock 单次尝试获取锁。
//
// ttl 是锁的最大持有时间，到期自动释放（持有者崩溃时的唯一恢复手段），
// 应显著大于临界区的预期耗时。
// 返回 (false, nil) 表示锁被其他持有者占用；error 仅表示锁服务异常。
func (l *SimpleLock) TryLock(ctx context.Context, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, ErrInvalidTTL
	}

	token := generateToken()
	acquired, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return false, err
	}
	if !acquired {
		return false, nil
	}

	l.mu.Lock()
	l.token = token
	l.mu.Unlock()
	return true, nil
}

// Unlock 释放锁。
//
// 通过服务端原子脚本校验令牌后删除：本实例的锁已过期并被其他持有者
// 重新获取时返回 ErrNotLocked，且绝不会删除新持有者的锁。
func (l *SimpleLock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	token := l.token
	l.token = ""
	l.mu.Unlock()

	if token == "" {
		return ErrNotLocked
	}

	result, err := unlockScript.Run(ctx, l.client, []string{l.key}, token).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrNotLocked
	}
	return nil
}

// Key 返回锁的完整 Redis key，用于日志记录等场景。
func (l *SimpleLock) Key() string {
	return l.key
}
