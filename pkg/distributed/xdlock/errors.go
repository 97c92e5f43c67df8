package xdlock

import "errors"

// 预定义错误。使用 errors.Is 进行匹配，例如：
//
//	if errors.Is(err, xdlock.ErrNotLocked) {
//	    // 锁已过期或不属于当前持有者
//	}
var (
	// ErrNilClient Redis 客户端为空。
	ErrNilClient = errors.New("xdlock: client is nil")

	// ErrEmptyName 锁名称为空或仅含空白。
	ErrEmptyName = errors.New("xdlock: name must not be empty")

	// ErrInvalidTTL 锁 TTL 非正值。
	// 没有 TTL 的锁在持有者崩溃后会永久阻塞系统，入口处 fail-fast。
	ErrInvalidTTL = errors.New("xdlock: ttl must be positive")

	// ErrNotLocked 锁未被当前持有者持有。
	// Unlock 时发现锁已过期、被抢走或从未获取时返回此错误。
	ErrNotLocked = errors.New("xdlock: not locked")
)
