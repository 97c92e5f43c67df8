package xcache

import "errors"

// =============================================================================
// 错误定义
// =============================================================================

var (
	// ErrNilClient Redis 客户端为空。
	ErrNilClient = errors.New("xcache: nil redis client")

	// ErrNilLoader 回源函数为空。
	ErrNilLoader = errors.New("xcache: nil loader")

	// ErrBadPayload 缓存值无法按约定格式解码。
	// 值未被清除，便于人工排查；调用方可选择 Invalidate 后重试。
	ErrBadPayload = errors.New("xcache: malformed cache payload")

	// ErrClosed 缓存已关闭，重建任务不再受理。
	ErrClosed = errors.New("xcache: cache closed")

	// ErrRetryExhausted 等待他人重建缓存超出重试预算。
	ErrRetryExhausted = errors.New("xcache: rebuild wait retries exhausted")
)
