package xid

import "errors"

var (
	// ErrNilClient Redis 客户端为空。
	ErrNilClient = errors.New("xid: client is nil")

	// ErrEmptyBiz 业务前缀为空。
	// 序列计数器按业务前缀隔离，空前缀几乎总是使用错误，入口处 fail-fast。
	ErrEmptyBiz = errors.New("xid: biz prefix must not be empty")

	// ErrInvalidID ID 值无效（零或负数）。
	// Decompose 解析出非正值时返回此错误。
	ErrInvalidID = errors.New("xid: invalid id")
)
