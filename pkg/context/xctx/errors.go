package xctx

import "errors"

var (
	// ErrNilContext context 参数为 nil。
	ErrNilContext = errors.New("xctx: nil context")

	// ErrNoUser context 中不存在用户身份。
	// 通常意味着调用链上游没有经过登录拦截层。
	ErrNoUser = errors.New("xctx: no user in context")
)
