package xctx

import "context"

// contextKey 是 xctx 私有的 context key 类型。
// 使用独立类型避免与其他包的 key 冲突。
type contextKey string

const keyUserID = contextKey("xctx:user_id")

// WithUserID 将已认证的用户 ID 注入 context。
//
// 设计决策: 返回 error 而非 panic，与本项目构造类 API 的约定一致；
// 唯一错误条件是 nil ctx。不校验 userID 的业务有效性（如是否存在），
// xctx 是纯存取层，校验属于认证层的职责。
func WithUserID(ctx context.Context, userID int64) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return context.WithValue(ctx, keyUserID, userID), nil
}

// UserID 从 context 提取用户 ID，不存在时返回 (0, false)。
func UserID(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	if v, ok := ctx.Value(keyUserID).(int64); ok {
		return v, true
	}
	return 0, false
}

// RequireUserID 从 context 提取用户 ID，不存在时返回 ErrNoUser。
// 用于必须有登录态才能执行的调用链（如下单）。
func RequireUserID(ctx context.Context) (int64, error) {
	id, ok := UserID(ctx)
	if !ok {
		return 0, ErrNoUser
	}
	return id, nil
}
