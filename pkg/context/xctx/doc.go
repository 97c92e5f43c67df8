// Package xctx 提供请求级身份信息的 context 传递。
//
// 登录拦截层在请求入口将已认证的用户 ID 写入 context，
// 下游组件（如秒杀协调器）通过 RequireUserID 显式取用。
// 不使用任何进程级/线程级隐式存储：身份随 context 传递，
// 请求结束即随 context 一起释放，无需额外清理。
//
// # 使用模式
//
//	ctx, err := xctx.WithUserID(ctx, userID)
//	if err != nil {
//	    return err
//	}
//	// ... 下游调用链 ...
//	userID, err := xctx.RequireUserID(ctx)
package xctx
