// Package context 提供 context 传值相关的子包。
//
// 子包列表：
//   - xctx: 请求上下文中的用户身份读写
package context
