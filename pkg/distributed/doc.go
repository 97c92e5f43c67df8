// Package distributed 提供分布式协调相关的子包。
//
// 子包列表：
//   - xdlock: 基于 Redis 的分布式锁，简单令牌锁与可重入租约锁
package distributed
