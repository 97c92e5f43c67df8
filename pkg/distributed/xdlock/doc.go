// Package xdlock 提供基于 Redis 的跨进程互斥锁。
//
// # 两种锁
//
//   - SimpleLock: 单次 SET NX EX 尝试，TTL 即最大持有时间。
//     实现轻、语义直白，适合持有时间可预估的短临界区（如缓存重建）。
//     TTL 必须显著大于临界区耗时，否则锁会在操作未完成时自然过期。
//   - LeaseLock: 可重入、带租约续期的锁。获取时在配置的重试次数内
//     有界等待；持有期间由 watchdog 周期性续期，持有者崩溃后续期停止，
//     租约到期锁自动释放。适合持有时间不可预估的业务互斥（如下单防重）。
//
// # 获取失败不是错误
//
// TryLock 返回 (false, nil) 表示锁被其他持有者占用，这是正常结果，
// 由调用方决定重试还是拒绝；只有锁服务异常（Redis 不可达等）才返回 error。
//
// # 释放安全
//
// 两种锁的释放都通过服务端原子脚本校验持有者令牌后删除，
// 过期后被他人重新获取的锁不会被前持有者误删。
package xdlock
