// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xid: 分布式唯一 ID 生成器，时间戳 + Redis 按日序列
//   - xpool: 泛型 Worker Pool，可配置 worker/队列大小、优雅关闭
package util
