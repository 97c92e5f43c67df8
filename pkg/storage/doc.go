// Package storage 提供数据存储相关的子包。
//
// 子包列表：
//   - xcache: 基于 Redis 的读缓存层，穿透/击穿防护与热点预热
package storage
