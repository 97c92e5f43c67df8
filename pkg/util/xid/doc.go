// Package xid 提供基于 Redis 自增序列的分布式唯一 ID 生成器。
//
// ID 为 64 位整数：高位是自定义纪元以来的秒数，低 32 位是
// 按 (业务前缀, 自然日) 维度的 Redis 原子自增序列。
// 时间戳保证跨秒递增，序列号保证同一秒内严格递增且永不重复；
// 序列按天重置 key，既避免计数器逼近位宽上限，也方便按日统计单量。
//
// 进程间唯一的同步点是 Redis 的一次 INCR，天然支持任意数量的
// 并发调用方和应用实例。
//
// # 使用模式
//
//	worker, err := xid.NewWorker(redisClient)
//	if err != nil {
//	    return err
//	}
//	orderID, err := worker.NextID(ctx, "order")
package xid
