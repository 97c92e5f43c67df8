// Package xseckill 实现优惠券秒杀下单的协调逻辑。
//
// 两条硬性约束：
//
//   - 不超卖：库存扣减是原子条件更新（stock > 0 才减），并发下最多
//     卖出初始库存数量的券。
//   - 一人一单：以用户维度的分布式锁串行化同一用户的并发请求，
//     锁内再查重，跨进程也只允许成交一单。
//
// 业务性拒绝（未开始、已结束、售罄、重复下单等）通过 Outcome.Reason
// 表达，error 只保留给基础设施故障。
package xseckill
