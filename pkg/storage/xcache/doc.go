// Package xcache 提供基于 Redis 的读缓存层，解决缓存穿透与缓存击穿。
//
// 三种查询策略，按数据特征选择：
//
//   - QueryWithPassThrough：缓存空值防穿透。未命中时回源，源端不存在则
//     写入短 TTL 的空值标记，后续未命中请求不再打到源端。
//   - QueryWithLogicalExpire：逻辑过期防击穿。数据无物理 TTL，过期信息
//     存在值信封里；过期后立即返回旧值，由单一重建者异步刷新（stale-
//     while-revalidate）。适用于预热过的热点数据。
//   - QueryWithMutex：互斥重建防击穿。未命中时抢重建锁，抢到的回源写缓存，
//     没抢到的有界轮询等待缓存被填充。保证回源请求数与热点 key 数同阶。
//
// 所有策略下对同一 key 的并发回源都被收敛为一次加载。
package xcache
