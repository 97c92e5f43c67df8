// Package xpool 提供有界 worker pool，用于缓存重建等异步任务。
//
// 池由使用方显式构造、显式定容、显式关闭：worker 数量决定并发上限，
// 队列长度决定积压上限，超出队列容量的任务被丢弃并记录日志，
// 从而保证突发任务不会挤占请求处理能力。
//
// # 使用模式
//
//	pool := xpool.NewWorkerPool(10, 100, func(task rebuildTask) {
//	    task.run()
//	}, xpool.WithName("cache-rebuild"))
//	pool.Start()
//	defer pool.Stop()
//
//	pool.Submit(task)
package xpool
