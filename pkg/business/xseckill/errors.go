package xseckill

import "errors"

// =============================================================================
// 错误定义
// =============================================================================

var (
	// ErrNilClient Redis 客户端为空。
	ErrNilClient = errors.New("xseckill: nil redis client")

	// ErrNilIDWorker 订单号生成器为空。
	ErrNilIDWorker = errors.New("xseckill: nil id worker")

	// ErrNilStore 券或订单存储为空。
	ErrNilStore = errors.New("xseckill: nil store")

	// ErrNilTxRunner 事务执行器为空。
	ErrNilTxRunner = errors.New("xseckill: nil tx runner")
)
