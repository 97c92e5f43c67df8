package xseckill

import "context"

// =============================================================================
// 存储接口
// =============================================================================

// VoucherStore 秒杀券存储。
type VoucherStore interface {
	// GetVoucher 按 ID 读取券。不存在时返回 found=false 而非 error。
	GetVoucher(ctx context.Context, voucherID int64) (Voucher, bool, error)

	// DecrementStock 原子条件扣减库存：仅当剩余库存大于零时减一。
	// 返回 false 表示库存已为零（扣减未发生）。
	DecrementStock(ctx context.Context, voucherID int64) (bool, error)
}

// OrderStore 秒杀订单存储。
type OrderStore interface {
	// CountByUserAndVoucher 统计某用户在某券上的已有订单数（一人一单查重）。
	CountByUserAndVoucher(ctx context.Context, userID, voucherID int64) (int64, error)

	// CreateOrder 写入订单。
	CreateOrder(ctx context.Context, order Order) error
}

// TxRunner 在单个数据库事务内执行 fn。
// fn 返回非 nil 时回滚，否则提交；fn 收到的 ctx 携带事务句柄，
// 传给存储方法即可让扣减与写单落在同一事务里。
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
