package xseckill

import "time"

// =============================================================================
// 领域类型
// =============================================================================

// Voucher 秒杀券。
type Voucher struct {
	ID        int64
	Stock     int64
	BeginTime time.Time // 秒杀开始时间（含）
	EndTime   time.Time // 秒杀结束时间（不含）
}

// Order 秒杀订单。
type Order struct {
	ID        int64
	UserID    int64
	VoucherID int64
	CreatedAt time.Time
}

// Reason 业务性拒绝原因。空串表示成交。
type Reason string

const (
	// ReasonNone 成交。
	ReasonNone Reason = ""
	// ReasonVoucherNotFound 券不存在。
	ReasonVoucherNotFound Reason = "voucher_not_found"
	// ReasonNotStarted 秒杀尚未开始。
	ReasonNotStarted Reason = "not_started"
	// ReasonEnded 秒杀已结束。
	ReasonEnded Reason = "ended"
	// ReasonSoldOut 已售罄。
	ReasonSoldOut Reason = "sold_out"
	// ReasonDuplicateOrder 该用户已购买过此券。
	ReasonDuplicateOrder Reason = "already_purchased"
	// ReasonOrderInFlight 该用户另一笔下单正在处理（用户锁被占）。
	ReasonOrderInFlight Reason = "order_in_flight"
)

// Outcome 一次秒杀请求的结果。
type Outcome struct {
	OrderID int64  // 成交时的订单号
	Reason  Reason // 拒绝原因，成交时为空
}

// Succeeded 报告请求是否成交。
func (o Outcome) Succeeded() bool {
	return o.Reason == ReasonNone
}
