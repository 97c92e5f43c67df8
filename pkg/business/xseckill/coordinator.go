package xseckill

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Shiyi1001/hm-dianping/pkg/context/xctx"
	"github.com/Shiyi1001/hm-dianping/pkg/distributed/xdlock"
	"github.com/Shiyi1001/hm-dianping/pkg/util/xid"
)

// =============================================================================
// Coordinator
// =============================================================================

// userLockPrefix 用户维度锁的业务前缀，完整 key 形如 "lock:seckill:order:{userID}"。
const userLockPrefix = "seckill:order:"

// orderBiz 订单号生成器的业务键。
const orderBiz = "order"

// Coordinator 秒杀下单协调器。
//
// 并发安全，单实例可服务全部请求。校验链：券存在 → 时间窗口 → 余量
// 预检 → 用户锁 → 事务内查重 + 原子扣减 + 写单。用户锁用 LeaseLock，
// 慢事务不会因锁过期放进同一用户的第二笔请求。
type Coordinator struct {
	client   redis.UniversalClient
	ids      *xid.Worker
	vouchers VoucherStore
	orders   OrderStore
	tx       TxRunner
	options  *Options

	now func() time.Time
}

// NewCoordinator 创建协调器。
func NewCoordinator(client redis.UniversalClient, ids *xid.Worker, vouchers VoucherStore, orders OrderStore, tx TxRunner, opts ...Option) (*Coordinator, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if ids == nil {
		return nil, ErrNilIDWorker
	}
	if vouchers == nil || orders == nil {
		return nil, ErrNilStore
	}
	if tx == nil {
		return nil, ErrNilTxRunner
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &Coordinator{
		client:   client,
		ids:      ids,
		vouchers: vouchers,
		orders:   orders,
		tx:       tx,
		options:  options,
		now:      time.Now,
	}, nil
}

// Seckill 处理一次秒杀下单请求。
//
// ctx 必须携带用户身份（xctx.WithUserID）。业务性拒绝体现在
// Outcome.Reason 上且 error 为 nil；error 非 nil 表示基础设施故障，
// 此时订单一定未成交。
func (c *Coordinator) Seckill(ctx context.Context, voucherID int64) (Outcome, error) {
	userID, err := xctx.RequireUserID(ctx)
	if err != nil {
		return Outcome{}, err
	}

	voucher, found, err := c.vouchers.GetVoucher(ctx, voucherID)
	if err != nil {
		return Outcome{}, fmt.Errorf("xseckill: get voucher %d: %w", voucherID, err)
	}
	if !found {
		return Outcome{Reason: ReasonVoucherNotFound}, nil
	}

	now := c.now()
	if now.Before(voucher.BeginTime) {
		return Outcome{Reason: ReasonNotStarted}, nil
	}
	if !now.Before(voucher.EndTime) {
		return Outcome{Reason: ReasonEnded}, nil
	}
	// 余量预检只是快速失败，真正的防超卖在事务内的条件扣减
	if voucher.Stock < 1 {
		return Outcome{Reason: ReasonSoldOut}, nil
	}

	lock, err := xdlock.NewLeaseLock(c.client, userLockPrefix+strconv.FormatInt(userID, 10),
		xdlock.WithExpiry(c.options.LockExpiry),
		xdlock.WithTries(c.options.LockTries),
		xdlock.WithRetryDelay(c.options.LockRetryDelay),
		xdlock.WithLogger(c.options.Logger),
	)
	if err != nil {
		return Outcome{}, err
	}
	acquired, err := lock.TryLock(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("xseckill: acquire user lock: %w", err)
	}
	if !acquired {
		return Outcome{Reason: ReasonOrderInFlight}, nil
	}
	defer func() {
		// 请求 ctx 可能已取消，释放锁用不带取消信号的副本
		if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
			c.options.Logger.Warn("xseckill: release user lock failed",
				"user_id", userID, "error", err)
		}
	}()

	return c.createOrder(ctx, userID, voucherID)
}

// createOrder 在用户锁保护下完成查重、扣减与写单，三者落在同一事务。
func (c *Coordinator) createOrder(ctx context.Context, userID, voucherID int64) (Outcome, error) {
	var out Outcome
	err := c.tx.InTx(ctx, func(txCtx context.Context) error {
		// 锁内查重：一人一单
		count, err := c.orders.CountByUserAndVoucher(txCtx, userID, voucherID)
		if err != nil {
			return fmt.Errorf("count orders: %w", err)
		}
		if count > 0 {
			out = Outcome{Reason: ReasonDuplicateOrder}
			return nil
		}

		// 条件扣减：stock > 0 才减，数据库层面兜住超卖
		decremented, err := c.vouchers.DecrementStock(txCtx, voucherID)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		if !decremented {
			out = Outcome{Reason: ReasonSoldOut}
			return nil
		}

		orderID, err := c.ids.NextID(txCtx, orderBiz)
		if err != nil {
			return fmt.Errorf("next order id: %w", err)
		}
		if err := c.orders.CreateOrder(txCtx, Order{
			ID:        orderID,
			UserID:    userID,
			VoucherID: voucherID,
			CreatedAt: c.now(),
		}); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		out = Outcome{OrderID: orderID}
		return nil
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("xseckill: order tx for user %d voucher %d: %w", userID, voucherID, err)
	}
	return out, nil
}
